// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audmgr/audio"
)

// go-mp3 always produces 16-bit little-endian stereo.
const bytesPerFrame = 4

var ErrSeekOutOfRange = errors.New("seek past end of MP3 stream")

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

// Factory probes MPEG audio streams through go-mp3.
type Factory struct{}

func (Factory) CreateDecoder(rs io.ReadSeeker) (audio.Decoder, error) {
	dec, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return newDecoder(dec), nil
}

type Decoder struct {
	dec    mp3Reader
	frames uint64
	pos    uint64
}

func newDecoder(dec mp3Reader) *Decoder {
	var frames uint64
	if n := dec.Length(); n > 0 {
		frames = uint64(n) / bytesPerFrame
	}
	return &Decoder{dec: dec, frames: frames}
}

func (d *Decoder) SampleRate() int                    { return d.dec.SampleRate() }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return audio.Stereo }
func (d *Decoder) SampleType() audio.SampleType       { return audio.Int16 }
func (d *Decoder) Length() uint64                     { return d.frames }
func (d *Decoder) Position() uint64                   { return d.pos }
func (d *Decoder) LoopPoints() (start, end uint64)    { return 0, 0 }
func (d *Decoder) Close() error                       { return nil }

func (d *Decoder) Seek(frame uint64) error {
	if d.frames > 0 && frame > d.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, d.frames)
	}
	if _, err := d.dec.Seek(int64(frame)*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	d.pos = frame
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	want := frames * bytesPerFrame
	if d.frames > 0 {
		want = int(min(uint64(frames), d.frames-d.pos)) * bytesPerFrame
	}
	if want <= 0 {
		return 0, io.EOF
	}

	// go-mp3 hands out at most one MPEG frame per call.
	total := 0
	for total < want {
		n, err := d.dec.Read(dst[total:want])
		total += n
		if err != nil {
			got := total / bytesPerFrame
			d.pos += uint64(got)
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if got == 0 {
					return 0, io.EOF
				}
				return got, nil
			}
			return got, fmt.Errorf("%w", err)
		}
		if n == 0 {
			break
		}
	}

	got := total / bytesPerFrame
	d.pos += uint64(got)
	return got, nil
}
