// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audmgr/audio"
)

// aiffReader is the part of aiff.Decoder used here, split out for tests.
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Factory probes AIFF and AIFF-C streams through go-audio/aiff.
type Factory struct{}

func (Factory) CreateDecoder(rs io.ReadSeeker) (audio.Decoder, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	reopen := func() (aiffReader, error) {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		d := aiff.NewDecoder(rs)
		if !d.IsValidFile() {
			return nil, ErrNotAiffFile
		}
		d.ReadInfo()
		return d, nil
	}

	return newDecoder(dec, int(dec.BitDepth), uint64(dec.NumSampleFrames), reopen)
}

// Decoder converts go-audio's integer buffers to UInt8 or Int16 frames.
// Widths above 16 bits are reduced to 16.
type Decoder struct {
	src      aiffReader
	reopen   func() (aiffReader, error)
	format   audio.Format
	bitDepth int
	frames   uint64
	pos      uint64
	ibuf     *goaudio.IntBuffer
}

func newDecoder(src aiffReader, bitDepth int, frames uint64, reopen func() (aiffReader, error)) (*Decoder, error) {
	f := src.Format()
	chans, ok := audio.ChannelConfigFromCount(f.NumChannels)
	if !ok {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedAiffLayout, f.NumChannels)
	}

	var typ audio.SampleType
	switch {
	case bitDepth == 8:
		typ = audio.UInt8
	case bitDepth > 8 && bitDepth <= 32:
		typ = audio.Int16
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return &Decoder{
		src:      src,
		reopen:   reopen,
		format:   audio.Format{SampleRate: f.SampleRate, Channels: chans, Type: typ},
		bitDepth: bitDepth,
		frames:   frames,
		ibuf:     &goaudio.IntBuffer{Format: f},
	}, nil
}

func (d *Decoder) SampleRate() int                    { return d.format.SampleRate }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return d.format.Channels }
func (d *Decoder) SampleType() audio.SampleType       { return d.format.Type }
func (d *Decoder) Length() uint64                     { return d.frames }
func (d *Decoder) Position() uint64                   { return d.pos }
func (d *Decoder) LoopPoints() (start, end uint64)    { return 0, 0 }
func (d *Decoder) Close() error                       { return nil }

// Seek restarts the stream and skips ahead, AIFF data has no index.
func (d *Decoder) Seek(frame uint64) error {
	if d.frames > 0 && frame > d.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, d.frames)
	}
	if frame < d.pos {
		if d.reopen == nil {
			return fmt.Errorf("%w: stream cannot be rewound", ErrSeekOutOfRange)
		}
		src, err := d.reopen()
		if err != nil {
			return err
		}
		d.src = src
		d.pos = 0
	}

	scratch := make([]byte, 4096*d.format.FrameSize())
	for d.pos < frame {
		n, err := d.Read(scratch, int(min(frame-d.pos, 4096)))
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return fmt.Errorf("%w: frame %d", ErrSeekOutOfRange, frame)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	channels := d.format.Channels.Count()
	if d.frames > 0 {
		frames = int(min(uint64(frames), d.frames-d.pos))
	}
	if frames <= 0 {
		return 0, io.EOF
	}

	samples := frames * channels
	if cap(d.ibuf.Data) < samples {
		d.ibuf.Data = make([]int, samples)
	}
	d.ibuf.Data = d.ibuf.Data[:samples]

	n, err := d.src.PCMBuffer(d.ibuf)
	got := n / channels
	size := d.format.Type.Size()
	for i := range got * channels {
		v := d.ibuf.Data[i]
		if d.format.Type == audio.UInt8 {
			dst[i] = byte(v + 128)
			continue
		}
		if d.bitDepth > 16 {
			v >>= d.bitDepth - 16
		} else if d.bitDepth < 16 {
			v <<= 16 - d.bitDepth
		}
		binary.LittleEndian.PutUint16(dst[i*size:], uint16(int16(v)))
	}
	d.pos += uint64(got)

	if got == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return got, fmt.Errorf("%w", err)
	}
	return got, nil
}
