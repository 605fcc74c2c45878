// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/audmgr/audio"
)

var (
	ErrUnsupportedChannels = errors.New("unsupported Vorbis channel count")
	ErrSeekOutOfRange      = errors.New("seek past end of Vorbis stream")
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	SetPosition(pos int64) error
	// Read fills p with interleaved samples and returns how many it wrote.
	Read(p []float32) (int, error)
}

// Factory probes Ogg Vorbis streams through oggvorbis.
type Factory struct{}

func (Factory) CreateDecoder(rs io.ReadSeeker) (audio.Decoder, error) {
	r, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return newDecoder(r)
}

// Decoder yields 32-bit float frames.
type Decoder struct {
	dec    oggReader
	chans  audio.ChannelConfig
	frames uint64
	pos    uint64
	fbuf   []float32
}

func newDecoder(r oggReader) (*Decoder, error) {
	chans, ok := audio.ChannelConfigFromCount(r.Channels())
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, r.Channels())
	}
	var frames uint64
	if n := r.Length(); n > 0 {
		frames = uint64(n)
	}
	return &Decoder{dec: r, chans: chans, frames: frames}, nil
}

func (d *Decoder) SampleRate() int                    { return d.dec.SampleRate() }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return d.chans }
func (d *Decoder) SampleType() audio.SampleType       { return audio.Float32 }
func (d *Decoder) Length() uint64                     { return d.frames }
func (d *Decoder) Position() uint64                   { return d.pos }
func (d *Decoder) LoopPoints() (start, end uint64)    { return 0, 0 }
func (d *Decoder) Close() error                       { return nil }

func (d *Decoder) Seek(frame uint64) error {
	if d.frames > 0 && frame > d.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, d.frames)
	}
	if err := d.dec.SetPosition(int64(frame)); err != nil {
		return fmt.Errorf("%w", err)
	}
	d.pos = frame
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	channels := d.chans.Count()
	if d.frames > 0 {
		frames = int(min(uint64(frames), d.frames-d.pos))
	}
	if frames <= 0 {
		return 0, io.EOF
	}

	samples := frames * channels
	if cap(d.fbuf) < samples {
		d.fbuf = make([]float32, samples)
	}
	d.fbuf = d.fbuf[:samples]

	total := 0
	var err error
	for total < samples {
		var n int
		n, err = d.dec.Read(d.fbuf[total:])
		total += n
		if err != nil || n == 0 {
			break
		}
	}

	got := total / channels
	for i, v := range d.fbuf[:got*channels] {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
	d.pos += uint64(got)

	switch {
	case err == nil || errors.Is(err, io.EOF):
		if got == 0 {
			return 0, io.EOF
		}
		return got, nil
	default:
		return got, fmt.Errorf("%w", err)
	}
}
