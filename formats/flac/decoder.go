// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/audmgr/audio"
)

var (
	ErrUnsupportedChannels = errors.New("only mono and stereo FLAC is supported")
	ErrSeekOutOfRange      = errors.New("seek past end of FLAC stream")
)

// flacStream is the part of flac.Stream used here, split out for tests.
type flacStream interface {
	ParseNext() (*frame.Frame, error)
	Seek(sampleNum uint64) (uint64, error)
}

// Factory probes FLAC streams through mewkiz/flac.
type Factory struct{}

func (Factory) CreateDecoder(rs io.ReadSeeker) (audio.Decoder, error) {
	stream, err := flac.NewSeek(rs)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	info := stream.Info
	return newDecoder(stream, int(info.SampleRate), int(info.NChannels), int(info.BitsPerSample), info.NSamples)
}

// Decoder produces UInt8 frames for 8-bit streams and Int16 for everything
// else, shifting wider samples down.
type Decoder struct {
	stream     flacStream
	sampleRate int
	chans      audio.ChannelConfig
	typ        audio.SampleType
	bits       int
	frames     uint64
	pos        uint64

	cur    *frame.Frame
	curOff int
}

func newDecoder(stream flacStream, sampleRate, channels, bits int, frames uint64) (*Decoder, error) {
	var chans audio.ChannelConfig
	switch channels {
	case 1:
		chans = audio.Mono
	case 2:
		chans = audio.Stereo
	default:
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannels, channels)
	}

	typ := audio.Int16
	if bits == 8 {
		typ = audio.UInt8
	}

	return &Decoder{
		stream:     stream,
		sampleRate: sampleRate,
		chans:      chans,
		typ:        typ,
		bits:       bits,
		frames:     frames,
	}, nil
}

func (d *Decoder) SampleRate() int                    { return d.sampleRate }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return d.chans }
func (d *Decoder) SampleType() audio.SampleType       { return d.typ }
func (d *Decoder) Length() uint64                     { return d.frames }
func (d *Decoder) Position() uint64                   { return d.pos }
func (d *Decoder) LoopPoints() (start, end uint64)    { return 0, 0 }

// Close is a no-op, the underlying stream belongs to the caller.
func (d *Decoder) Close() error { return nil }

func (d *Decoder) Seek(target uint64) error {
	if d.frames > 0 && target > d.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, target, d.frames)
	}

	// Seek lands on the start of the block holding target.
	at, err := d.stream.Seek(target)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	d.cur = nil
	d.curOff = 0
	d.pos = at

	if at < target {
		f, err := d.stream.ParseNext()
		if err != nil {
			return fmt.Errorf("%w", err)
		}
		d.cur = f
		d.curOff = int(min(target-at, uint64(f.BlockSize)))
		d.pos = at + uint64(d.curOff)
	}
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	channels := d.chans.Count()
	size := d.typ.Size()
	written := 0

	for written < frames {
		if d.cur == nil || d.curOff >= int(d.cur.BlockSize) {
			f, err := d.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if written > 0 {
					return written, nil
				}
				return 0, fmt.Errorf("%w", err)
			}
			if len(f.Subframes) < channels {
				return written, fmt.Errorf("%w: block has %d subframes", ErrUnsupportedChannels, len(f.Subframes))
			}
			d.cur = f
			d.curOff = 0
		}

		todo := min(frames-written, int(d.cur.BlockSize)-d.curOff)
		out := dst[written*channels*size:]
		for i := range todo {
			for c := range channels {
				v := d.cur.Subframes[c].Samples[d.curOff+i]
				idx := i*channels + c
				if d.typ == audio.UInt8 {
					out[idx] = byte(v + 0x80)
					continue
				}
				binary.LittleEndian.PutUint16(out[2*idx:], uint16(int16(d.scale(v))))
			}
		}
		d.curOff += todo
		written += todo
	}

	d.pos += uint64(written)
	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

func (d *Decoder) scale(v int32) int32 {
	if d.bits > 16 {
		return v >> (d.bits - 16)
	}
	return v << (16 - d.bits)
}
