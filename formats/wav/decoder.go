// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/ik5/audmgr/audio"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatMulaw      = 7
	formatExtensible = 0xfffe
)

// Factory probes RIFF/WAVE streams. Headers are parsed with go-audio/wav;
// sample data is handed out raw without conversion.
type Factory struct{}

func (Factory) CreateDecoder(rs io.ReadSeeker) (audio.Decoder, error) {
	wd := wav.NewDecoder(rs)
	wd.ReadInfo()
	if err := wd.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if wd.NumChans == 0 {
		return nil, ErrNotWavFile
	}

	typ, err := sampleType(wd.WavAudioFormat, wd.BitDepth)
	if err != nil {
		return nil, err
	}
	chans, ok := audio.ChannelConfigFromCount(int(wd.NumChans))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, wd.NumChans)
	}

	loop := audio.LoopPoints{}
	if wd.Metadata != nil && wd.Metadata.SamplerInfo != nil && len(wd.Metadata.SamplerInfo.Loops) > 0 {
		l := wd.Metadata.SamplerInfo.Loops[0]
		// smpl loop ends are inclusive.
		loop = audio.LoopPoints{Start: uint64(l.Start), End: uint64(l.End) + 1}
	}

	if err := wd.FwdToPCM(); err != nil || wd.PCMChunk == nil {
		return nil, errors.Join(ErrMissingData, err)
	}
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	size, err := dataSize(rs, start)
	if err != nil {
		return nil, err
	}

	format := audio.Format{SampleRate: int(wd.SampleRate), Channels: chans, Type: typ}
	return &Decoder{
		r:         rs,
		format:    format,
		dataStart: start,
		frames:    audio.BytesToFrames(size, chans, typ),
		loop:      loop,
	}, nil
}

// streamingDataSize marks a data chunk written before its length was
// known; the samples run to the end of the file.
const streamingDataSize = 0xffffffff

// dataSize reads the data chunk's declared size, which sits just before
// start, and bounds it by the bytes actually left in rs. The riff parser's
// own size rounds the streaming marker up to zero, so it is not used. rs is
// left at start.
func dataSize(rs io.ReadSeeker, start int64) (uint64, error) {
	if start < 4 {
		return 0, ErrMissingData
	}
	if _, err := rs.Seek(start-4, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	var raw [4]byte
	if _, err := io.ReadFull(rs, raw[:]); err != nil {
		return 0, errors.Join(ErrMissingData, err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w", err)
	}

	available := uint64(max(end-start, 0))
	declared := uint64(binary.LittleEndian.Uint32(raw[:]))
	if declared == streamingDataSize || declared > available {
		return available, nil
	}
	return declared, nil
}

func sampleType(tag, bits uint16) (audio.SampleType, error) {
	switch {
	case (tag == formatPCM || tag == formatExtensible) && bits == 8:
		return audio.UInt8, nil
	case (tag == formatPCM || tag == formatExtensible) && bits == 16:
		return audio.Int16, nil
	case tag == formatIEEEFloat && bits == 32:
		return audio.Float32, nil
	case tag == formatMulaw && bits == 8:
		return audio.Mulaw, nil
	default:
		return 0, fmt.Errorf("%w: format tag %#x, %d bits", ErrUnsupportedEncoding, tag, bits)
	}
}

// Decoder reads frames straight out of the data chunk.
type Decoder struct {
	r         io.ReadSeeker
	format    audio.Format
	dataStart int64
	frames    uint64
	pos       uint64
	loop      audio.LoopPoints
}

func (d *Decoder) SampleRate() int                    { return d.format.SampleRate }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return d.format.Channels }
func (d *Decoder) SampleType() audio.SampleType       { return d.format.Type }
func (d *Decoder) Length() uint64                     { return d.frames }
func (d *Decoder) Position() uint64                   { return d.pos }
func (d *Decoder) LoopPoints() (start, end uint64)    { return d.loop.Start, d.loop.End }

func (d *Decoder) Seek(frame uint64) error {
	if frame > d.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, d.frames)
	}
	off := d.dataStart + int64(frame)*int64(d.format.FrameSize())
	if _, err := d.r.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	d.pos = frame
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	left := d.frames - d.pos
	if left == 0 {
		return 0, io.EOF
	}
	want := min(uint64(frames), left)
	fs := uint64(d.format.FrameSize())

	n, err := io.ReadFull(d.r, dst[:want*fs])
	got := uint64(n) / fs
	d.pos += got

	switch {
	case err == nil:
		return int(got), nil
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		// Truncated data chunk.
		d.frames = d.pos
		if got == 0 {
			return 0, io.EOF
		}
		return int(got), nil
	default:
		return int(got), fmt.Errorf("%w", err)
	}
}

func (d *Decoder) Close() error { return nil }
