// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audmgr/audio"
)

// Magic opens every stream Factory accepts.
const Magic = "TEST"

const headerSize = 20

const flagUnknownLength = 1

var (
	ErrNotTestStream = errors.New("not a test stream")
	ErrInjected      = errors.New("injected decode failure")
)

// Header describes an encoded test stream.
type Header struct {
	Format        audio.Format
	Loop          audio.LoopPoints
	UnknownLength bool
}

// Encode builds a stream Factory decodes back into payload.
func Encode(h Header, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(h.Format.SampleRate))
	buf.WriteByte(byte(h.Format.Channels))
	buf.WriteByte(byte(h.Format.Type))
	var flags byte
	if h.UnknownLength {
		flags |= flagUnknownLength
	}
	buf.WriteByte(flags)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(h.Loop.Start))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(h.Loop.End))
	buf.Write(payload)
	return buf.Bytes()
}

// Ramp returns frames of format whose bytes count up, for checking that
// payloads arrive intact.
func Ramp(format audio.Format, frames int) []byte {
	out := make([]byte, frames*format.FrameSize())
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

// Factory decodes streams produced by Encode. Configure, when set, runs on
// every decoder before it is returned.
type Factory struct {
	Configure func(*Decoder)

	mu       sync.Mutex
	created  []*Decoder
	declines atomic.Int32
}

func (f *Factory) CreateDecoder(r io.ReadSeeker) (audio.Decoder, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || string(hdr[:4]) != Magic {
		f.declines.Add(1)
		return nil, ErrNotTestStream
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	h := Header{
		Format: audio.Format{
			SampleRate: int(binary.LittleEndian.Uint32(hdr[4:])),
			Channels:   audio.ChannelConfig(hdr[8]),
			Type:       audio.SampleType(hdr[9]),
		},
		Loop: audio.LoopPoints{
			Start: uint64(binary.LittleEndian.Uint32(hdr[12:])),
			End:   uint64(binary.LittleEndian.Uint32(hdr[16:])),
		},
		UnknownLength: hdr[10]&flagUnknownLength != 0,
	}

	d := NewDecoder(h, payload)
	if f.Configure != nil {
		f.Configure(d)
	}

	f.mu.Lock()
	f.created = append(f.created, d)
	f.mu.Unlock()
	return d, nil
}

// Decoders lists every decoder the factory produced.
func (f *Factory) Decoders() []*Decoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Decoder(nil), f.created...)
}

func (f *Factory) Declines() int { return int(f.declines.Load()) }

// Decoder serves frames from memory. Gate, Delay and FailAt shape how
// reads behave.
type Decoder struct {
	header Header
	data   []byte
	frames uint64

	// Gate, when set, must yield a value before every Read.
	Gate chan struct{}
	// Delay is slept before every Read.
	Delay time.Duration
	// FailAt makes Read fail once the position reaches it. Zero disables.
	FailAt uint64

	mu     sync.Mutex
	pos    uint64
	reads  atomic.Int32
	closes atomic.Int32
}

var _ audio.Decoder = (*Decoder)(nil)

func NewDecoder(h Header, payload []byte) *Decoder {
	frameSize := max(h.Format.FrameSize(), 1)
	return &Decoder{
		header: h,
		data:   payload,
		frames: uint64(len(payload) / frameSize),
	}
}

func (d *Decoder) SampleRate() int                    { return d.header.Format.SampleRate }
func (d *Decoder) ChannelConfig() audio.ChannelConfig { return d.header.Format.Channels }
func (d *Decoder) SampleType() audio.SampleType       { return d.header.Format.Type }

func (d *Decoder) Length() uint64 {
	if d.header.UnknownLength {
		return 0
	}
	return d.frames
}

func (d *Decoder) LoopPoints() (uint64, uint64) {
	return d.header.Loop.Start, d.header.Loop.End
}

func (d *Decoder) Position() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *Decoder) Seek(frame uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame > d.frames {
		return fmt.Errorf("seek to %d past %d frames", frame, d.frames)
	}
	d.pos = frame
	return nil
}

func (d *Decoder) Read(dst []byte, frames int) (int, error) {
	if d.Gate != nil {
		<-d.Gate
	}
	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}
	d.reads.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailAt > 0 && d.pos >= d.FailAt {
		return 0, ErrInjected
	}

	frameSize := d.header.Format.FrameSize()
	n := min(uint64(frames), d.frames-d.pos)
	if d.FailAt > 0 {
		n = min(n, d.FailAt-d.pos)
	}
	if n == 0 {
		return 0, io.EOF
	}
	copy(dst, d.data[d.pos*uint64(frameSize):(d.pos+n)*uint64(frameSize)])
	d.pos += n
	return int(n), nil
}

func (d *Decoder) Close() error {
	d.closes.Add(1)
	return nil
}

func (d *Decoder) Reads() int  { return int(d.reads.Load()) }
func (d *Decoder) Closes() int { return int(d.closes.Load()) }
