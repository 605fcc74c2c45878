// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/ik5/audmgr/audio"
)

// Memory is a device that keeps buffers in memory and only moves playback
// forward when Advance is called. It backs tests and the null output.
type Memory struct {
	mu sync.Mutex

	name        string
	maxVoices   int
	threadLocal bool
	unsupported []audio.Format
	bufferLimit int
	connected   bool

	nextBuffer BufferID
	nextVoice  VoiceID
	buffers    map[BufferID]*memBuffer
	voices     map[VoiceID]*memVoice
	peakVoices int
}

type memBuffer struct {
	format audio.Format
	data   []byte
	frames uint64
	loop   audio.LoopPoints
}

type memVoice struct {
	buffer  BufferID
	stream  io.Reader
	format  audio.Format
	looping bool
	playing bool
	offset  uint64
}

// MemoryOption configures a Memory device.
type MemoryOption func(*Memory)

// WithThreadLocalContexts makes the device report thread-local context
// support.
func WithThreadLocalContexts() MemoryOption {
	return func(m *Memory) { m.threadLocal = true }
}

// WithUnsupported marks a channel layout and sample type pair as
// unplayable.
func WithUnsupported(chans audio.ChannelConfig, typ audio.SampleType) MemoryOption {
	return func(m *Memory) {
		m.unsupported = append(m.unsupported, audio.Format{Channels: chans, Type: typ})
	}
}

// WithBufferLimit caps the number of live buffers; NewBuffer fails with
// ErrOutOfMemory beyond it.
func WithBufferLimit(n int) MemoryOption {
	return func(m *Memory) { m.bufferLimit = n }
}

func WithName(name string) MemoryOption {
	return func(m *Memory) { m.name = name }
}

func NewMemory(maxVoices int, opts ...MemoryOption) *Memory {
	m := &Memory{
		name:      "memory",
		maxVoices: maxVoices,
		connected: true,
		buffers:   make(map[BufferID]*memBuffer),
		voices:    make(map[VoiceID]*memVoice),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Name() string              { return m.name }
func (m *Memory) MaxVoices() int            { return m.maxVoices }
func (m *Memory) ThreadLocalContexts() bool { return m.threadLocal }

func (m *Memory) Supports(chans audio.ChannelConfig, typ audio.SampleType) bool {
	if chans.Count() == 0 || typ.Size() == 0 {
		return false
	}
	return !slices.ContainsFunc(m.unsupported, func(f audio.Format) bool {
		return f.Channels == chans && f.Type == typ
	})
}

func (m *Memory) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetConnected simulates unplugging or replugging the device.
func (m *Memory) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *Memory) NewBuffer() (BufferID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bufferLimit > 0 && len(m.buffers) >= m.bufferLimit {
		return 0, ErrOutOfMemory
	}
	m.nextBuffer++
	m.buffers[m.nextBuffer] = &memBuffer{}
	return m.nextBuffer, nil
}

func (m *Memory) BufferData(id BufferID, format audio.Format, data []byte) error {
	if !m.Supports(format.Channels, format.Type) {
		return fmt.Errorf("%w: %s", ErrUnsupported, format)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if m.attachedLocked(id) {
		return fmt.Errorf("%w: %d", ErrBufferAttached, id)
	}
	b.format = format
	b.data = slices.Clone(data)
	b.frames = uint64(len(data) / max(format.FrameSize(), 1))
	b.loop = audio.LoopPoints{End: b.frames}
	return nil
}

func (m *Memory) SetLoopPoints(id BufferID, loop audio.LoopPoints) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if loop.Start >= loop.End || loop.End > b.frames {
		return fmt.Errorf("invalid loop points %d-%d for %d frames", loop.Start, loop.End, b.frames)
	}
	b.loop = loop
	return nil
}

func (m *Memory) DeleteBuffer(id BufferID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buffers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if m.attachedLocked(id) {
		return fmt.Errorf("%w: %d", ErrBufferAttached, id)
	}
	delete(m.buffers, id)
	return nil
}

func (m *Memory) attachedLocked(id BufferID) bool {
	for _, v := range m.voices {
		if v.playing && v.stream == nil && v.buffer == id {
			return true
		}
	}
	return false
}

func (m *Memory) NewVoice() (VoiceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.voices) >= m.maxVoices {
		return 0, ErrVoicesExhausted
	}
	m.nextVoice++
	m.voices[m.nextVoice] = &memVoice{}
	m.peakVoices = max(m.peakVoices, len(m.voices))
	return m.nextVoice, nil
}

func (m *Memory) DeleteVoice(id VoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.voices[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, id)
	}
	delete(m.voices, id)
	return nil
}

func (m *Memory) Play(id VoiceID, buf BufferID, looping bool, offset uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, id)
	}
	b, ok := m.buffers[buf]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, buf)
	}
	*v = memVoice{
		buffer:  buf,
		format:  b.format,
		looping: looping,
		playing: b.frames > 0,
		offset:  min(offset, b.frames),
	}
	return nil
}

func (m *Memory) PlayStream(id VoiceID, r io.Reader, format audio.Format) error {
	if !m.Supports(format.Channels, format.Type) {
		return fmt.Errorf("%w: %s", ErrUnsupported, format)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, id)
	}
	*v = memVoice{stream: r, format: format, playing: true}
	return nil
}

func (m *Memory) Stop(id VoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, id)
	}
	*v = memVoice{}
	return nil
}

func (m *Memory) IsPlaying(id VoiceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voices[id]
	return ok && v.playing
}

func (m *Memory) Offset(id VoiceID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.voices[id]; ok {
		return v.offset
	}
	return 0
}

// Advance moves every playing voice forward by frames, consuming stream
// readers and wrapping looping buffers at their loop end.
func (m *Memory) Advance(frames uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.voices {
		if !v.playing {
			continue
		}
		if v.stream != nil {
			m.advanceStream(v, frames)
			continue
		}

		b := m.buffers[v.buffer]
		pos := v.offset + frames
		switch {
		case v.looping && b.loop.End > b.loop.Start && pos >= b.loop.End:
			pos = b.loop.Start + (pos-b.loop.End)%(b.loop.End-b.loop.Start)
		case pos >= b.frames:
			pos = b.frames
			v.playing = false
		}
		v.offset = pos
	}
}

func (m *Memory) advanceStream(v *memVoice, frames uint64) {
	frameSize := uint64(v.format.FrameSize())
	buf := make([]byte, frames*frameSize)
	n, err := io.ReadFull(v.stream, buf)
	v.offset += uint64(n) / frameSize
	if err != nil && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		v.playing = false
	}
}

// Voices is the number of voices currently allocated.
func (m *Memory) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// PeakVoices is the highest number of voices ever allocated at once.
func (m *Memory) PeakVoices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakVoices
}

// Buffers is the number of live buffers.
func (m *Memory) Buffers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// BufferContents returns a copy of a buffer's payload and loop range.
func (m *Memory) BufferContents(id BufferID) ([]byte, audio.LoopPoints, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[id]
	if !ok {
		return nil, audio.LoopPoints{}, false
	}
	return slices.Clone(b.data), b.loop, true
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.voices)
	clear(m.buffers)
	return nil
}
