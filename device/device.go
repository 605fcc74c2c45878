// SPDX-License-Identifier: EPL-2.0

// Package device defines the hardware boundary the resource manager drives:
// buffer storage, a fixed number of voices, and playback on those voices.
package device

import (
	"errors"
	"io"

	"github.com/ik5/audmgr/audio"
)

// BufferID identifies storage allocated on a device.
type BufferID uint32

// VoiceID identifies one hardware playback channel.
type VoiceID uint32

var (
	// ErrVoicesExhausted is returned by NewVoice when every voice is out.
	ErrVoicesExhausted = errors.New("all voices allocated")
	ErrUnknownBuffer   = errors.New("unknown buffer")
	ErrUnknownVoice    = errors.New("unknown voice")
	ErrBufferAttached  = errors.New("buffer attached to a playing voice")
	ErrOutOfMemory     = errors.New("device out of buffer memory")
	ErrUnsupported     = errors.New("format not supported by device")
)

// Device is implemented by playback backends. Implementations must be safe
// for concurrent use.
type Device interface {
	Name() string
	// MaxVoices is the number of voices that can exist at once.
	MaxVoices() int
	Supports(chans audio.ChannelConfig, typ audio.SampleType) bool
	// ThreadLocalContexts reports whether a context can be bound to a single
	// thread instead of the whole process.
	ThreadLocalContexts() bool
	Connected() bool

	NewBuffer() (BufferID, error)
	BufferData(id BufferID, format audio.Format, data []byte) error
	SetLoopPoints(id BufferID, loop audio.LoopPoints) error
	DeleteBuffer(id BufferID) error

	NewVoice() (VoiceID, error)
	DeleteVoice(id VoiceID) error

	// Play starts buf on v from offset frames. A looping voice repeats the
	// buffer's loop range.
	Play(v VoiceID, buf BufferID, looping bool, offset uint64) error
	// PlayStream feeds v from r, which yields frames in format until io.EOF.
	PlayStream(v VoiceID, r io.Reader, format audio.Format) error
	Stop(v VoiceID) error
	IsPlaying(v VoiceID) bool
	// Offset is the playback position of v in frames.
	Offset(v VoiceID) uint64

	Close() error
}
