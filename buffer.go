// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
)

// LoadStatus is the state of a buffer's decode.
type LoadStatus int32

const (
	Pending LoadStatus = iota
	Ready
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int32(s))
	}
}

// Buffer is a named, decoded asset held by the device. Once Ready its
// payload never changes.
type Buffer struct {
	ctx    *Context
	name   string
	key    uint64
	devID  device.BufferID
	format audio.Format

	status atomic.Int32
	frames atomic.Uint64
	size   atomic.Uint64

	// guarded by ctx.mu
	loop    audio.LoopPoints
	removed bool
}

func newBuffer(c *Context, name string, id device.BufferID, format audio.Format) *Buffer {
	return &Buffer{
		ctx:    c,
		name:   name,
		key:    nameKey(name),
		devID:  id,
		format: format,
	}
}

func (b *Buffer) Name() string         { return b.name }
func (b *Buffer) Format() audio.Format { return b.format }

// LoadStatus is safe to poll from any goroutine. A Ready result makes the
// buffer's length, size and loop points visible.
func (b *Buffer) LoadStatus() LoadStatus {
	return LoadStatus(b.status.Load())
}

// Length is the frame count, or 0 until the buffer is Ready.
func (b *Buffer) Length() uint64 { return b.frames.Load() }

// Size is the payload size in bytes, or 0 until the buffer is Ready.
func (b *Buffer) Size() uint64 { return b.size.Load() }

func (b *Buffer) Duration() time.Duration {
	if b.format.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Length()) * time.Second / time.Duration(b.format.SampleRate)
}

func (b *Buffer) LoopPoints() audio.LoopPoints {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.loop
}

// SetLoopPoints changes the loop range of a Ready buffer no source is
// using.
func (b *Buffer) SetLoopPoints(lp audio.LoopPoints) error {
	if err := b.ctx.checkCurrent(); err != nil {
		return err
	}
	if err := b.ready(); err != nil {
		return err
	}

	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()

	if n := b.ctx.relations.refs(b); n > 0 {
		return fmt.Errorf("%w: %s has %d sources", audio.ErrBufferInUse, b.name, n)
	}
	if lp.Start >= lp.End || lp.End > b.Length() {
		return fmt.Errorf("%w: %d-%d for %d frames", audio.ErrInvalidLoopPoints, lp.Start, lp.End, b.Length())
	}
	if err := b.ctx.dev.SetLoopPoints(b.devID, lp); err != nil {
		return fmt.Errorf("failed to set loop points on %s: %w", b.name, err)
	}
	b.loop = lp
	return nil
}

// Sources returns the sources currently playing b.
func (b *Buffer) Sources() []*Source {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()

	ids := b.ctx.relations.sourcesOf(b)
	out := make([]*Source, 0, len(ids))
	for _, id := range ids {
		if s := b.ctx.sourceLocked(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (b *Buffer) IsInUse() bool {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.ctx.relations.refs(b) > 0
}

func (b *Buffer) ready() error {
	switch b.LoadStatus() {
	case Ready:
		return nil
	case Failed:
		return fmt.Errorf("%w: %s", audio.ErrBufferLoadFailed, b.name)
	default:
		return fmt.Errorf("%w: %s", audio.ErrBufferNotReady, b.name)
	}
}
