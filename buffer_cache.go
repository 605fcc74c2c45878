// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
)

const (
	// decodeChunkFrames is how many frames a whole-buffer decode reads at once.
	decodeChunkFrames = 4096
	// decodeReserveBytes caps the memory reserved from a decoder's length
	// before any frame is read. Larger payloads grow as they decode.
	decodeReserveBytes = 16 << 20
)

func nameKey(name string) uint64 {
	return xxhash.Sum64String(name)
}

func compareBuffer(b *Buffer, key uint64, name string) int {
	if c := cmp.Compare(b.key, key); c != 0 {
		return c
	}
	return cmp.Compare(b.name, name)
}

func (c *Context) findLocked(name string) (int, bool) {
	key := nameKey(name)
	return slices.BinarySearchFunc(c.buffers, name, func(b *Buffer, name string) int {
		return compareBuffer(b, key, name)
	})
}

func (c *Context) lookupLocked(name string) *Buffer {
	if i, ok := c.findLocked(name); ok {
		return c.buffers[i]
	}
	return nil
}

func (c *Context) insertLocked(b *Buffer) {
	i, _ := c.findLocked(b.name)
	c.buffers = slices.Insert(c.buffers, i, b)
}

func (c *Context) deleteLocked(b *Buffer) bool {
	i, ok := c.findLocked(b.name)
	if !ok || c.buffers[i] != b {
		return false
	}
	c.buffers = slices.Delete(c.buffers, i, i+1)
	b.removed = true
	return true
}

// FindBuffer returns the cached buffer called name without loading it.
func (c *Context) FindBuffer(name string) *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(name)
}

// GetBuffer returns the Ready buffer called name, decoding and uploading it
// on a cache miss. A hit on a buffer still loading in the background waits
// for the load to finish.
func (c *Context) GetBuffer(name string) (*Buffer, error) {
	if err := c.checkCurrent(); err != nil {
		return nil, err
	}

	if b := c.FindBuffer(name); b != nil {
		c.metrics.RecordCacheLookup(true)
		if err := waitLoaded(b); err != nil {
			return nil, err
		}
		return b, nil
	}
	c.metrics.RecordCacheLookup(false)

	start := time.Now()
	b, err := c.loadBuffer(name)
	c.metrics.RecordBufferLoad("sync", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing := c.lookupLocked(name); existing != nil {
		c.mu.Unlock()
		// Lost a race with another loader of the same name.
		c.deleteDeviceBuffer(b.devID)
		if err := waitLoaded(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	c.insertLocked(b)
	c.mu.Unlock()

	c.logger.Debug("buffer loaded", "name", name, "frames", b.Length(), "path", "sync")
	return b, nil
}

func (c *Context) loadBuffer(name string) (*Buffer, error) {
	dec, err := c.CreateDecoder(name)
	if err != nil {
		return nil, err
	}
	defer c.closeDecoder(name, dec)

	format := audio.FormatOf(dec)
	if err := c.checkFormat(name, format); err != nil {
		return nil, err
	}

	data, frames, err := decodeAll(dec, dec.Length())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if frames == 0 {
		return nil, fmt.Errorf("%w: %s", audio.ErrNoSamples, name)
	}

	start, end := dec.LoopPoints()
	c.messages().BufferLoading(name, format.Channels, format.Type, format.SampleRate, data)

	id, err := c.dev.NewBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrHardwareAllocationFailed, name, err)
	}
	loop, err := c.upload(id, format, data, audio.LoopPoints{Start: start, End: end})
	if err != nil {
		c.deleteDeviceBuffer(id)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	b := newBuffer(c, name, id, format)
	b.loop = loop
	b.frames.Store(frames)
	b.size.Store(uint64(len(data)))
	b.status.Store(int32(Ready))
	return b, nil
}

// GetBufferAsync returns the buffer called name without waiting for it to
// load. A miss validates the resource, inserts a Pending buffer and queues
// the decode for the worker; poll LoadStatus for the outcome.
func (c *Context) GetBufferAsync(name string) (*Buffer, error) {
	if err := c.checkCurrent(); err != nil {
		return nil, err
	}

	if b := c.FindBuffer(name); b != nil {
		c.metrics.RecordCacheLookup(true)
		return b, nil
	}
	c.metrics.RecordCacheLookup(false)

	dec, err := c.CreateDecoder(name)
	if err != nil {
		return nil, err
	}

	format := audio.FormatOf(dec)
	if err := c.checkFormat(name, format); err != nil {
		c.closeDecoder(name, dec)
		return nil, err
	}
	frames := dec.Length()
	if frames == 0 {
		c.closeDecoder(name, dec)
		return nil, fmt.Errorf("%w: %s", audio.ErrNoSamples, name)
	}

	id, err := c.dev.NewBuffer()
	if err != nil {
		c.closeDecoder(name, dec)
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrHardwareAllocationFailed, name, err)
	}

	b := newBuffer(c, name, id, format)
	c.mu.Lock()
	if existing := c.lookupLocked(name); existing != nil {
		c.mu.Unlock()
		c.closeDecoder(name, dec)
		c.deleteDeviceBuffer(id)
		return existing, nil
	}
	c.insertLocked(b)
	c.mu.Unlock()

	start, end := dec.LoopPoints()
	job := loadJob{
		buf:    b,
		dec:    dec,
		format: format,
		frames: frames,
		loop:   audio.LoopPoints{Start: start, End: end},
	}
	if err := c.enqueue(job); err != nil {
		b.status.Store(int32(Failed))
		c.closeDecoder(name, dec)
		c.mu.Lock()
		c.deleteLocked(b)
		c.mu.Unlock()
		c.deleteDeviceBuffer(id)
		c.metrics.RecordBufferLoad("async", err, 0)
		return nil, fmt.Errorf("failed to queue %s: %w", name, err)
	}

	c.logger.Debug("buffer queued", "name", name, "frames", frames)
	return b, nil
}

func (c *Context) enqueue(job loadJob) error {
	runCtx, err := c.startWorker()
	if err != nil {
		return err
	}

	ctx := runCtx
	if c.cfg.EnqueueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(runCtx, c.cfg.EnqueueTimeout)
		defer cancel()
	}

	if err := c.queue.Push(ctx, job); err != nil {
		return err
	}
	c.metrics.RecordQueuedLoad()
	c.signal()
	return nil
}

// RemoveBuffer drops the buffer called name from the cache and frees its
// device storage. Unknown names are ignored.
func (c *Context) RemoveBuffer(name string) error {
	if err := c.checkCurrent(); err != nil {
		return err
	}
	b := c.FindBuffer(name)
	if b == nil {
		return nil
	}
	return c.RemoveBufferHandle(b)
}

// RemoveBufferHandle is RemoveBuffer for a buffer handle. A buffer still
// loading is waited on first. It fails with ErrBufferInUse while any
// source plays b.
func (c *Context) RemoveBufferHandle(b *Buffer) error {
	if err := c.checkCurrent(); err != nil {
		return err
	}
	if b == nil || b.ctx != c {
		return fmt.Errorf("%w: buffer does not belong to context %s", audio.ErrContextMisuse, c.id)
	}

	for b.LoadStatus() == Pending {
		runtime.Gosched()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.relations.refs(b); n > 0 {
		return fmt.Errorf("%w: %s has %d sources", audio.ErrBufferInUse, b.name, n)
	}
	if !c.deleteLocked(b) {
		return nil
	}
	if err := c.dev.DeleteBuffer(b.devID); err != nil {
		return fmt.Errorf("failed to delete device buffer for %s: %w", b.name, err)
	}
	c.logger.Debug("buffer removed", "name", b.name)
	return nil
}

// waitLoaded yields until b leaves Pending.
func waitLoaded(b *Buffer) error {
	for b.LoadStatus() == Pending {
		runtime.Gosched()
	}
	if b.LoadStatus() == Failed {
		return fmt.Errorf("%w: %s", audio.ErrBufferLoadFailed, b.name)
	}
	return nil
}

// decodeAll reads dec to the end. hint is the expected frame count, or 0.
// It comes from the stream header and is only trusted up to
// decodeReserveBytes.
func decodeAll(dec audio.Decoder, hint uint64) ([]byte, uint64, error) {
	format := audio.FormatOf(dec)
	frameSize := format.FrameSize()
	if frameSize == 0 {
		return nil, 0, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, format)
	}

	reserve := min(hint, uint64(decodeReserveBytes/frameSize))
	data := make([]byte, 0, reserve*uint64(frameSize))
	chunk := make([]byte, decodeChunkFrames*frameSize)
	var frames uint64
	for {
		n, err := dec.Read(chunk, decodeChunkFrames)
		if n > 0 {
			data = append(data, chunk[:n*frameSize]...)
			frames += uint64(n)
		}
		if errors.Is(err, io.EOF) {
			return data, frames, nil
		}
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// A decoder making no progress is done.
			return data, frames, nil
		}
	}
}

// upload fills device buffer id and applies the clamped loop range.
func (c *Context) upload(id device.BufferID, format audio.Format, data []byte, lp audio.LoopPoints) (audio.LoopPoints, error) {
	if err := c.dev.BufferData(id, format, data); err != nil {
		return audio.LoopPoints{}, fmt.Errorf("%w: %w", audio.ErrHardwareAllocationFailed, err)
	}
	frames := uint64(len(data) / format.FrameSize())
	loop := lp.Clamp(frames)
	if err := c.dev.SetLoopPoints(id, loop); err != nil {
		return audio.LoopPoints{}, fmt.Errorf("%w: %w", audio.ErrHardwareAllocationFailed, err)
	}
	return loop, nil
}

func (c *Context) deleteDeviceBuffer(id device.BufferID) {
	if err := c.dev.DeleteBuffer(id); err != nil {
		c.logger.Warn("failed to delete device buffer", "buffer", id, "error", err)
	}
}

func (c *Context) closeDecoder(name string, dec audio.Decoder) {
	if err := dec.Close(); err != nil {
		c.logger.Warn("failed to close decoder", "name", name, "error", err)
	}
}
