// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/ik5/audmgr/audio"
)

// WorkerState is what the background worker is doing.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerDraining
	WorkerRefilling
	WorkerContextMismatch
	WorkerTerminating
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerDraining:
		return "Draining"
	case WorkerRefilling:
		return "Refilling"
	case WorkerContextMismatch:
		return "ContextMismatch"
	case WorkerTerminating:
		return "Terminating"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// loadJob is a queued asynchronous buffer load. The worker owns dec once
// the job is dequeued.
type loadJob struct {
	buf    *Buffer
	dec    audio.Decoder
	format audio.Format
	frames uint64
	loop   audio.LoopPoints
}

// WorkerState reports the worker's current state. A worker that was never
// started is Idle.
func (c *Context) WorkerState() WorkerState {
	return WorkerState(c.state.Load())
}

func (c *Context) setState(s WorkerState) {
	if WorkerState(c.state.Swap(int32(s))) == s {
		return
	}
	if c.cfg.OnWorkerState != nil {
		c.cfg.OnWorkerState(s)
	}
}

// startWorker launches the worker on first use and returns the context
// that is cancelled when it stops.
func (c *Context) startWorker() (context.Context, error) {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()

	if c.destroyed.Load() {
		return nil, fmt.Errorf("%w: context %s is destroyed", audio.ErrContextMisuse, c.id)
	}
	if c.cancel == nil {
		c.runCtx, c.cancel = context.WithCancel(context.Background())
		c.wg.Add(1)
		go c.run(c.runCtx)
		c.logger.Debug("worker started")
	}
	return c.runCtx, nil
}

func (c *Context) stopWorker() {
	c.workerMu.Lock()
	cancel := c.cancel
	c.workerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.signal()
	c.wg.Wait()
	c.logger.Debug("worker stopped")
}

// run refills streams and loads at most one queued buffer per pass, so a
// long decode never holds off the next refill. It sleeps only once the
// queue is empty. Only refills and uploads run under activeMu.
func (c *Context) run(ctx context.Context) {
	defer c.wg.Done()
	defer c.setState(WorkerTerminating)

	var next time.Time
	for ctx.Err() == nil {
		c.activeMu.Lock()
		if c.mismatched() {
			c.activeMu.Unlock()
			c.setState(WorkerContextMismatch)
			c.wait(ctx, &next)
			continue
		}

		c.setState(WorkerRefilling)
		c.refillStreams()
		c.metrics.RecordWorkerCycle()

		job, ok := c.queue.TryPop()
		c.activeMu.Unlock()
		if ok {
			c.setState(WorkerDraining)
			c.loadJob(ctx, job, &next)
			continue
		}

		c.setState(WorkerIdle)
		c.wait(ctx, &next)
	}
}

// lockCurrent takes activeMu once c is current again. It reports false,
// without the lock, if the worker is stopped first.
func (c *Context) lockCurrent(ctx context.Context, next *time.Time) bool {
	for {
		c.activeMu.Lock()
		if !c.mismatched() {
			return true
		}
		c.activeMu.Unlock()
		c.setState(WorkerContextMismatch)
		c.wait(ctx, next)
		if ctx.Err() != nil {
			return false
		}
	}
}

// wait blocks until signaled, cancelled or, with a wake interval set, the
// next tick of a fixed grid anchored at the first wait.
func (c *Context) wait(ctx context.Context, next *time.Time) {
	interval := time.Duration(c.wakeInterval.Load())
	if interval <= 0 {
		select {
		case <-ctx.Done():
		case <-c.wake:
		}
		return
	}

	now := time.Now()
	if next.IsZero() {
		*next = now
	}
	for !next.After(now) {
		*next = next.Add(interval)
	}

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-c.wake:
	case <-timer.C:
	}
}

// loadJob decodes and notifies without holding activeMu, then takes it
// only for the upload.
func (c *Context) loadJob(ctx context.Context, job loadJob, next *time.Time) {
	b := job.buf
	start := time.Now()

	data, frames, err := decodeAll(job.dec, job.frames)
	c.closeDecoder(b.name, job.dec)
	if err == nil && frames == 0 {
		err = fmt.Errorf("%w: %s", audio.ErrNoSamples, b.name)
	}

	var loop audio.LoopPoints
	if err == nil {
		c.messages().BufferLoading(b.name, job.format.Channels, job.format.Type, job.format.SampleRate, data)

		if !c.lockCurrent(ctx, next) {
			b.status.Store(int32(Failed))
			c.metrics.RecordDiscardedLoad()
			return
		}
		c.setState(WorkerDraining)
		loop, err = c.upload(b.devID, job.format, data, job.loop)
		c.activeMu.Unlock()
	}

	c.metrics.RecordWorkerJob()
	c.metrics.RecordBufferLoad("async", err, time.Since(start).Seconds())
	if err != nil {
		b.status.Store(int32(Failed))
		c.logger.Error("failed to load buffer", "name", b.name, "error", err)
		return
	}

	c.mu.Lock()
	b.loop = loop
	c.mu.Unlock()
	b.frames.Store(frames)
	b.size.Store(uint64(len(data)))
	b.status.Store(int32(Ready))

	c.logger.Debug("buffer loaded",
		"name", b.name,
		"frames", frames,
		"path", "async",
		"duration", time.Since(start))
}

// discardJob drops a job that never ran.
func (c *Context) discardJob(job loadJob) {
	c.closeDecoder(job.buf.name, job.dec)
	job.buf.status.Store(int32(Failed))
	c.metrics.RecordDiscardedLoad()
}
