// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmgr/audio"
)

var (
	// switchMu serializes every change of a current slot and context
	// teardown.
	switchMu sync.Mutex
	current  atomic.Pointer[Context]
)

// MakeCurrent makes c the process-wide current context. Nil clears the slot.
func MakeCurrent(c *Context) error {
	if c != nil && c.destroyed.Load() {
		return fmt.Errorf("%w: context %s is destroyed", audio.ErrContextMisuse, c.id)
	}

	switchMu.Lock()
	defer switchMu.Unlock()

	old := current.Load()
	if old == c {
		return nil
	}

	unlock := lockActive(old, c)
	current.Store(c)
	unlock()

	old.signal()
	c.signal()
	return nil
}

// Current returns the process-wide current context, or nil.
func Current() *Context {
	return current.Load()
}

// Thread is a per-thread current slot. A context bound to a Thread takes
// precedence over the process-wide one for that Thread.
type Thread struct {
	ctx atomic.Pointer[Context]
}

func NewThread() *Thread {
	return &Thread{}
}

// MakeCurrent binds c to t. The device behind c must support thread-local
// contexts. Nil clears the slot.
func (t *Thread) MakeCurrent(c *Context) error {
	if c != nil {
		if !c.dev.ThreadLocalContexts() {
			return fmt.Errorf("%w: device %s has no thread-local contexts", audio.ErrContextMisuse, c.dev.Name())
		}
		if c.destroyed.Load() {
			return fmt.Errorf("%w: context %s is destroyed", audio.ErrContextMisuse, c.id)
		}
	}

	switchMu.Lock()
	defer switchMu.Unlock()

	old := t.ctx.Load()
	if old == c {
		return nil
	}

	unlock := lockActive(old, c)
	if old != nil {
		old.threadRefs.Add(-1)
	}
	if c != nil {
		c.threadRefs.Add(1)
	}
	t.ctx.Store(c)
	unlock()

	old.signal()
	c.signal()
	return nil
}

// Current returns the context bound to t, falling back to the process-wide
// one.
func (t *Thread) Current() *Context {
	if c := t.ctx.Load(); c != nil {
		return c
	}
	return Current()
}

// lockActive takes the active locks of both contexts in creation order so
// two concurrent swaps cannot deadlock.
func lockActive(a, b *Context) func() {
	var ctxs []*Context
	for _, c := range []*Context{a, b} {
		if c != nil {
			ctxs = append(ctxs, c)
		}
	}
	slices.SortFunc(ctxs, func(x, y *Context) int {
		return cmp.Compare(x.seq, y.seq)
	})

	for _, c := range ctxs {
		c.activeMu.Lock()
	}
	return func() {
		for i := len(ctxs) - 1; i >= 0; i-- {
			ctxs[i].activeMu.Unlock()
		}
	}
}

func (c *Context) isCurrent() bool {
	return current.Load() == c || c.threadRefs.Load() > 0
}

func (c *Context) checkCurrent() error {
	if c.destroyed.Load() {
		return fmt.Errorf("%w: context %s is destroyed", audio.ErrContextMisuse, c.id)
	}
	if !c.isCurrent() {
		return fmt.Errorf("%w: context %s is not current", audio.ErrContextMisuse, c.id)
	}
	return nil
}

// mismatched reports whether the worker must wait for c to become current
// again. Devices with thread-local contexts bind the worker's own thread.
func (c *Context) mismatched() bool {
	return !c.dev.ThreadLocalContexts() && current.Load() != c
}
