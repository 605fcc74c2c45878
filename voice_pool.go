// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
)

// allocateVoiceLocked binds a voice to s. Recycled voices are used first,
// then fresh device voices. When the device is out of voices, the bound
// source with the lowest priority below s's is stopped and its voice taken;
// ties go to the source that got its voice first. The evicted sources are
// returned so the caller can report them once mu is released.
func (c *Context) allocateVoiceLocked(s *Source) ([]*Source, error) {
	var evicted []*Source
	for {
		if n := len(c.freeVoices); n > 0 {
			c.bindVoiceLocked(s, c.freeVoices[n-1])
			c.freeVoices = c.freeVoices[:n-1]
			return evicted, nil
		}

		v, err := c.dev.NewVoice()
		if err == nil {
			c.bindVoiceLocked(s, v)
			return evicted, nil
		}
		if !errors.Is(err, device.ErrVoicesExhausted) {
			return evicted, fmt.Errorf("%w: %w", audio.ErrHardwareAllocationFailed, err)
		}

		victim := c.evictionCandidateLocked(s)
		if victim == nil {
			return evicted, fmt.Errorf("%w: priority %d", audio.ErrNoAvailableVoices, s.priority)
		}
		c.logger.Debug("evicting source",
			"source", victim.id,
			"priority", victim.priority,
			"for_source", s.id,
			"for_priority", s.priority)
		c.stopLocked(victim)
		c.releaseVoiceLocked(victim)
		c.metrics.RecordEviction()
		evicted = append(evicted, victim)
	}
}

func (c *Context) evictionCandidateLocked(s *Source) *Source {
	var victim *Source
	for _, cand := range c.sources {
		if cand == s || !cand.hasVoice || cand.priority >= s.priority {
			continue
		}
		if victim == nil ||
			cand.priority < victim.priority ||
			(cand.priority == victim.priority && cand.voiceSeq < victim.voiceSeq) {
			victim = cand
		}
	}
	return victim
}

func (c *Context) bindVoiceLocked(s *Source, v device.VoiceID) {
	c.voiceSeq++
	s.voice = v
	s.hasVoice = true
	s.voiceSeq = c.voiceSeq
}

// releaseVoiceLocked returns s's voice to the recycle pool.
func (c *Context) releaseVoiceLocked(s *Source) {
	if !s.hasVoice {
		return
	}
	if err := c.dev.Stop(s.voice); err != nil {
		c.logger.Warn("failed to stop voice", "voice", s.voice, "error", err)
	}
	c.freeVoices = append(c.freeVoices, s.voice)
	s.hasVoice = false
	s.voice = 0
}

// CreateSource returns an idle source, reusing a released one if possible.
func (c *Context) CreateSource() (*Source, error) {
	if err := c.checkCurrent(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var s *Source
	if n := len(c.freeSources); n > 0 {
		s = c.freeSources[n-1]
		c.freeSources = c.freeSources[:n-1]
		s.reset()
	} else {
		c.nextSourceID++
		s = &Source{ctx: c, id: c.nextSourceID}
	}

	i, _ := slices.BinarySearchFunc(c.sources, s.id, compareSourceID)
	c.sources = slices.Insert(c.sources, i, s)
	return s, nil
}

func (c *Context) sourceLocked(id uint32) *Source {
	if i, ok := slices.BinarySearchFunc(c.sources, id, compareSourceID); ok {
		return c.sources[i]
	}
	return nil
}

func compareSourceID(s *Source, id uint32) int {
	switch {
	case s.id < id:
		return -1
	case s.id > id:
		return 1
	default:
		return 0
	}
}

func (c *Context) releaseSourceLocked(s *Source) {
	c.stopLocked(s)
	c.releaseVoiceLocked(s)
	if i, ok := slices.BinarySearchFunc(c.sources, s.id, compareSourceID); ok {
		c.sources = slices.Delete(c.sources, i, i+1)
	}
	s.released = true
	c.freeSources = append(c.freeSources, s)
}

// stopLocked halts whatever s plays and detaches its buffer or stream. The
// voice stays bound.
func (c *Context) stopLocked(s *Source) {
	if s.stream != nil {
		c.streamMu.Lock()
		c.streaming = slices.DeleteFunc(c.streaming, func(st *streamState) bool { return st == s.stream })
		c.metrics.SetStreamingSources(len(c.streaming))
		c.streamMu.Unlock()

		if err := s.stream.close(); err != nil {
			c.logger.Warn("failed to close stream decoder", "source", s.id, "error", err)
		}
		s.stream = nil
	}
	if s.hasVoice {
		if err := c.dev.Stop(s.voice); err != nil {
			c.logger.Warn("failed to stop voice", "voice", s.voice, "error", err)
		}
	}
	c.relations.unbind(s.id)
}
