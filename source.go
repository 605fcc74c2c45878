// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"fmt"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
)

// Source is a logical playback handle. It holds a device voice only while
// playing; released sources are recycled by CreateSource.
type Source struct {
	ctx *Context
	id  uint32

	// guarded by ctx.mu
	priority int
	looping  bool
	voice    device.VoiceID
	hasVoice bool
	voiceSeq uint64
	stream   *streamState
	released bool
}

func (s *Source) reset() {
	s.priority = 0
	s.looping = false
	s.released = false
}

func (s *Source) ID() uint32 { return s.id }

func (s *Source) Priority() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.priority
}

// SetPriority sets the priority used when voices run out. Higher values
// win.
func (s *Source) SetPriority(p int) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.priority = p
}

func (s *Source) Looping() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.looping
}

// SetLooping applies to the next Play and to a stream already playing.
func (s *Source) SetLooping(looping bool) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.looping = looping
	if s.stream != nil {
		s.stream.looping.Store(looping)
	}
}

// Play starts b from its first frame. When no voice can be had the source
// stays silent and ErrNoAvailableVoices is returned.
func (s *Source) Play(b *Buffer) error {
	c := s.ctx
	if err := c.checkCurrent(); err != nil {
		return err
	}
	if b == nil || b.ctx != c {
		return fmt.Errorf("%w: buffer does not belong to context %s", audio.ErrContextMisuse, c.id)
	}
	if err := b.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	evicted, err := s.playLocked(b)
	c.mu.Unlock()

	c.reportEvicted(evicted)
	return err
}

func (s *Source) playLocked(b *Buffer) ([]*Source, error) {
	c := s.ctx
	if s.released {
		return nil, fmt.Errorf("%w: source %d was released", audio.ErrContextMisuse, s.id)
	}
	if b.removed {
		return nil, fmt.Errorf("%w: buffer %s was removed", audio.ErrContextMisuse, b.name)
	}

	c.stopLocked(s)

	var evicted []*Source
	if !s.hasVoice {
		var err error
		evicted, err = c.allocateVoiceLocked(s)
		if err != nil {
			return evicted, err
		}
	}

	c.relations.bind(s.id, b)
	if err := c.dev.Play(s.voice, b.devID, s.looping, 0); err != nil {
		c.relations.unbind(s.id)
		c.releaseVoiceLocked(s)
		return evicted, fmt.Errorf("failed to play %s on source %d: %w", b.name, s.id, err)
	}
	return evicted, nil
}

// PlayStream plays dec through a decode-ahead window of queueSize chunks of
// chunkFrames frames, refilled by the worker. The source takes ownership of
// dec, closing it when the stream stops or on error.
func (s *Source) PlayStream(dec audio.Decoder, chunkFrames, queueSize int) error {
	c := s.ctx
	if err := c.checkCurrent(); err != nil {
		return err
	}
	if dec == nil {
		return fmt.Errorf("%w: nil decoder", audio.ErrContextMisuse)
	}
	if chunkFrames < 1 || queueSize < 2 {
		_ = dec.Close()
		return fmt.Errorf("%w: %d chunks of %d frames", ErrInvalidStreamWindow, queueSize, chunkFrames)
	}

	format := audio.FormatOf(dec)
	if err := c.checkFormat("stream", format); err != nil {
		_ = dec.Close()
		return err
	}

	st := newStreamState(s.id, dec, chunkFrames, queueSize, s.Looping())
	if _, err := st.refill(); err != nil {
		_ = st.close()
		return fmt.Errorf("failed to prefill stream on source %d: %w", s.id, err)
	}

	if _, err := c.startWorker(); err != nil {
		_ = st.close()
		return err
	}

	c.mu.Lock()
	evicted, err := s.playStreamLocked(st)
	c.mu.Unlock()

	c.reportEvicted(evicted)
	if err != nil {
		return err
	}
	c.signal()
	return nil
}

func (s *Source) playStreamLocked(st *streamState) ([]*Source, error) {
	c := s.ctx
	if s.released {
		_ = st.close()
		return nil, fmt.Errorf("%w: source %d was released", audio.ErrContextMisuse, s.id)
	}

	c.stopLocked(s)

	var evicted []*Source
	if !s.hasVoice {
		var err error
		evicted, err = c.allocateVoiceLocked(s)
		if err != nil {
			_ = st.close()
			return evicted, err
		}
	}

	if err := c.dev.PlayStream(s.voice, st.reader(), st.format); err != nil {
		_ = st.close()
		c.releaseVoiceLocked(s)
		return evicted, fmt.Errorf("failed to start stream on source %d: %w", s.id, err)
	}
	s.stream = st

	c.streamMu.Lock()
	c.streaming = append(c.streaming, st)
	c.metrics.SetStreamingSources(len(c.streaming))
	c.streamMu.Unlock()
	return evicted, nil
}

// Stop halts playback and returns the voice to the pool. It does not
// report the source stopped.
func (s *Source) Stop() error {
	c := s.ctx
	if err := c.checkCurrent(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.released {
		return fmt.Errorf("%w: source %d was released", audio.ErrContextMisuse, s.id)
	}
	c.stopLocked(s)
	c.releaseVoiceLocked(s)
	return nil
}

func (s *Source) IsPlaying() bool {
	c := s.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.hasVoice && c.dev.IsPlaying(s.voice)
}

// Offset is the playback position in frames.
func (s *Source) Offset() uint64 {
	c := s.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if !s.hasVoice {
		return 0
	}
	return c.dev.Offset(s.voice)
}

// Buffer returns the buffer s plays, or nil.
func (s *Source) Buffer() *Buffer {
	c := s.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relations.bufferOf(s.id)
}

// LoopPoints is the loop range in effect for the buffer or stream s plays.
func (s *Source) LoopPoints() audio.LoopPoints {
	c := s.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.stream != nil {
		return s.stream.loop
	}
	if b := c.relations.bufferOf(s.id); b != nil {
		return b.loop
	}
	return audio.LoopPoints{}
}

// Release stops s and hands it back for reuse. The handle must not be
// used afterwards.
func (s *Source) Release() error {
	c := s.ctx
	if err := c.checkCurrent(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.released {
		return fmt.Errorf("%w: source %d was released", audio.ErrContextMisuse, s.id)
	}
	c.releaseSourceLocked(s)
	return nil
}

func (c *Context) reportEvicted(evicted []*Source) {
	if len(evicted) == 0 {
		return
	}
	h := c.messages()
	for _, s := range evicted {
		h.SourceStopped(s, true)
	}
}
