// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/ik5/audmgr/audio"
)

// streamState feeds a voice from a decoder through a ring of decoded
// frames. The worker writes whole chunks; the device reads frames.
type streamState struct {
	source      uint32
	dec         audio.Decoder
	format      audio.Format
	frameSize   int
	chunkFrames int
	chunk       []byte
	ring        *ringbuffer.RingBuffer
	loop        audio.LoopPoints

	looping atomic.Bool
	// done is set once the decoder has nothing more to give.
	done     atomic.Bool
	underrun atomic.Uint64
}

func newStreamState(source uint32, dec audio.Decoder, chunkFrames, queueSize int, looping bool) *streamState {
	format := audio.FormatOf(dec)
	frameSize := format.FrameSize()
	start, end := dec.LoopPoints()

	st := &streamState{
		source:      source,
		dec:         dec,
		format:      format,
		frameSize:   frameSize,
		chunkFrames: chunkFrames,
		chunk:       make([]byte, chunkFrames*frameSize),
		ring:        ringbuffer.New(chunkFrames * queueSize * frameSize),
		loop:        audio.LoopPoints{Start: start, End: end}.Clamp(dec.Length()),
	}
	st.looping.Store(looping)
	return st
}

// refill tops the ring up with whole chunks. It reports false once the
// stream has ended and will never produce more frames.
func (st *streamState) refill() (bool, error) {
	rewound := false
	for !st.done.Load() && st.ring.Free() >= len(st.chunk) {
		frames := st.chunkFrames
		looping := st.looping.Load()
		if looping && st.loop.End > st.loop.Start {
			pos := st.dec.Position()
			if pos >= st.loop.End {
				if err := st.rewind(&rewound); err != nil {
					return false, err
				}
				continue
			}
			frames = int(min(uint64(frames), st.loop.End-pos))
		}

		n, err := st.dec.Read(st.chunk, frames)
		if n > 0 {
			rewound = false
			if _, werr := st.ring.Write(st.chunk[:n*st.frameSize]); werr != nil {
				st.done.Store(true)
				return false, werr
			}
		}

		switch {
		case errors.Is(err, io.EOF) || (err == nil && n == 0):
			if !looping {
				st.done.Store(true)
				return false, nil
			}
			if err := st.rewind(&rewound); err != nil {
				return false, err
			}
		case err != nil:
			st.done.Store(true)
			return false, err
		}
	}
	return !st.done.Load(), nil
}

// rewind seeks back to the loop start. Hitting the end again with no frame
// read in between means the loop is empty and the stream ends.
func (st *streamState) rewind(rewound *bool) error {
	if *rewound {
		st.done.Store(true)
		return nil
	}
	*rewound = true
	if err := st.dec.Seek(st.loop.Start); err != nil {
		st.done.Store(true)
		return err
	}
	return nil
}

func (st *streamState) close() error {
	st.done.Store(true)
	return st.dec.Close()
}

func (st *streamState) reader() io.Reader {
	return &streamReader{st: st}
}

// streamReader hands the device whole frames from the ring. When the ring
// runs dry before the stream ends it plays silence.
type streamReader struct {
	st *streamState
}

func (r *streamReader) Read(p []byte) (int, error) {
	st := r.st
	want := len(p) - len(p)%st.frameSize
	if want == 0 {
		return 0, io.ErrShortBuffer
	}

	// Sample done first so frames written before it was set are not lost.
	done := st.done.Load()
	n, err := st.ring.Read(p[:want])
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return n, err
	}
	if n > 0 || !done {
		if n < want && !done {
			st.underrun.Add(uint64(want-n) / uint64(st.frameSize))
			fillSilence(p[n:want], st.format.Type)
			n = want
		}
		return n, nil
	}
	return 0, io.EOF
}

func fillSilence(p []byte, typ audio.SampleType) {
	var fill byte
	switch typ {
	case audio.UInt8:
		fill = 0x80
	case audio.Mulaw:
		fill = 0xff
	}
	for i := range p {
		p[i] = fill
	}
}

func (c *Context) refillStreams() {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()

	before := len(c.streaming)
	for i := 0; i < len(c.streaming); {
		st := c.streaming[i]
		active, err := st.refill()
		if err != nil {
			c.logger.Error("stream refill failed", "source", st.source, "error", err)
		}
		if active {
			i++
			continue
		}
		c.streaming = append(c.streaming[:i], c.streaming[i+1:]...)
	}
	if len(c.streaming) != before {
		c.metrics.SetStreamingSources(len(c.streaming))
	}
}

// StreamingSources is the number of streams the worker still refills.
func (c *Context) StreamingSources() int {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return len(c.streaming)
}
