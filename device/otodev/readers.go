// SPDX-License-Identifier: EPL-2.0

package otodev

import (
	"io"
	"sync/atomic"

	"github.com/ik5/audmgr/audio"
)

// loopReader reads a buffer payload, optionally repeating its loop range.
type loopReader struct {
	data      []byte
	frameSize int
	start     int
	end       int
	looping   bool
	pos       atomic.Int64
}

func newLoopReader(data []byte, frameSize int, loop audio.LoopPoints, looping bool) *loopReader {
	r := &loopReader{
		data:      data,
		frameSize: frameSize,
		start:     int(loop.Start) * frameSize,
		end:       int(loop.End) * frameSize,
		looping:   looping && loop.End > loop.Start,
	}
	if r.end == 0 || r.end > len(data) {
		r.end = len(data)
	}
	return r
}

func (r *loopReader) seek(frame uint64) {
	r.pos.Store(int64(min(int(frame)*r.frameSize, len(r.data))))
}

func (r *loopReader) Position() uint64 {
	return uint64(int(r.pos.Load()) / r.frameSize)
}

func (r *loopReader) Read(p []byte) (int, error) {
	pos := int(r.pos.Load())
	limit := len(r.data)
	if r.looping && pos < r.end {
		limit = r.end
	}

	n := 0
	for n < len(p) {
		if pos >= limit {
			if !r.looping {
				break
			}
			pos = r.start
			limit = r.end
		}
		c := copy(p[n:], r.data[pos:limit])
		n += c
		pos += c
	}
	r.pos.Store(int64(pos))

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// countingReader tracks how many whole frames were read from r.
type countingReader struct {
	r         io.Reader
	frameSize uint64
	read      atomic.Uint64
}

func newCountingReader(r io.Reader, frameSize int) *countingReader {
	return &countingReader{r: r, frameSize: uint64(frameSize)}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read.Add(uint64(n))
	return n, err
}

func (c *countingReader) Position() uint64 {
	return c.read.Load() / c.frameSize
}
