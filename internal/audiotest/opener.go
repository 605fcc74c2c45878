// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
)

var ErrSeekRefused = errors.New("stream cannot seek")

// MemOpener serves named byte slices as seekable streams and records every
// stream it hands out.
type MemOpener struct {
	mu         sync.Mutex
	files      map[string][]byte
	unseekable map[string]bool
	opens      map[string]int
	streams    []*Stream
}

func NewMemOpener() *MemOpener {
	return &MemOpener{
		files:      make(map[string][]byte),
		unseekable: make(map[string]bool),
		opens:      make(map[string]int),
	}
}

func (o *MemOpener) Add(name string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[name] = data
}

// AddUnseekable registers a resource whose streams refuse to seek.
func (o *MemOpener) AddUnseekable(name string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[name] = data
	o.unseekable[name] = true
}

func (o *MemOpener) Open(name string) (io.ReadSeekCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens[name]++
	data, ok := o.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	}
	s := &Stream{r: bytes.NewReader(data), name: name, noSeek: o.unseekable[name]}
	o.streams = append(o.streams, s)
	return s, nil
}

// Opens counts Open calls for name, including failed ones.
func (o *MemOpener) Opens(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[name]
}

func (o *MemOpener) Streams() []*Stream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Stream(nil), o.streams...)
}

// Stream is a seekable in-memory stream that counts rewinds to its start.
type Stream struct {
	r       *bytes.Reader
	name    string
	noSeek  bool
	rewinds atomic.Int32
	closed  atomic.Bool
}

func (s *Stream) Name() string { return s.name }

func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, fs.ErrClosed
	}
	return s.r.Read(p)
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.noSeek {
		return 0, ErrSeekRefused
	}
	if offset == 0 && whence == io.SeekStart {
		s.rewinds.Add(1)
	}
	return s.r.Seek(offset, whence)
}

func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

// Rewinds counts Seek(0, io.SeekStart) calls.
func (s *Stream) Rewinds() int { return int(s.rewinds.Load()) }
func (s *Stream) Closed() bool { return s.closed.Load() }
