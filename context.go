// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
	"github.com/ik5/audmgr/internal/ringqueue"
)

var contextSeq atomic.Uint64

// Context owns the buffer cache, voice pool, streaming set and background
// worker for one device.
type Context struct {
	id       uuid.UUID
	seq      uint64
	dev      device.Device
	logger   *slog.Logger
	metrics  *Metrics
	registry *audio.Registry
	opener   audio.FileOpener
	cfg      Config

	handler atomic.Pointer[handlerBox]

	// mu guards the cache, the relation table, sources and voices.
	mu           sync.Mutex
	buffers      []*Buffer
	relations    relations
	sources      []*Source // in use, sorted by id
	freeSources  []*Source
	nextSourceID uint32
	freeVoices   []device.VoiceID
	voiceSeq     uint64
	disconnected bool

	destroyed  atomic.Bool
	threadRefs atomic.Int32

	// activeMu is held by the worker while it touches the device and by
	// context switches.
	activeMu sync.Mutex

	streamMu  sync.Mutex
	streaming []*streamState

	queue        *ringqueue.Queue[loadJob]
	wake         chan struct{}
	wakeInterval atomic.Int64
	state        atomic.Int32

	workerMu sync.Mutex
	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type handlerBox struct {
	h MessageHandler
}

// NewContext creates a context on dev. Zero fields of cfg fall back to
// DefaultConfig.
func NewContext(dev device.Device, cfg Config) (*Context, error) {
	if dev == nil {
		return nil, errors.New("nil device")
	}

	def := DefaultConfig()
	if cfg.QueueSize < 1 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = decoders
	}
	if cfg.Opener == nil {
		cfg.Opener = audio.OSOpener{}
	}
	if cfg.Handler == nil {
		cfg.Handler = NopMessageHandler{}
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}

	id := uuid.New()
	metrics, err := NewMetrics(cfg.Registerer, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	c := &Context{
		id:        id,
		seq:       contextSeq.Add(1),
		dev:       dev,
		logger:    cfg.Logger.With("component", "audmgr", "context", id.String()),
		metrics:   metrics,
		registry:  cfg.Registry,
		opener:    cfg.Opener,
		cfg:       cfg,
		relations: newRelations(),
		queue:     ringqueue.New[loadJob](cfg.QueueSize),
		wake:      make(chan struct{}, 1),
	}
	c.handler.Store(&handlerBox{h: cfg.Handler})
	c.wakeInterval.Store(int64(cfg.WakeInterval))

	c.logger.Info("context created",
		"device", dev.Name(),
		"voices", dev.MaxVoices(),
		"thread_local", dev.ThreadLocalContexts())
	return c, nil
}

func (c *Context) ID() uuid.UUID             { return c.id }
func (c *Context) Device() device.Device     { return c.dev }
func (c *Context) Metrics() *Metrics         { return c.metrics }
func (c *Context) Registry() *audio.Registry { return c.registry }

// SetMessageHandler installs h and returns the handler it replaced. Nil
// installs NopMessageHandler.
func (c *Context) SetMessageHandler(h MessageHandler) MessageHandler {
	if h == nil {
		h = NopMessageHandler{}
	}
	return c.handler.Swap(&handlerBox{h: h}).h
}

func (c *Context) messages() MessageHandler {
	return c.handler.Load().h
}

// SetAsyncWakeInterval changes the worker's timer period. Zero wakes it
// only when signaled.
func (c *Context) SetAsyncWakeInterval(d time.Duration) {
	c.wakeInterval.Store(int64(max(d, 0)))
	c.signal()
}

func (c *Context) AsyncWakeInterval() time.Duration {
	return time.Duration(c.wakeInterval.Load())
}

// IsSupported reports whether buffers of this layout can be played.
func (c *Context) IsSupported(chans audio.ChannelConfig, typ audio.SampleType) bool {
	return c.dev.Supports(chans, typ)
}

func (c *Context) checkFormat(name string, format audio.Format) error {
	if format.SampleRate <= 0 || !c.dev.Supports(format.Channels, format.Type) {
		return fmt.Errorf("%w: %s (%s)", audio.ErrUnsupportedFormat, format, name)
	}
	return nil
}

// CreateDecoder opens name and probes it against the decoder registry.
// When name cannot be opened the message handler is asked for substitutes
// until one opens or it gives up. The returned decoder owns the stream.
func (c *Context) CreateDecoder(name string) (audio.Decoder, error) {
	requested := name
	rs, err := c.opener.Open(name)
	for err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to open resource", "name", name, "error", err)
		}
		next := c.messages().ResourceNotFound(name)
		if next == "" {
			return nil, fmt.Errorf("%w: %s", audio.ErrResourceNotFound, requested)
		}
		c.logger.Debug("substituting resource", "name", name, "substitute", next)
		name = next
		rs, err = c.opener.Open(name)
	}

	dec, factory, err := c.registry.Probe(name, rs)
	if err != nil {
		if cerr := rs.Close(); cerr != nil {
			c.logger.Warn("failed to close resource", "name", name, "error", cerr)
		}
		return nil, err
	}

	c.logger.Debug("decoder created",
		"name", name,
		"decoder", factory,
		"format", audio.FormatOf(dec).String(),
		"frames", dec.Length())
	return audio.WithCloser(dec, rs), nil
}

// Update syncs source state with the device: voices that finished go back
// to the pool and their sources are reported stopped. It also polls for a
// disconnected device and, when the wake interval is zero, wakes the
// worker. Call it regularly.
func (c *Context) Update() error {
	if err := c.checkCurrent(); err != nil {
		return err
	}

	var stopped []*Source
	c.mu.Lock()
	for _, s := range c.sources {
		if s.hasVoice && !c.dev.IsPlaying(s.voice) {
			c.stopLocked(s)
			c.releaseVoiceLocked(s)
			stopped = append(stopped, s)
		}
	}
	disconnected := false
	if !c.disconnected && !c.dev.Connected() {
		c.disconnected = true
		disconnected = true
	}
	c.mu.Unlock()

	if c.wakeInterval.Load() == 0 {
		c.signal()
	}

	h := c.messages()
	if disconnected {
		c.logger.Warn("device disconnected", "device", c.dev.Name())
		h.DeviceDisconnected()
	}
	for _, s := range stopped {
		h.SourceStopped(s, false)
	}
	return nil
}

// Destroy stops the worker and frees every buffer, source and voice. It
// fails with ErrContextMisuse while c is current anywhere or any source
// still holds a voice.
func (c *Context) Destroy() error {
	switchMu.Lock()
	if c.isCurrent() {
		switchMu.Unlock()
		return fmt.Errorf("%w: context %s is current", audio.ErrContextMisuse, c.id)
	}

	c.mu.Lock()
	for _, s := range c.sources {
		if s.hasVoice {
			c.mu.Unlock()
			switchMu.Unlock()
			return fmt.Errorf("%w: source %d still holds a voice", audio.ErrContextMisuse, s.id)
		}
	}
	if !c.destroyed.CompareAndSwap(false, true) {
		c.mu.Unlock()
		switchMu.Unlock()
		return fmt.Errorf("%w: context %s is destroyed", audio.ErrContextMisuse, c.id)
	}
	c.mu.Unlock()
	switchMu.Unlock()

	c.stopWorker()

	for _, job := range c.queue.Drain() {
		c.discardJob(job)
	}

	c.streamMu.Lock()
	c.streaming = nil
	c.streamMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range append(c.sources, c.freeSources...) {
		c.stopLocked(s)
		s.released = true
	}
	for _, b := range c.buffers {
		b.removed = true
		if err := c.dev.DeleteBuffer(b.devID); err != nil {
			c.logger.Warn("failed to delete buffer", "name", b.name, "error", err)
		}
	}
	for _, v := range c.freeVoices {
		if err := c.dev.DeleteVoice(v); err != nil {
			c.logger.Warn("failed to delete voice", "voice", v, "error", err)
		}
	}
	c.buffers = nil
	c.sources = nil
	c.freeSources = nil
	c.freeVoices = nil
	c.relations = newRelations()
	c.metrics.Unregister()

	c.logger.Info("context destroyed")
	return nil
}

func (c *Context) signal() {
	if c == nil {
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
