// SPDX-License-Identifier: EPL-2.0

// Package otodev plays device buffers and streams through the system audio
// output using oto. Every voice is an oto player; payloads are converted to
// the output rate and channel count on the fly.
package otodev

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
)

var ErrFormatMismatch = errors.New("output already opened with a different format")

// oto allows a single context per process.
var (
	shared     *oto.Context
	sharedOnce sync.Once
	sharedErr  error
	sharedRate int
	sharedChan int
)

func openContext(sampleRate, channels int) (*oto.Context, error) {
	sharedOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			sharedErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		shared, sharedRate, sharedChan = ctx, sampleRate, channels
	})
	if sharedErr != nil {
		return nil, sharedErr
	}
	if sharedRate != sampleRate || sharedChan != channels {
		return nil, fmt.Errorf("%w: %dhz/%dch", ErrFormatMismatch, sharedRate, sharedChan)
	}
	return shared, nil
}

type Options struct {
	SampleRate int
	// Channels is 1 or 2.
	Channels  int
	MaxVoices int
	Logger    *slog.Logger
}

// Device implements device.Device on top of oto.
type Device struct {
	mu sync.Mutex

	ctx    *oto.Context
	opts   Options
	logger *slog.Logger

	nextBuffer device.BufferID
	nextVoice  device.VoiceID
	buffers    map[device.BufferID]*buffer
	voices     map[device.VoiceID]*voice
}

type buffer struct {
	format audio.Format
	data   []byte
	loop   audio.LoopPoints
}

type voice struct {
	player *oto.Player
	pos    positioner
	buffer device.BufferID
	stream bool
}

// positioner reports how many source frames a reader has handed out.
type positioner interface {
	io.Reader
	Position() uint64
}

func Open(opts Options) (*Device, error) {
	if opts.Channels != 1 && opts.Channels != 2 {
		return nil, fmt.Errorf("%w: %d output channels", audio.ErrUnsupportedFormat, opts.Channels)
	}
	if opts.MaxVoices < 1 {
		opts.MaxVoices = 32
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, err := openContext(opts.SampleRate, opts.Channels)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With("component", "otodev")
	logger.Info("audio output initialized",
		"sample_rate", opts.SampleRate,
		"channels", opts.Channels,
		"voices", opts.MaxVoices)

	return &Device{
		ctx:     ctx,
		opts:    opts,
		logger:  logger,
		buffers: make(map[device.BufferID]*buffer),
		voices:  make(map[device.VoiceID]*voice),
	}, nil
}

func (d *Device) Name() string              { return "oto" }
func (d *Device) MaxVoices() int            { return d.opts.MaxVoices }
func (d *Device) ThreadLocalContexts() bool { return false }

// Supports accepts every layout the converter chain can fold down to the
// output channel count.
func (d *Device) Supports(chans audio.ChannelConfig, typ audio.SampleType) bool {
	return chans.Count() > 0 && typ.Size() > 0
}

func (d *Device) Connected() bool {
	return d.ctx.Err() == nil
}

func (d *Device) NewBuffer() (device.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextBuffer++
	d.buffers[d.nextBuffer] = &buffer{}
	return d.nextBuffer, nil
}

func (d *Device) BufferData(id device.BufferID, format audio.Format, data []byte) error {
	if !d.Supports(format.Channels, format.Type) {
		return fmt.Errorf("%w: %s", device.ErrUnsupported, format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownBuffer, id)
	}
	frames := uint64(len(data) / format.FrameSize())
	*b = buffer{
		format: format,
		data:   slices.Clone(data),
		loop:   audio.LoopPoints{End: frames},
	}
	return nil
}

func (d *Device) SetLoopPoints(id device.BufferID, loop audio.LoopPoints) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownBuffer, id)
	}
	b.loop = loop.Clamp(uint64(len(b.data) / max(b.format.FrameSize(), 1)))
	return nil
}

func (d *Device) DeleteBuffer(id device.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buffers[id]; !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownBuffer, id)
	}
	for _, v := range d.voices {
		if v.player != nil && !v.stream && v.buffer == id && v.player.IsPlaying() {
			return fmt.Errorf("%w: %d", device.ErrBufferAttached, id)
		}
	}
	delete(d.buffers, id)
	return nil
}

func (d *Device) NewVoice() (device.VoiceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.voices) >= d.opts.MaxVoices {
		return 0, device.ErrVoicesExhausted
	}
	d.nextVoice++
	d.voices[d.nextVoice] = &voice{}
	return d.nextVoice, nil
}

func (d *Device) DeleteVoice(id device.VoiceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownVoice, id)
	}
	v.close(d.logger)
	delete(d.voices, id)
	return nil
}

func (d *Device) Play(id device.VoiceID, buf device.BufferID, looping bool, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownVoice, id)
	}
	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownBuffer, buf)
	}

	lr := newLoopReader(b.data, b.format.FrameSize(), b.loop, looping)
	lr.seek(offset)
	return d.startLocked(v, lr, b.format, buf, false)
}

func (d *Device) PlayStream(id device.VoiceID, r io.Reader, format audio.Format) error {
	if !d.Supports(format.Channels, format.Type) {
		return fmt.Errorf("%w: %s", device.ErrUnsupported, format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownVoice, id)
	}
	return d.startLocked(v, newCountingReader(r, format.FrameSize()), format, 0, true)
}

func (d *Device) startLocked(v *voice, src positioner, format audio.Format, buf device.BufferID, stream bool) error {
	v.close(d.logger)

	out, err := convert(src, format, d.opts.SampleRate, d.opts.Channels)
	if err != nil {
		return err
	}

	v.player = d.ctx.NewPlayer(out)
	v.pos = src
	v.buffer = buf
	v.stream = stream
	v.player.Play()
	return nil
}

func (d *Device) Stop(id device.VoiceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	if !ok {
		return fmt.Errorf("%w: %d", device.ErrUnknownVoice, id)
	}
	v.close(d.logger)
	return nil
}

func (d *Device) IsPlaying(id device.VoiceID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	return ok && v.player != nil && v.player.IsPlaying()
}

func (d *Device) Offset(id device.VoiceID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.voices[id]
	if !ok || v.pos == nil {
		return 0
	}
	return v.pos.Position()
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, v := range d.voices {
		v.close(d.logger)
	}
	clear(d.voices)
	clear(d.buffers)
	return nil
}

func (v *voice) close(logger *slog.Logger) {
	if v.player == nil {
		return
	}
	v.player.Pause()
	if err := v.player.Close(); err != nil {
		logger.Warn("failed to close player", "error", err)
	}
	v.player = nil
	v.pos = nil
}

// convert builds the chain that renders src as signed 16-bit frames at the
// output rate and channel count.
func convert(src io.Reader, format audio.Format, rate, channels int) (io.Reader, error) {
	var s audio.SampleSource = audio.NewPCMSource(src, format)
	if format.SampleRate != rate {
		s = audio.NewResampler(s, rate)
	}

	switch {
	case s.Channels() == channels:
	case channels == 1:
		s = audio.NewMonoMixer(s)
	case channels == 2 && s.Channels() == 1:
		s = audio.NewStereoUpmixer(s)
	case channels == 2:
		s = audio.NewStereoUpmixer(audio.NewMonoMixer(s))
	default:
		return nil, fmt.Errorf("%w: %d to %d channels", audio.ErrUnsupportedFormat, s.Channels(), channels)
	}

	return audio.NewPCMReader(s), nil
}
