// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
	"github.com/ik5/audmgr/internal/audiotest"
)

var errNotRIFF = errors.New("not a RIFF stream")

// riffOnly consumes a magic tag before declining, like a container probe
// that has no decoder for what it found.
var riffOnly = audio.FactoryFunc(func(r io.ReadSeeker) (audio.Decoder, error) {
	var magic [4]byte
	_, _ = io.ReadFull(r, magic[:])
	return nil, errNotRIFF
})

func TestNewContextDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewContext(nil, DefaultConfig())
	require.Error(t, err)

	f := newFixture(t, 2)
	assert.NotEqual(t, uuid.Nil, f.ctx.ID())
	assert.Same(t, f.dev, f.ctx.Device().(*device.Memory))
	assert.Zero(t, f.ctx.AsyncWakeInterval())
	assert.Equal(t, WorkerIdle, f.ctx.WorkerState())
	assert.NotNil(t, f.ctx.Metrics())
}

func TestSetMessageHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	other := newRecorder()

	prev := f.ctx.SetMessageHandler(other)
	assert.Same(t, f.handler, prev.(*recorder))

	prev = f.ctx.SetMessageHandler(nil)
	assert.Same(t, other, prev.(*recorder))
	assert.IsType(t, NopMessageHandler{}, f.ctx.SetMessageHandler(f.handler))
}

func TestIsSupported(t *testing.T) {
	t.Parallel()

	dev := device.NewMemory(1, device.WithThreadLocalContexts(), device.WithUnsupported(audio.Quad, audio.Mulaw))
	f := newFixtureWith(t, dev, nil)

	assert.True(t, f.ctx.IsSupported(audio.Stereo, audio.Int16))
	assert.False(t, f.ctx.IsSupported(audio.Quad, audio.Mulaw))

	format := audio.Format{SampleRate: 8000, Channels: audio.Quad, Type: audio.Mulaw}
	f.opener.Add("quad.snd", audiotest.Encode(audiotest.Header{Format: format}, audiotest.Ramp(format, 10)))
	_, err := f.ctx.GetBuffer("quad.snd")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
	_, err = f.ctx.GetBufferAsync("quad.snd")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestCreateDecoderRewindsBetweenFactories(t *testing.T) {
	t.Parallel()

	factory := &audiotest.Factory{}
	f := newFixtureWith(t, device.NewMemory(1, device.WithThreadLocalContexts()), func(cfg *Config) {
		cfg.Registry = audio.NewRegistry(
			audio.NamedFactory{Name: "wav", Factory: riffOnly},
			audio.NamedFactory{Name: "raw", Factory: factory},
		)
	})
	f.opener.Add("x.raw", audiotest.Encode(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 16)))

	dec, err := f.ctx.CreateDecoder("x.raw")
	require.NoError(t, err)

	raw, ok := audio.Unwrap(dec).(*audiotest.Decoder)
	require.True(t, ok)
	assert.Equal(t, uint64(16), raw.Length())

	streams := f.opener.Streams()
	require.Len(t, streams, 1)
	assert.Equal(t, 1, streams[0].Rewinds())

	require.NoError(t, dec.Close())
	assert.True(t, streams[0].Closed())
	assert.Equal(t, 1, raw.Closes())
}

func TestCreateDecoderErrors(t *testing.T) {
	t.Parallel()

	f := newFixtureWith(t, device.NewMemory(1, device.WithThreadLocalContexts()), func(cfg *Config) {
		cfg.Registry = audio.NewRegistry(
			audio.NamedFactory{Name: "wav", Factory: riffOnly},
			audio.NamedFactory{Name: "raw", Factory: &audiotest.Factory{}},
		)
	})
	f.opener.AddUnseekable("pipe.raw", audiotest.Encode(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 16)))
	f.opener.Add("junk.bin", []byte("definitely not audio data"))

	_, err := f.ctx.CreateDecoder("pipe.raw")
	require.ErrorIs(t, err, audio.ErrDecodeSetupFailed)

	_, err = f.ctx.CreateDecoder("junk.bin")
	require.ErrorIs(t, err, audio.ErrNoDecoderAvailable)

	_, err = f.ctx.CreateDecoder("missing.raw")
	require.ErrorIs(t, err, audio.ErrResourceNotFound)

	for _, s := range f.opener.Streams() {
		assert.True(t, s.Closed(), s.Name())
	}
}

func TestSetAsyncWakeIntervalClampsNegative(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.ctx.SetAsyncWakeInterval(-time.Second)
	assert.Zero(t, f.ctx.AsyncWakeInterval())
	f.ctx.SetAsyncWakeInterval(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, f.ctx.AsyncWakeInterval())
}

func TestContextsShareRegisterer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	configure := func(cfg *Config) { cfg.Registerer = reg }
	a := newFixtureWith(t, device.NewMemory(1, device.WithThreadLocalContexts()), configure)
	b := newFixtureWith(t, device.NewMemory(1, device.WithThreadLocalContexts()), configure)
	require.NotEqual(t, a.ctx.ID(), b.ctx.ID())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
