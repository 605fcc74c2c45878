// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/internal/audiotest"
)

func frameRange(payload []byte, frames ...int) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, payload[f*2:f*2+2]...)
	}
	return out
}

func TestStreamRefillLoops(t *testing.T) {
	t.Parallel()

	payload := audiotest.Ramp(mono16, 25)
	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16, Loop: audio.LoopPoints{Start: 5, End: 20}}, payload)
	st := newStreamState(1, dec, 10, 3, true)
	assert.Equal(t, audio.LoopPoints{Start: 5, End: 20}, st.loop)

	r := st.reader()
	got := make([]byte, 120)
	for i := range 2 {
		active, err := st.refill()
		require.NoError(t, err)
		require.True(t, active)
		_, err = io.ReadFull(r, got[i*60:(i+1)*60])
		require.NoError(t, err)
	}

	var want []int
	for i := range 60 {
		if i < 20 {
			want = append(want, i)
		} else {
			want = append(want, 5+(i-20)%15)
		}
	}
	assert.Equal(t, frameRange(payload, want...), got)
	assert.Equal(t, uint64(0), st.underrun.Load())
}

func TestStreamRefillEndsWithoutLoop(t *testing.T) {
	t.Parallel()

	payload := audiotest.Ramp(mono16, 25)
	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, payload)
	st := newStreamState(1, dec, 10, 2, false)
	r := st.reader()

	active, err := st.refill()
	require.NoError(t, err)
	require.True(t, active)
	first := make([]byte, 40)
	_, err = io.ReadFull(r, first)
	require.NoError(t, err)

	active, err = st.refill()
	require.NoError(t, err)
	assert.False(t, active)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, append(first, rest...))
}

func TestStreamReaderUnderrun(t *testing.T) {
	t.Parallel()

	u8 := audio.Format{SampleRate: 8000, Channels: audio.Stereo, Type: audio.UInt8}
	dec := audiotest.NewDecoder(audiotest.Header{Format: u8}, audiotest.Ramp(u8, 100))
	st := newStreamState(1, dec, 10, 2, false)
	r := st.reader()

	p := make([]byte, 9)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 8, n, "reads stop at a frame boundary")
	assert.Equal(t, bytes.Repeat([]byte{0x80}, 8), p[:8])
	assert.Equal(t, uint64(4), st.underrun.Load())

	_, err = r.Read(p[:1])
	require.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestStreamRefillGuards(t *testing.T) {
	t.Parallel()

	empty := audiotest.NewDecoder(audiotest.Header{Format: mono16}, nil)
	st := newStreamState(1, empty, 10, 2, true)
	active, err := st.refill()
	require.NoError(t, err)
	assert.False(t, active, "an empty looping stream must end")

	_, err = st.reader().Read(make([]byte, 4))
	require.ErrorIs(t, err, io.EOF)

	failing := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 100))
	failing.FailAt = 15
	st = newStreamState(1, failing, 10, 4, false)
	active, err = st.refill()
	require.ErrorIs(t, err, audiotest.ErrInjected)
	assert.False(t, active)
	assert.Equal(t, 15*2, st.ring.Length())
}

func TestPlayStreamRunsToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 1000))

	s := f.source(t, 0)
	require.NoError(t, s.PlayStream(dec, 64, 4))
	assert.True(t, s.IsPlaying())
	assert.Equal(t, 1, f.ctx.StreamingSources())

	require.Eventually(t, func() bool {
		f.dev.Advance(64)
		_ = f.ctx.Update()
		return len(f.handler.stops()) == 1
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, []stopEvent{{src: s, forced: false}}, f.handler.stops())
	assert.Equal(t, 0, f.ctx.StreamingSources())
	assert.Equal(t, 1, dec.Closes())
	assert.Equal(t, uint64(1000), dec.Position())
}

func TestPlayStreamWakeInterval(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.ctx.SetAsyncWakeInterval(2 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, f.ctx.AsyncWakeInterval())

	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 10000))
	s := f.source(t, 0)
	require.NoError(t, s.PlayStream(dec, 64, 4))
	prefilled := dec.Reads()

	// Only the timer wakes the worker here.
	f.dev.Advance(256)
	require.Eventually(t, func() bool { return dec.Reads() > prefilled }, 2*time.Second, time.Millisecond)
}

func TestStopStreamingSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 1000))

	s := f.source(t, 0)
	s.SetLooping(true)
	require.NoError(t, s.PlayStream(dec, 32, 2))
	assert.Equal(t, audio.LoopPoints{Start: 0, End: 1000}, s.LoopPoints())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsPlaying())
	assert.Equal(t, 0, f.ctx.StreamingSources())
	assert.Equal(t, 1, dec.Closes())
}

func TestStreamEvictedByBuffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 1000))
	music := f.source(t, 0)
	require.NoError(t, music.PlayStream(dec, 32, 2))

	b := f.buffer(t, "alarm.snd", 100)
	alarm := f.source(t, 10)
	require.NoError(t, alarm.Play(b))

	assert.Equal(t, []stopEvent{{src: music, forced: true}}, f.handler.stops())
	assert.Equal(t, 0, f.ctx.StreamingSources())
	assert.Equal(t, 1, dec.Closes())
}

func TestPlayStreamRejectsBadWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	s := f.source(t, 0)

	dec := audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 10))
	require.ErrorIs(t, s.PlayStream(dec, 0, 4), ErrInvalidStreamWindow)
	assert.Equal(t, 1, dec.Closes())

	dec = audiotest.NewDecoder(audiotest.Header{Format: mono16}, audiotest.Ramp(mono16, 10))
	require.ErrorIs(t, s.PlayStream(dec, 16, 1), ErrInvalidStreamWindow)
	assert.Equal(t, 1, dec.Closes())
}
