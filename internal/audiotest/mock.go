// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fakes shared by the manager tests: sample
// sources, an in-memory opener with seek accounting, and a scripted decoder
// with its container format.
package audiotest

import (
	"io"
	"math"

	"github.com/ik5/audmgr/audio"
)

var _ audio.SampleSource = (*MockSource)(nil)

// MockSource generates frames from a waveform function.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // per channel
	generated    int
	waveform     func(sample int, channel int) float32
}

func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.totalSamples-m.generated)
	for frame := range frames {
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(m.generated+frame, ch)
		}
	}
	m.generated += frames

	return frames * m.channels, nil
}

// PCM16 renders a source as signed 16-bit little-endian bytes.
func PCM16(src audio.SampleSource) []byte {
	out, _ := io.ReadAll(audio.NewPCMReader(src))
	return out
}
