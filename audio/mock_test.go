// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
)

// mockSource generates frames from a waveform function.
type mockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // per channel
	generated    int
	waveform     func(sample int, channel int) float32
	closed       bool
}

func newMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *mockSource {
	return &mockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

func newConstantSource(sampleRate, channels, totalSamples int, value float32) *mockSource {
	return newMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return value
	})
}

func newRampSource(sampleRate, channels, totalSamples int) *mockSource {
	return newMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		return float32(sample) / float32(totalSamples)
	})
}

func newSineSource(sampleRate, channels, totalSamples int, frequency float64) *mockSource {
	return newMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func (m *mockSource) SampleRate() int { return m.sampleRate }
func (m *mockSource) Channels() int   { return m.channels }
func (m *mockSource) BufSize() int    { return 4096 }

func (m *mockSource) Close() error {
	m.closed = true
	return nil
}

func (m *mockSource) ReadSamples(dst []float32) (int, error) {
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

	if m.generated >= m.totalSamples {
		return frames * m.channels, io.EOF
	}
	return frames * m.channels, nil
}

func readAll(src SampleSource) ([]float32, error) {
	var out []float32
	buf := make([]float32, 256*src.Channels())
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

// stubDecoder is a Decoder over a fixed byte payload.
type stubDecoder struct {
	format Format
	data   []byte
	pos    uint64
	closed int
}

func (d *stubDecoder) SampleRate() int                 { return d.format.SampleRate }
func (d *stubDecoder) ChannelConfig() ChannelConfig    { return d.format.Channels }
func (d *stubDecoder) SampleType() SampleType          { return d.format.Type }
func (d *stubDecoder) Length() uint64                  { return uint64(len(d.data) / d.format.FrameSize()) }
func (d *stubDecoder) Position() uint64                { return d.pos }
func (d *stubDecoder) LoopPoints() (start, end uint64) { return 0, 0 }

func (d *stubDecoder) Seek(frame uint64) error {
	if frame > d.Length() {
		return errors.New("seek past end")
	}
	d.pos = frame
	return nil
}

func (d *stubDecoder) Read(dst []byte, frames int) (int, error) {
	fs := uint64(d.format.FrameSize())
	left := d.Length() - d.pos
	if left == 0 {
		return 0, io.EOF
	}
	n := min(uint64(frames), left)
	copy(dst, d.data[d.pos*fs:(d.pos+n)*fs])
	d.pos += n
	return int(n), nil
}

func (d *stubDecoder) Close() error {
	d.closed++
	return nil
}

// countingSeeker records how often it is rewound.
type countingSeeker struct {
	io.ReadSeeker
	rewinds int
	failAt  int // rewind number that fails, 0 for never
}

func (s *countingSeeker) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekStart {
		s.rewinds++
		if s.failAt > 0 && s.rewinds == s.failAt {
			return 0, errors.New("seek refused")
		}
	}
	return s.ReadSeeker.Seek(offset, whence)
}
