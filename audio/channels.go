// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// MonoMixer averages every frame of src down to one channel.
type MonoMixer struct {
	src SampleSource
	tmp []float32
}

func NewMonoMixer(src SampleSource) *MonoMixer {
	return &MonoMixer{
		src: src,
		tmp: make([]float32, 8192),
	}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) BufSize() int    { return m.src.BufSize() }

func (m *MonoMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	channels := m.src.Channels()
	if channels == 1 {
		return m.src.ReadSamples(dst)
	}

	// Grow but never shrink the scratch buffer.
	need := len(dst) * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}

	n, err := m.src.ReadSamples(m.tmp[:need])
	frames := n / channels
	scale := 1 / float32(channels)
	for f := range frames {
		var sum float32
		for _, v := range m.tmp[f*channels : (f+1)*channels] {
			sum += v
		}
		dst[f] = sum * scale
	}

	return frames, err
}

// StereoUpmixer copies a mono source into both channels of a stereo
// stream. Sources that already have two channels pass through.
type StereoUpmixer struct {
	src SampleSource
	tmp []float32
}

func NewStereoUpmixer(src SampleSource) *StereoUpmixer {
	return &StereoUpmixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (u *StereoUpmixer) SampleRate() int { return u.src.SampleRate() }
func (u *StereoUpmixer) Channels() int   { return 2 }
func (u *StereoUpmixer) BufSize() int    { return u.src.BufSize() }

func (u *StereoUpmixer) Close() error {
	if err := u.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (u *StereoUpmixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	switch u.src.Channels() {
	case 2:
		return u.src.ReadSamples(dst)
	case 1:
	default:
		return 0, fmt.Errorf("%w: cannot upmix %d channels to stereo", ErrUnsupportedFormat, u.src.Channels())
	}

	frames := len(dst) / 2
	if cap(u.tmp) < frames {
		u.tmp = make([]float32, frames)
	}

	n, err := u.src.ReadSamples(u.tmp[:frames])
	for i, v := range u.tmp[:n] {
		dst[2*i] = v
		dst[2*i+1] = v
	}

	return 2 * n, err
}
