// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audmgr/utils"
)

// Resampler streams from src to a target sample rate using cubic
// interpolation over a four frame window. Channel count is preserved.
// When downsampling a one-pole low-pass is applied to incoming frames.
type Resampler struct {
	src      SampleSource
	channels int
	dstRate  int
	step     float64 // source frames consumed per output frame

	// hist[1] and hist[2] bracket the output position, hist[0] and hist[3]
	// are the outer taps.
	hist [4][]float32
	frac float64
	pos  int // source index of hist[1]
	read int // real frames pulled from src
	eof  bool
	err  error

	primed bool
	frame  []float32

	lowPass bool
	alpha   float32
	state   []float32
}

func NewResampler(src SampleSource, dstRate int) *Resampler {
	channels := src.Channels()
	step := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		channels: channels,
		dstRate:  dstRate,
		step:     step,
		frame:    make([]float32, channels),
		lowPass:  step > 1.0,
		alpha:    0.5,
		state:    make([]float32, channels),
	}
	for i := range r.hist {
		r.hist[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// pull reads the next source frame into dst. It reports false once the
// source has nothing more to give.
func (r *Resampler) pull(dst []float32) bool {
	if r.eof {
		return false
	}

	n, err := r.src.ReadSamples(r.frame)
	if err != nil {
		r.eof = true
		if err != io.EOF {
			r.err = err
		}
	}
	if n < r.channels {
		r.eof = true
		return false
	}

	if r.lowPass {
		if r.read == 0 {
			copy(r.state, r.frame)
		}
		for c := range r.channels {
			r.state[c] = r.alpha*r.frame[c] + (1-r.alpha)*r.state[c]
		}
		copy(dst, r.state)
	} else {
		copy(dst, r.frame)
	}
	r.read++

	return true
}

func (r *Resampler) prime() bool {
	r.primed = true
	if !r.pull(r.hist[1]) {
		return false
	}
	copy(r.hist[0], r.hist[1])
	if !r.pull(r.hist[2]) {
		copy(r.hist[2], r.hist[1])
	}
	if !r.pull(r.hist[3]) {
		copy(r.hist[3], r.hist[2])
	}
	return true
}

func (r *Resampler) shift() {
	oldest := r.hist[0]
	r.hist[0], r.hist[1], r.hist[2] = r.hist[1], r.hist[2], r.hist[3]
	r.hist[3] = oldest
	if !r.pull(r.hist[3]) {
		copy(r.hist[3], r.hist[2])
	}
	r.pos++
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed && !r.prime() {
		return 0, r.endErr()
	}

	frames := len(dst) / r.channels
	written := 0
	for written < frames {
		if r.eof && r.pos >= r.read {
			break
		}

		x := float32(r.frac)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			out[c] = utils.CubicInterpolate(r.hist[0][c], r.hist[1][c], r.hist[2][c], r.hist[3][c], x)
		}
		written++

		r.frac += r.step
		for r.frac >= 1.0 {
			r.frac -= 1.0
			r.shift()
		}
	}

	if written < frames {
		return written * r.channels, r.endErr()
	}
	return written * r.channels, nil
}

func (r *Resampler) endErr() error {
	if r.err != nil {
		return fmt.Errorf("%w", r.err)
	}
	return io.EOF
}
