// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"math"
	"testing"
)

func TestResamplerLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		srcRate  int
		dstRate  int
		channels int
		frames   int
	}{
		{"identity", 16000, 16000, 1, 1600},
		{"upsample 2x", 8000, 16000, 1, 800},
		{"downsample 3x", 48000, 16000, 2, 4800},
		{"cd to dat", 44100, 48000, 2, 4410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newSineSource(tt.srcRate, tt.channels, tt.frames, 440)
			r := NewResampler(src, tt.dstRate)
			out, err := readAll(r)
			if err != nil {
				t.Fatalf("readAll() error = %v", err)
			}
			if len(out)%tt.channels != 0 {
				t.Fatalf("got %d samples, not a multiple of %d channels", len(out), tt.channels)
			}

			wantFrames := float64(tt.frames) * float64(tt.dstRate) / float64(tt.srcRate)
			gotFrames := float64(len(out) / tt.channels)
			if math.Abs(gotFrames-wantFrames) > 2 {
				t.Errorf("got %v frames, want about %v", gotFrames, wantFrames)
			}
		})
	}
}

func TestResamplerIdentityPreservesSamples(t *testing.T) {
	t.Parallel()

	src := newRampSource(8000, 1, 64)
	out, err := readAll(NewResampler(src, 8000))
	if err != nil {
		t.Fatalf("readAll() error = %v", err)
	}
	if len(out) != 64 {
		t.Fatalf("got %d samples, want 64", len(out))
	}
	for i, v := range out {
		want := float32(i) / 64
		if math.Abs(float64(v-want)) > 1e-5 {
			t.Fatalf("sample[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestResamplerConstantStaysConstant(t *testing.T) {
	t.Parallel()

	src := newConstantSource(22050, 2, 2205, 0.25)
	out, err := readAll(NewResampler(src, 48000))
	if err != nil {
		t.Fatalf("readAll() error = %v", err)
	}
	for i, v := range out {
		if math.Abs(float64(v-0.25)) > 1e-4 {
			t.Fatalf("sample[%d] = %f, want 0.25", i, v)
		}
	}
}

func TestResamplerInvalidDst(t *testing.T) {
	t.Parallel()

	r := NewResampler(newConstantSource(8000, 2, 10, 0), 16000)
	if _, err := r.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want %v", err, ErrInvalidDstSize)
	}
}

func TestResamplerClose(t *testing.T) {
	t.Parallel()

	src := newConstantSource(8000, 1, 10, 0)
	if err := NewResampler(src, 16000).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.closed {
		t.Error("Close() did not close the source")
	}
}
