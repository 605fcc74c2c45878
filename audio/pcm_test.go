// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func TestPCMSource(t *testing.T) {
	t.Parallel()

	f32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(f32[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(f32[4:], math.Float32bits(-0.25))

	tests := []struct {
		name string
		typ  SampleType
		data []byte
		want []float32
	}{
		{"uint8", UInt8, []byte{128, 0, 192}, []float32{0, -1, 0.5}},
		{"int16", Int16, []byte{0x00, 0x40, 0x00, 0x80}, []float32{0.5, -1}},
		{"float32", Float32, f32, []float32{0.5, -0.25}},
		{"mulaw silence", Mulaw, []byte{0xff, 0x7f}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := NewPCMSource(bytes.NewReader(tt.data), Format{SampleRate: 8000, Channels: Mono, Type: tt.typ})
			got, err := readAll(src)
			if err != nil {
				t.Fatalf("readAll() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("sample[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPCMSourceEOF(t *testing.T) {
	t.Parallel()

	src := NewPCMSource(bytes.NewReader(nil), Format{SampleRate: 8000, Channels: Mono, Type: Int16})
	n, err := src.ReadSamples(make([]float32, 4))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = %d, %v, want 0, EOF", n, err)
	}
}

func TestPCMReader(t *testing.T) {
	t.Parallel()

	src := newConstantSource(8000, 2, 3, 0.5)
	r := NewPCMReader(src)

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(out) != 3*2*2 {
		t.Fatalf("got %d bytes, want 12", len(out))
	}
	for i := 0; i < len(out); i += 2 {
		v := int16(binary.LittleEndian.Uint16(out[i:]))
		if v < 16380 || v > 16390 {
			t.Errorf("sample %d = %d, want about 16383", i/2, v)
		}
	}
}

func TestPCMReaderShortBuffer(t *testing.T) {
	t.Parallel()

	r := NewPCMReader(newConstantSource(8000, 2, 3, 0.5))
	if _, err := r.Read(make([]byte, 3)); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Read() error = %v, want %v", err, io.ErrShortBuffer)
	}
}
