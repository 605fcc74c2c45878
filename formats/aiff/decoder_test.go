// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audmgr/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate   int
	channels     int
	samples      []int
	offset       int
	returnErrors bool
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{
		SampleRate:  m.sampleRate,
		NumChannels: m.channels,
	}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.returnErrors {
		return 0, io.ErrUnexpectedEOF
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func newMockDecoder(t *testing.T, bitDepth int, channels int, samples []int) *Decoder {
	t.Helper()

	src := &mockAiffReader{sampleRate: 44100, channels: channels, samples: samples}
	reopen := func() (aiffReader, error) {
		return &mockAiffReader{sampleRate: 44100, channels: channels, samples: samples}, nil
	}
	dec, err := newDecoder(src, bitDepth, uint64(len(samples)/channels), reopen)
	if err != nil {
		t.Fatalf("newDecoder() error = %v", err)
	}
	return dec
}

func TestFactoryDeclines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("This is not AIFF data")},
		{"riff", []byte("RIFF\x24\x00\x00\x00WAVEfmt ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Factory{}.CreateDecoder(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrNotAiffFile) {
				t.Errorf("CreateDecoder() error = %v, want %v", err, ErrNotAiffFile)
			}
		})
	}
}

func TestNewDecoderFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		channels int
		wantType audio.SampleType
		wantErr  error
	}{
		{"8-bit mono", 8, 1, audio.UInt8, nil},
		{"16-bit stereo", 16, 2, audio.Int16, nil},
		{"24-bit stereo", 24, 2, audio.Int16, nil},
		{"4-bit", 4, 1, 0, ErrUnsupportedBitDepth},
		{"3 channels", 16, 3, 0, ErrUnsupportedAiffLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &mockAiffReader{sampleRate: 22050, channels: tt.channels}
			dec, err := newDecoder(src, tt.bitDepth, 0, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("newDecoder() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("newDecoder() error = %v", err)
			}
			if dec.SampleType() != tt.wantType {
				t.Errorf("SampleType() = %v, want %v", dec.SampleType(), tt.wantType)
			}
			if dec.SampleRate() != 22050 {
				t.Errorf("SampleRate() = %d, want 22050", dec.SampleRate())
			}
		})
	}
}

func TestDecoderRead16(t *testing.T) {
	t.Parallel()

	dec := newMockDecoder(t, 16, 2, []int{100, -100, 200, -200, 300, -300})

	buf := make([]byte, 16)
	n, err := dec.Read(buf, 4)
	if err != nil || n != 3 {
		t.Fatalf("Read() = %d, %v, want 3, nil", n, err)
	}
	want := []int16{100, -100, 200, -200, 300, -300}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(buf[2*i:])); got != w {
			t.Errorf("sample[%d] = %d, want %d", i, got, w)
		}
	}
	if _, err := dec.Read(buf, 4); !errors.Is(err, io.EOF) {
		t.Errorf("Read() at end error = %v, want EOF", err)
	}
}

func TestDecoderReadWidthConversion(t *testing.T) {
	t.Parallel()

	dec8 := newMockDecoder(t, 8, 1, []int{-128, 0, 127})
	buf := make([]byte, 3)
	if n, err := dec8.Read(buf, 3); err != nil || n != 3 {
		t.Fatalf("8-bit Read() = %d, %v", n, err)
	}
	if !bytes.Equal(buf, []byte{0, 128, 255}) {
		t.Errorf("8-bit bytes = %v, want [0 128 255]", buf)
	}

	dec24 := newMockDecoder(t, 24, 1, []int{1 << 16, -(1 << 16)})
	buf = make([]byte, 4)
	if n, err := dec24.Read(buf, 2); err != nil || n != 2 {
		t.Fatalf("24-bit Read() = %d, %v", n, err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf)); got != 256 {
		t.Errorf("24-bit sample[0] = %d, want 256", got)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got != -256 {
		t.Errorf("24-bit sample[1] = %d, want -256", got)
	}
}

func TestDecoderSeek(t *testing.T) {
	t.Parallel()

	dec := newMockDecoder(t, 16, 1, []int{0, 1, 2, 3, 4, 5, 6, 7})

	if err := dec.Seek(5); err != nil {
		t.Fatalf("Seek(5) error = %v", err)
	}
	buf := make([]byte, 2)
	if _, err := dec.Read(buf, 1); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf)); got != 5 {
		t.Errorf("after Seek(5) sample = %d, want 5", got)
	}

	// Backwards seeks reopen the stream.
	if err := dec.Seek(2); err != nil {
		t.Fatalf("Seek(2) error = %v", err)
	}
	if _, err := dec.Read(buf, 1); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf)); got != 2 {
		t.Errorf("after Seek(2) sample = %d, want 2", got)
	}
	if dec.Position() != 3 {
		t.Errorf("Position() = %d, want 3", dec.Position())
	}

	if err := dec.Seek(9); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("Seek(9) error = %v, want %v", err, ErrSeekOutOfRange)
	}
}

func TestDecoderReadError(t *testing.T) {
	t.Parallel()

	src := &mockAiffReader{sampleRate: 8000, channels: 1, returnErrors: true}
	dec, err := newDecoder(src, 16, 4, nil)
	if err != nil {
		t.Fatalf("newDecoder() error = %v", err)
	}
	_, err = dec.Read(make([]byte, 8), 4)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}
