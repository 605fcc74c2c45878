// SPDX-License-Identifier: EPL-2.0

package utils

import "testing"

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"full scale", 1, 32767},
		{"negative full scale", -1, -32767},
		{"half", 0.5, 16383},
		{"negative half", -0.5, -16383},
		{"clamped high", 1.5, 32767},
		{"clamped low", -100, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.in); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	int16Tests := []struct {
		in   int16
		want float32
	}{
		{0, 0},
		{-32768, -1},
		{16384, 0.5},
		{-8192, -0.25},
	}
	for _, tt := range int16Tests {
		if got := Int16ToFloat32(tt.in); got != tt.want {
			t.Errorf("Int16ToFloat32(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}

	uint8Tests := []struct {
		in   byte
		want float32
	}{
		{128, 0},
		{0, -1},
		{192, 0.5},
		{64, -0.5},
	}
	for _, tt := range uint8Tests {
		if got := UInt8ToFloat32(tt.in); got != tt.want {
			t.Errorf("UInt8ToFloat32(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMulawToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   byte
		want int16
	}{
		{0xff, 0},
		{0x7f, 0},
		{0x80, 32124},
		{0x00, -32124},
	}
	for _, tt := range tests {
		if got := MulawToInt16(tt.in); got != tt.want {
			t.Errorf("MulawToInt16(%#x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMulawSymmetry(t *testing.T) {
	t.Parallel()

	for u := range 128 {
		pos := MulawToInt16(byte(u) | 0x80)
		neg := MulawToInt16(byte(u))
		if pos != -neg {
			t.Errorf("MulawToInt16(%#x) = %d, MulawToInt16(%#x) = %d, want opposite", u|0x80, pos, u, neg)
		}
	}
}
