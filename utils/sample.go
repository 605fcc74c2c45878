// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1, 1] and scales it to a signed 16-bit
// sample. The scale is symmetric so +1 and -1 map to ±32767.
func Float32ToInt16(x float32) int16 {
	x = min(max(x, -1), 1)
	return int16(x * 32767)
}

func Int16ToFloat32(s int16) float32 {
	return float32(s) / 32768
}

// UInt8ToFloat32 converts an unsigned 8-bit sample centered on 128.
func UInt8ToFloat32(b byte) float32 {
	return (float32(b) - 128) / 128
}

// MulawToInt16 expands one G.711 mu-law byte.
func MulawToInt16(u byte) int16 {
	u = ^u
	exponent := (u >> 4) & 0x07
	mantissa := int32(u & 0x0f)
	sample := ((mantissa << 3) + 0x84) << exponent
	sample -= 0x84
	if u&0x80 != 0 {
		return int16(-sample)
	}
	return int16(sample)
}
