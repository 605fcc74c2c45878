// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelConfig describes the speaker layout of interleaved frames.
type ChannelConfig int

const (
	Mono ChannelConfig = iota + 1
	Stereo
	Rear
	Quad
	X51
	X61
	X71
	BFormat2D
	BFormat3D
)

// Count returns the number of interleaved channels per frame, or 0 for an
// unknown configuration.
func (c ChannelConfig) Count() int {
	switch c {
	case Mono:
		return 1
	case Stereo, Rear:
		return 2
	case BFormat2D:
		return 3
	case Quad, BFormat3D:
		return 4
	case X51:
		return 6
	case X61:
		return 7
	case X71:
		return 8
	default:
		return 0
	}
}

func (c ChannelConfig) String() string {
	switch c {
	case Mono:
		return "Mono"
	case Stereo:
		return "Stereo"
	case Rear:
		return "Rear"
	case Quad:
		return "Quadrophonic"
	case X51:
		return "5.1 Surround"
	case X61:
		return "6.1 Surround"
	case X71:
		return "7.1 Surround"
	case BFormat2D:
		return "B-Format 2D"
	case BFormat3D:
		return "B-Format 3D"
	default:
		return fmt.Sprintf("ChannelConfig(%d)", int(c))
	}
}

// ChannelConfigFromCount maps a plain channel count to the layout decoders
// usually mean by it.
func ChannelConfigFromCount(n int) (ChannelConfig, bool) {
	switch n {
	case 1:
		return Mono, true
	case 2:
		return Stereo, true
	case 4:
		return Quad, true
	case 6:
		return X51, true
	case 7:
		return X61, true
	case 8:
		return X71, true
	default:
		return 0, false
	}
}

// SampleType is the encoding of a single sample.
type SampleType int

const (
	UInt8 SampleType = iota + 1
	Int16
	Float32
	Mulaw
)

// Size returns the byte width of one sample, or 0 for an unknown type.
func (t SampleType) Size() int {
	switch t {
	case UInt8, Mulaw:
		return 1
	case Int16:
		return 2
	case Float32:
		return 4
	default:
		return 0
	}
}

func (t SampleType) String() string {
	switch t {
	case UInt8:
		return "Unsigned 8-bit"
	case Int16:
		return "Signed 16-bit"
	case Float32:
		return "32-bit float"
	case Mulaw:
		return "Mulaw"
	default:
		return fmt.Sprintf("SampleType(%d)", int(t))
	}
}

// Format groups the properties that decide how a byte payload is laid out.
type Format struct {
	SampleRate int
	Channels   ChannelConfig
	Type       SampleType
}

// FrameSize is the number of bytes in one interleaved frame.
func (f Format) FrameSize() int {
	return f.Channels.Count() * f.Type.Size()
}

func (f Format) String() string {
	return fmt.Sprintf("%s, %s, %dhz", f.Type, f.Channels, f.SampleRate)
}

// FramesToBytes converts a frame count to a byte count for the layout.
func FramesToBytes(frames uint64, chans ChannelConfig, typ SampleType) uint64 {
	return frames * uint64(chans.Count()) * uint64(typ.Size())
}

// BytesToFrames converts a byte count to whole frames for the layout.
func BytesToFrames(size uint64, chans ChannelConfig, typ SampleType) uint64 {
	frameSize := uint64(chans.Count()) * uint64(typ.Size())
	if frameSize == 0 {
		return 0
	}
	return size / frameSize
}

// LoopPoints is a [Start, End) frame range.
type LoopPoints struct {
	Start uint64
	End   uint64
}

// Clamp normalizes loop points against a frame count. A degenerate range
// (Start >= End) selects the whole buffer, otherwise End is clamped to
// frames and Start is kept below End.
func (lp LoopPoints) Clamp(frames uint64) LoopPoints {
	if lp.Start >= lp.End {
		return LoopPoints{Start: 0, End: frames}
	}
	end := min(lp.End, frames)
	if end == 0 {
		return LoopPoints{}
	}
	return LoopPoints{Start: min(lp.Start, end-1), End: end}
}
