// SPDX-License-Identifier: EPL-2.0

package audio

import "io"

// SampleSource is a stream of interleaved float32 samples.
type SampleSource interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder is a seekable cursor over decoded frames. A Decoder is owned by
// exactly one consumer until it has been fully read and closed.
type Decoder interface {
	SampleRate() int
	ChannelConfig() ChannelConfig
	SampleType() SampleType

	// Length is the total frame count, or 0 when it is not known.
	Length() uint64
	// Position is the index of the next frame Read will return.
	Position() uint64
	// Seek moves the cursor to an absolute frame.
	Seek(frame uint64) error
	// LoopPoints reports loop markers found in the stream. A pair with
	// start >= end means the stream carries none.
	LoopPoints() (start, end uint64)

	// Read decodes up to frames frames into dst, which must hold at least
	// FramesToBytes(frames, ...) bytes. It returns the number of frames
	// written and io.EOF once the stream is exhausted.
	Read(dst []byte, frames int) (int, error)

	Close() error
}

// Factory probes a stream and returns a Decoder for it. Returning an error
// declines the stream; the registry rewinds it for the next factory.
type Factory interface {
	CreateDecoder(r io.ReadSeeker) (Decoder, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(r io.ReadSeeker) (Decoder, error)

func (f FactoryFunc) CreateDecoder(r io.ReadSeeker) (Decoder, error) {
	return f(r)
}

// FormatOf collects a decoder's output format.
func FormatOf(d Decoder) Format {
	return Format{
		SampleRate: d.SampleRate(),
		Channels:   d.ChannelConfig(),
		Type:       d.SampleType(),
	}
}
