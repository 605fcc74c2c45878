// SPDX-License-Identifier: EPL-2.0

// Package flac provides FLAC decoding.
//
// This package uses github.com/mewkiz/flac to parse and decode FLAC streams
// block by block.
//
// # Supported Formats
//
// The decoder supports:
//   - Native FLAC streams (.flac)
//   - Mono and stereo
//   - 8 to 32 bits per sample
//   - Any sample rate
//
// # Decoding FLAC Files
//
// Use the Factory to probe a stream and get a Decoder:
//
//	file, _ := os.Open("audio.flac")
//	dec, err := flac.Factory{}.CreateDecoder(file)
//	if err != nil {
//	    // Handle error
//	}
//	defer dec.Close()
//
//	buf := make([]byte, audio.FramesToBytes(4096, dec.ChannelConfig(), dec.SampleType()))
//	n, err := dec.Read(buf, 4096)
//
// # Output Format
//
// FLAC decoder output:
//   - 8-bit streams: unsigned 8-bit frames (audio.UInt8)
//   - Every other width: signed 16-bit little-endian frames (audio.Int16),
//     wider samples are shifted down and narrower ones shifted up
//   - Sample rate: as stored in STREAMINFO
//
// # Length and Seeking
//
// Length is the sample count from STREAMINFO, 0 when the encoder left it
// unset. Seek lands on the block holding the target frame, using a
// SEEKTABLE when the stream has one, and skips forward inside that block.
//
// # Error Handling
//
// The package defines:
//   - ErrUnsupportedChannels: more than two channels, or a block with fewer
//     subframes than the stream declares
//   - ErrSeekOutOfRange: a seek past the last frame
//
// # Limitations
//
// Note:
//   - Ogg-encapsulated FLAC is not decoded
//   - Multichannel layouts beyond stereo are declined
//   - FLAC carries no loop markers, LoopPoints always reports none
//   - Close leaves the underlying stream to the caller
package flac
