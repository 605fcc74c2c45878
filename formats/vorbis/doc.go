// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis decoding.
//
// This package uses github.com/jfreymuth/oggvorbis, a pure Go Vorbis
// decoder, so no cgo or system libraries are needed.
//
// # Supported Formats
//
// The decoder supports:
//   - Ogg Vorbis (.ogg, .oga) in a single logical stream
//   - Any channel count with a known layout (mono, stereo, quad, 5.1, 6.1, 7.1)
//   - Any sample rate
//
// # Decoding Ogg Vorbis Files
//
// Use the Factory to probe a stream and get a Decoder:
//
//	file, _ := os.Open("audio.ogg")
//	dec, err := vorbis.Factory{}.CreateDecoder(file)
//	if err != nil {
//	    // Handle error
//	}
//	defer dec.Close()
//
//	size := audio.FramesToBytes(4096, dec.ChannelConfig(), audio.Float32)
//	buf := make([]byte, size)
//	n, err := dec.Read(buf, 4096)
//
// # Output Format
//
// Vorbis decoder output:
//   - Sample format: 32-bit float little-endian (audio.Float32) in [-1.0, 1.0]
//   - Channels: as stored in the identification header
//   - Sample rate: as stored in the identification header
//
// Vorbis is a float codec, so frames are handed out without requantizing.
// Devices that cannot play float frames report so through
// Context.IsSupported and the buffer load fails with ErrUnsupportedFormat.
//
// # Length and Seeking
//
// Length comes from the granule position of the last page, which needs a
// seekable reader; it is 0 otherwise and the stream is read until io.EOF.
// Seek hands the target frame to the library's SetPosition.
//
// # Error Handling
//
// The package defines:
//   - ErrUnsupportedChannels: the channel count has no known layout
//   - ErrSeekOutOfRange: a seek past the last frame
//
// Streams that are not Ogg Vorbis are declined with the library's own
// error.
//
// # Limitations
//
// Note:
//   - Encoding is not supported
//   - LOOPSTART and LOOPLENGTH comments are not read, LoopPoints always
//     reports none
package vorbis
