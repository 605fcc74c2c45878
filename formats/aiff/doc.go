// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF and AIFF-C decoding.
//
// This package uses github.com/go-audio/aiff to parse the container and
// read samples. AIFF is Apple's interchange format and stores big-endian
// integer PCM.
//
// # Supported Formats
//
// Currently supported:
//   - AIFF and uncompressed AIFF-C
//   - 8, 16, 24 and 32-bit integer samples
//   - Any channel count with a known layout (mono, stereo, quad, 5.1, 6.1, 7.1)
//   - Any sample rate
//
// # Decoding AIFF Files
//
// Use the Factory to probe a stream and get a Decoder:
//
//	file, _ := os.Open("audio.aif")
//	dec, err := aiff.Factory{}.CreateDecoder(file)
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
// AIFF decoder output:
//   - 8-bit files: unsigned 8-bit frames (audio.UInt8)
//   - Wider files: signed 16-bit little-endian frames (audio.Int16), with
//     24 and 32-bit samples shifted down to 16 bits
//   - Channels and sample rate: as stored in the COMM chunk
//
// # Seeking
//
// AIFF sound data has no index. Seeking forward decodes and discards frames;
// seeking backwards rewinds the stream, parses the header again and skips
// ahead from the first frame. Both are linear in the distance covered.
//
// # Error Handling
//
// The package defines:
//   - ErrNotAiffFile: the input is not a FORM/AIFF or FORM/AIFC file
//   - ErrUnsupportedBitDepth: a sample width the decoder cannot map
//   - ErrUnsupportedAiffLayout: a missing COMM chunk or unknown channel count
//   - ErrSeekOutOfRange: a seek past the last frame or one that cannot rewind
//
// # Limitations
//
// Note:
//   - Compressed AIFF-C variants are not decoded
//   - MARK and INST loops are not read, LoopPoints always reports none
//   - Writing AIFF is not supported
package aiff
