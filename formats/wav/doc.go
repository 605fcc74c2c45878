// SPDX-License-Identifier: EPL-2.0

// Package wav provides RIFF/WAVE decoding and 16-bit PCM writing.
//
// Headers are parsed with github.com/go-audio/wav. The decoder then reads
// the data chunk directly, so frames come out in the file's own layout and
// no sample conversion happens on the way.
//
// # Supported Formats
//
// Currently supported:
//   - PCM 8-bit (unsigned) and 16-bit (signed little-endian)
//   - IEEE float 32-bit
//   - G.711 mu-law
//   - WAVE_FORMAT_EXTENSIBLE wrapping 8 or 16-bit PCM
//   - Mono, stereo, quad, 5.1, 6.1 and 7.1
//   - Any sample rate
//
// # Decoding WAV Files
//
// Use the Factory to probe a stream and get a Decoder:
//
//	file, _ := os.Open("audio.wav")
//	dec, err := wav.Factory{}.CreateDecoder(file)
//	if err != nil {
//	    // Not a WAV file, or an encoding this package cannot hand out
//	}
//	defer dec.Close()
//
//	// Read raw frames in the declared format
//	size := audio.FramesToBytes(4096, dec.ChannelConfig(), dec.SampleType())
//	buf := make([]byte, size)
//	n, err := dec.Read(buf, 4096)
//
// Read returns whole frames and io.EOF once the data chunk is exhausted.
// Seek jumps straight to any frame, the data chunk is addressed by offset.
//
// # Data Length
//
// Length is taken from the data chunk's declared size, bounded by the bytes
// actually left in the stream. Files written by a recorder that never went
// back to patch the size carry 0xFFFFFFFF there; they are read to the end
// of the stream. A truncated data chunk ends the stream early instead of
// failing the read.
//
// # Loop Points
//
// A loop in a smpl chunk placed ahead of the data chunk is reported through
// LoopPoints as a half-open frame range:
//
//	start, end := dec.LoopPoints()
//	if start < end {
//	    // frames [start, end) repeat
//	}
//
// # Writing WAV Files
//
// WriteWAV16 writes interleaved 16-bit samples as a canonical file and
// WritePCM does the same for samples that are already little-endian bytes:
//
//	samples := []int16{100, -100, 200, -200}
//	file, _ := os.Create("output.wav")
//	err := wav.WriteWAV16(file, 8000, 2, samples)
//
// # Error Handling
//
// The package defines several errors, all usable with errors.Is:
//   - ErrNotWavFile: the input is not a RIFF/WAVE file
//   - ErrUnsupportedEncoding: the format tag or bit depth has no mapping
//   - ErrUnsupportedChannels: the channel count has no known layout
//   - ErrMissingData: the file has no data chunk
//   - ErrSeekOutOfRange: a seek past the last frame
//
// Example:
//
//	dec, err := wav.Factory{}.CreateDecoder(file)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // let the next factory try
//	}
//
// # File Format
//
// WAV files consist of:
//   - RIFF header (12 bytes)
//   - fmt chunk: format tag, channels, sample rate, block align, bit depth
//   - optional chunks such as smpl or LIST
//   - data chunk: the interleaved samples
package wav
