// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 decoding.
//
// This package uses github.com/hajimehoshi/go-mp3 to decode MPEG audio
// into interleaved 16-bit PCM.
//
// # Supported Formats
//
// The decoder supports:
//   - MPEG-1 and MPEG-2 Audio Layer III
//   - Constant and variable bitrates
//   - Mono and stereo streams
//
// # Decoding MP3 Files
//
// Use the Factory to probe a stream and get a Decoder:
//
//	file, _ := os.Open("audio.mp3")
//	dec, err := mp3.Factory{}.CreateDecoder(file)
//	if err != nil {
//	    // Handle error
//	}
//	defer dec.Close()
//
//	// Always stereo Int16: 4 bytes per frame
//	buf := make([]byte, 4096*4)
//	n, err := dec.Read(buf, 4096)
//
// # Output Format
//
// MP3 decoder output:
//   - Sample format: signed 16-bit little-endian (audio.Int16)
//   - Channels: always 2, mono files are duplicated by the library
//   - Sample rate: as stored in the stream (typically 44.1kHz or 48kHz)
//
// To get mono at another rate, feed the frames through the audio package:
//
//	src := audio.NewPCMSource(bytes.NewReader(pcm), audio.FormatOf(dec))
//	mono := audio.NewMonoMixer(audio.NewResampler(src, 8000))
//
// # Length and Seeking
//
// go-mp3 computes the length by scanning the stream's frame headers, which
// needs a seekable reader. When it cannot, Length reports 0 and the stream
// is read until io.EOF. Seek moves to an absolute frame through the
// library's byte-offset seek.
//
// # Limitations
//
// Note:
//   - MP3 writing is not supported (decoding only)
//   - Output is always stereo (use MonoMixer to convert)
//   - ID3 loop or cue tags are ignored, LoopPoints always reports none
package mp3
