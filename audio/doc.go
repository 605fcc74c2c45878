// SPDX-License-Identifier: EPL-2.0

// Package audio holds the format vocabulary and the decoding building blocks
// shared by the resource manager, the format decoders and the devices.
//
// # Formats
//
// A Format is a sample rate, a ChannelConfig and a SampleType. Byte sizes
// are derived from the last two:
//
//	size := audio.FramesToBytes(frames, audio.Stereo, audio.Int16)
//
// # Decoders
//
// A Decoder is a seekable cursor over frames of raw interleaved PCM in its
// declared format. Factories probe a stream and either return a Decoder or
// decline it with an error. The Registry tries user factories newest-first
// and then the built-in ones, rewinding the stream after every decline:
//
//	reg := audio.NewRegistry(audio.NamedFactory{Name: "wav", Factory: wav.Factory{}})
//	dec, name, err := reg.Probe("sound.wav", f)
//
// # Sample sources
//
// SampleSource is a float32 view of PCM used on the playback side.
// PCMSource adapts raw bytes, Resampler changes the rate with cubic
// interpolation, MonoMixer and StereoUpmixer fix the channel count and
// PCMReader renders the result back to signed 16-bit bytes:
//
//	src := audio.NewPCMSource(bytes.NewReader(pcm), format)
//	r := audio.NewPCMReader(audio.NewStereoUpmixer(audio.NewResampler(src, 48000)))
//
// All of them return io.EOF once the stream is finished.
package audio
