// SPDX-License-Identifier: EPL-2.0

// Package audmgr manages playback resources for a low-latency audio engine.
//
// A Context owns a cache of decoded buffers, a pool of hardware voices shared
// by logical sources, the set of sources playing from a stream, and a
// background worker that loads buffers and keeps streams fed.
//
// # Contexts
//
// Buffer and source operations need their Context to be current, either
// process-wide through MakeCurrent or on a Thread when the device supports
// thread-local contexts:
//
//	dev := device.NewMemory(32)
//	ctx, err := audmgr.NewContext(dev, audmgr.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	if err := audmgr.MakeCurrent(ctx); err != nil {
//		return err
//	}
//	defer ctx.Destroy()
//	defer audmgr.MakeCurrent(nil)
//
// # Buffers
//
// GetBuffer decodes a whole resource before returning. GetBufferAsync returns
// a Pending buffer immediately and leaves the decode to the worker; poll
// Buffer.LoadStatus or call GetBuffer to wait for it.
//
//	buf, err := ctx.GetBufferAsync("music/theme.ogg")
//	...
//	for buf.LoadStatus() == audmgr.Pending {
//		ctx.Update()
//	}
//
// # Sources and voices
//
// A device exposes a fixed number of voices. When all are taken, playing a
// source evicts the lowest priority source below the requester's priority;
// the evicted source is reported through MessageHandler.SourceStopped with
// forced set.
//
// Decoders are chosen by probing the registered factories in turn. Formats
// built in: WAV, Ogg Vorbis, FLAC, AIFF and MP3 (see the formats packages).
package audmgr
