// SPDX-License-Identifier: EPL-2.0

package audmgr

import "github.com/ik5/audmgr/audio"

// MessageHandler receives notifications from a Context. Methods are called
// without any Context lock held, from the caller's goroutine or the worker,
// so a handler may switch current contexts.
type MessageHandler interface {
	// DeviceDisconnected fires once when Update notices the device is gone.
	DeviceDisconnected()
	// SourceStopped reports a source that finished playing. forced is true
	// when its voice was taken for a higher priority source.
	SourceStopped(src *Source, forced bool)
	// BufferLoading sees a decoded payload right before it is uploaded.
	// data must not be retained.
	BufferLoading(name string, chans audio.ChannelConfig, typ audio.SampleType, sampleRate int, data []byte)
	// ResourceNotFound may return another name to try when name cannot be
	// opened. An empty string gives up.
	ResourceNotFound(name string) string
}

// NopMessageHandler ignores every notification. Embed it to implement only
// some methods.
type NopMessageHandler struct{}

func (NopMessageHandler) DeviceDisconnected()         {}
func (NopMessageHandler) SourceStopped(*Source, bool) {}

func (NopMessageHandler) BufferLoading(string, audio.ChannelConfig, audio.SampleType, int, []byte) {
}

func (NopMessageHandler) ResourceNotFound(string) string { return "" }
