// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/formats/aiff"
	"github.com/ik5/audmgr/formats/flac"
	"github.com/ik5/audmgr/formats/mp3"
	"github.com/ik5/audmgr/formats/vorbis"
	"github.com/ik5/audmgr/formats/wav"
)

// Registration is guarded by the registry's lock, so decoders may be added
// or removed while contexts are loading.
var decoders = NewDecoderRegistry()

// NewDecoderRegistry returns a registry holding only the built-in formats.
func NewDecoderRegistry() *audio.Registry {
	return audio.NewRegistry(
		audio.NamedFactory{Name: "wav", Factory: wav.Factory{}},
		audio.NamedFactory{Name: "vorbis", Factory: vorbis.Factory{}},
		audio.NamedFactory{Name: "flac", Factory: flac.Factory{}},
		audio.NamedFactory{Name: "aiff", Factory: aiff.Factory{}},
		audio.NamedFactory{Name: "mp3", Factory: mp3.Factory{}},
	)
}

// RegisterDecoder adds a factory to the process-wide registry. User
// factories are probed newest first, ahead of the built-in formats.
func RegisterDecoder(name string, f audio.Factory) error {
	return decoders.Register(name, f)
}

// UnregisterDecoder removes a user factory and returns it, or nil when
// none has that name.
func UnregisterDecoder(name string) audio.Factory {
	return decoders.Unregister(name)
}
