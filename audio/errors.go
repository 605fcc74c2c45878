// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrResourceNotFound is returned when a named resource cannot be opened
	// and no substitute was supplied.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrNoDecoderAvailable is returned when every decoder factory declined.
	ErrNoDecoderAvailable = errors.New("no decoder available")

	// ErrDecodeSetupFailed is returned when a stream cannot be rewound for
	// the next decoder factory.
	ErrDecodeSetupFailed = errors.New("decoder setup failed")

	// ErrUnsupportedFormat is returned for a channel/sample type pair the
	// device cannot represent.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoSamples is returned when a decode yields zero frames.
	ErrNoSamples = errors.New("no samples for buffer")

	// ErrHardwareAllocationFailed is returned when the device refuses to
	// allocate or fill a buffer.
	ErrHardwareAllocationFailed = errors.New("hardware allocation failed")

	// ErrDuplicateName is returned on a cache or registry name collision.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrBufferInUse is returned when removing or changing a buffer that is
	// still referenced by a source.
	ErrBufferInUse = errors.New("buffer in use")

	// ErrNoAvailableVoices is returned when no voice could be allocated or
	// reclaimed for a source.
	ErrNoAvailableVoices = errors.New("no available voices")

	// ErrContextMisuse is returned when an operation runs without its context
	// current, or a context is torn down while still in use.
	ErrContextMisuse = errors.New("context misuse")

	// ErrBufferLoadFailed is returned when a cached buffer failed to load in
	// the background.
	ErrBufferLoadFailed = errors.New("buffer load failed")

	// ErrBufferNotReady is returned when a buffer is used before its
	// background load finished.
	ErrBufferNotReady = errors.New("buffer not ready")

	// ErrInvalidLoopPoints is returned for a loop range outside the buffer.
	ErrInvalidLoopPoints = errors.New("invalid loop points")
)
