// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	// ErrNotAiffFile indicates the stream is not a valid AIFF file
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrUnsupportedBitDepth indicates a sample width the decoder cannot map
	ErrUnsupportedBitDepth = errors.New("unsupported AIFF bit depth")

	// ErrUnsupportedAiffLayout indicates an unsupported AIFF channel layout
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")

	// ErrSeekOutOfRange indicates a seek beyond the last frame
	ErrSeekOutOfRange = errors.New("seek past end of AIFF data")
)
