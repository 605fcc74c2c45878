// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding")
	ErrUnsupportedChannels = errors.New("unsupported WAV channel count")
	ErrMissingData         = errors.New("WAV data chunk not found")
	ErrSeekOutOfRange      = errors.New("seek past end of WAV data")
)
