// SPDX-License-Identifier: EPL-2.0

package audmgr

import "errors"

// ErrInvalidStreamWindow is returned by Source.PlayStream for a chunk size
// below one frame or fewer than two chunks.
var ErrInvalidStreamWindow = errors.New("invalid stream window")
