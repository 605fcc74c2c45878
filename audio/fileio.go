// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"os"
)

// FileOpener opens a named resource as a seekable stream. Implementations
// report a missing resource with an error matching fs.ErrNotExist.
type FileOpener interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// OpenerFunc adapts a function to FileOpener.
type OpenerFunc func(name string) (io.ReadSeekCloser, error)

func (f OpenerFunc) Open(name string) (io.ReadSeekCloser, error) {
	return f(name)
}

// OSOpener opens resources from the local filesystem.
type OSOpener struct{}

func (OSOpener) Open(name string) (io.ReadSeekCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return f, nil
}
