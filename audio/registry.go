// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// NamedFactory pairs a decoder factory with its registry name.
type NamedFactory struct {
	Name    string
	Factory Factory
}

// Registry holds decoder factories and probes streams against them.
// User factories are tried newest-first, then the built-in factories in the
// order they were given to NewRegistry. All methods are safe for concurrent
// use.
type Registry struct {
	user     []NamedFactory
	builtins []NamedFactory

	mtx *sync.Mutex
}

func NewRegistry(builtins ...NamedFactory) *Registry {
	return &Registry{
		builtins: slices.Clone(builtins),
		mtx:      &sync.Mutex{},
	}
}

// Register adds a user factory. It fails with ErrDuplicateName if the name
// is already taken by a user or built-in factory.
func (r *Registry) Register(name string, f Factory) error {
	if f == nil {
		return errors.New("nil decoder factory")
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.indexLocked(r.user, name) >= 0 || r.indexLocked(r.builtins, name) >= 0 {
		return fmt.Errorf("%w: decoder factory %q already registered", ErrDuplicateName, name)
	}

	r.user = append(r.user, NamedFactory{Name: name, Factory: f})
	return nil
}

// Unregister removes a user factory and returns it, or nil if no user
// factory has that name. Built-in factories cannot be removed.
func (r *Registry) Unregister(name string) Factory {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	i := r.indexLocked(r.user, name)
	if i < 0 {
		return nil
	}
	f := r.user[i].Factory
	r.user = slices.Delete(r.user, i, i+1)
	return f
}

func (r *Registry) Get(name string) (Factory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if i := r.indexLocked(r.user, name); i >= 0 {
		return r.user[i].Factory, true
	}
	if i := r.indexLocked(r.builtins, name); i >= 0 {
		return r.builtins[i].Factory, true
	}
	return nil, false
}

// Order returns the factories in the order Probe tries them.
func (r *Registry) Order() []NamedFactory {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	order := make([]NamedFactory, 0, len(r.user)+len(r.builtins))
	for i := len(r.user) - 1; i >= 0; i-- {
		order = append(order, r.user[i])
	}
	return append(order, r.builtins...)
}

// Probe offers rs to each factory in turn and returns the first decoder
// produced along with the name of the factory that made it. After every
// decline the stream is rewound to its start; a stream that cannot be
// rewound fails with ErrDecodeSetupFailed.
func (r *Registry) Probe(name string, rs io.ReadSeeker) (Decoder, string, error) {
	// Probing runs without the lock so a slow factory does not block
	// registration from other goroutines.
	for _, nf := range r.Order() {
		dec, err := nf.Factory.CreateDecoder(rs)
		if err == nil && dec != nil {
			return dec, nf.Name, nil
		}

		if _, serr := rs.Seek(0, io.SeekStart); serr != nil {
			return nil, "", fmt.Errorf("%w: failed to rewind %s for the next decoder factory: %w",
				ErrDecodeSetupFailed, name, serr)
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrNoDecoderAvailable, name)
}

func (r *Registry) indexLocked(list []NamedFactory, name string) int {
	return slices.IndexFunc(list, func(nf NamedFactory) bool { return nf.Name == name })
}

// WithCloser returns a Decoder whose Close also closes c, for handing the
// opened stream's ownership to the decoder.
func WithCloser(d Decoder, c io.Closer) Decoder {
	return &closingDecoder{Decoder: d, c: c}
}

type closingDecoder struct {
	Decoder
	c io.Closer
}

func (d *closingDecoder) Close() error {
	return errors.Join(d.Decoder.Close(), d.c.Close())
}

// Unwrap returns the decoder a factory produced, looking through
// WithCloser.
func Unwrap(d Decoder) Decoder {
	if cd, ok := d.(*closingDecoder); ok {
		return cd.Decoder
	}
	return d
}
