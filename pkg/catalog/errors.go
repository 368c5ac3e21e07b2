package catalog

import (
	"fmt"

	"github.com/bastiangx/suggestserve/pkg/suggest"
)

// Error is returned by every backend when a search cannot be served.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match suggest.ErrCatalogUnavailable.
func (e *Error) Is(target error) bool {
	return target == suggest.ErrCatalogUnavailable
}

func newError(backend, op string, err error) *Error {
	return &Error{Backend: backend, Op: op, Err: err}
}
