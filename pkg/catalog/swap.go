package catalog

import (
	"context"
	"sync/atomic"

	"github.com/bastiangx/suggestserve/pkg/suggest"
)

type catalogRef struct {
	catalog suggest.Catalog
}

// Swappable forwards to a catalog that can be replaced while serving,
// e.g. a memory index rebuilt from a fresh snapshot.
type Swappable struct {
	current atomic.Pointer[catalogRef]
}

// NewSwappable starts out forwarding to c.
func NewSwappable(c suggest.Catalog) *Swappable {
	s := &Swappable{}
	s.Swap(c)
	return s
}

// Swap replaces the catalog. In-flight searches finish on the old one.
func (s *Swappable) Swap(c suggest.Catalog) {
	s.current.Store(&catalogRef{catalog: c})
}

// Current returns the catalog searches are forwarded to.
func (s *Swappable) Current() suggest.Catalog {
	return s.current.Load().catalog
}

// Search implements suggest.Catalog.
func (s *Swappable) Search(ctx context.Context, req suggest.SearchRequest) ([]suggest.CatalogEntry, error) {
	return s.Current().Search(ctx, req)
}
