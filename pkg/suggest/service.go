package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// ErrCatalogUnavailable marks every failure coming out of the Catalog.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Service composes the visibility policy, the catalog and the formatter.
// It keeps no state between calls and is safe for concurrent use.
type Service struct {
	catalog Catalog
	options OptionsProvider
}

// NewService returns a Service reading its options from provider on every call.
func NewService(catalog Catalog, provider OptionsProvider) *Service {
	return &Service{
		catalog: catalog,
		options: provider,
	}
}

// Suggestions normalizes rawTerm and returns the formatted catalog matches.
//
// Terms shorter than the configured minimum yield an empty list without
// touching the catalog. Catalog failures are returned wrapped in
// ErrCatalogUnavailable and never retried.
func (s *Service) Suggestions(ctx context.Context, rawTerm string) ([]Suggestion, error) {
	opts := s.options.SearchOptions().WithDefaults()
	term := NormalizeTerm(rawTerm)

	if utf8.RuneCountInString(term) < opts.MinToSearch {
		log.Debugf("Term too short: %q (min %d)", term, opts.MinToSearch)
		return []Suggestion{}, nil
	}

	req := SearchRequest{
		Term:     term,
		Limit:    opts.ResultNum,
		PostType: ProductType,
		Excluded: Exclusions(opts),
	}

	start := time.Now()
	entries, err := s.catalog.Search(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCatalogUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	log.Debug("catalog search",
		"term", term,
		"limit", req.Limit,
		"excluded", req.Excluded.Strings(),
		"count", len(entries),
		"took", time.Since(start))

	return FormatAll(entries), nil
}
