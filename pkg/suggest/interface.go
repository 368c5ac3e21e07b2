// Package suggest is the core, turning a typed term into a bounded list of display-ready product suggestions.
//
// It owns term intake, visibility filtering, result shaping and truncation.
// Matching and ranking belong to the Catalog it is given.
package suggest

import "context"

// ISuggester defines the interface for suggestion services
type ISuggester interface {
	// Suggestions returns at most Options.ResultNum suggestions for a raw term
	Suggestions(ctx context.Context, rawTerm string) ([]Suggestion, error)
}

// Catalog is the search capability suggestions are drawn from.
// Implementations match and rank; they must honour req.Limit, req.PostType
// and drop entries tagged with any term in req.Excluded.
type Catalog interface {
	Search(ctx context.Context, req SearchRequest) ([]CatalogEntry, error)
}

// OptionsProvider hands out the current search options. It is read once per request.
type OptionsProvider interface {
	SearchOptions() Options
}

// OptionsFunc adapts a plain function to an OptionsProvider.
type OptionsFunc func() Options

func (f OptionsFunc) SearchOptions() Options { return f() }

// Static returns a provider that always yields opts.
func Static(opts Options) OptionsProvider {
	return OptionsFunc(func() Options { return opts })
}
