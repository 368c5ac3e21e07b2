package suggest

import "strings"

// ProductType is the only catalog item type suggestions are built from.
const ProductType = "product"

const (
	DefaultMinToSearch = 3
	DefaultResultNum   = 6
)

// VisibilityTerm is an opaque catalog visibility identifier.
type VisibilityTerm string

const (
	ExcludeFromSearch VisibilityTerm = "exclude-from-search"
	OutOfStock        VisibilityTerm = "outofstock"
)

// ExclusionSet lists the visibility terms an entry must not carry.
type ExclusionSet []VisibilityTerm

// Contains reports whether t is part of the set.
func (s ExclusionSet) Contains(t VisibilityTerm) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings, keeping order.
func (s ExclusionSet) Strings() []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = string(v)
	}
	return out
}

// Options holds the tunables read at request time.
type Options struct {
	MinToSearch int
	ResultNum   int
	// OutOfStock is the explicit out-of-stock override. nil means unset.
	OutOfStock *bool
	// HideOutOfStock is the store wide default.
	HideOutOfStock bool
}

// WithDefaults fills zero or negative limits with the documented defaults.
func (o Options) WithDefaults() Options {
	if o.MinToSearch <= 0 {
		o.MinToSearch = DefaultMinToSearch
	}
	if o.ResultNum <= 0 {
		o.ResultNum = DefaultResultNum
	}
	return o
}

// SearchRequest is built once per call and never changed afterwards.
type SearchRequest struct {
	Term     string
	Limit    int
	PostType string
	Excluded ExclusionSet
}

// CatalogEntry is one product record as returned by a Catalog.
type CatalogEntry struct {
	ID           int64
	Title        string
	Permalink    string
	ThumbnailURL *string
	PriceHTML    string
	Purchasable  bool
	Variable     bool
}

// Suggestion is the transport shape of a single entry.
type Suggestion struct {
	ID          int64
	Label       string
	Link        string
	Image       *string
	Price       string
	Purchasable bool
}

// NormalizeTerm lower-cases and trims a raw client term.
func NormalizeTerm(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
