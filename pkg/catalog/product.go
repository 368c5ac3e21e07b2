/*
Package catalog implements the product search backends behind suggest.Catalog.

Three backends are provided:

  - Index, an in-memory Patricia trie over a msgpack catalog snapshot
  - Meili, a Meilisearch index queried over HTTP
  - Cached, a Redis result cache that wraps either of the above

The backends own matching and ranking. They only ever return entries of the
requested post type and never return entries tagged with an excluded
visibility term.
*/
package catalog

import (
	"strings"

	"github.com/bastiangx/suggestserve/pkg/suggest"
)

const (
	StatusPublish = "publish"
	KindVariable  = "variable"
)

// Product is one catalog record as exported from the store.
// The same shape is used for snapshots and for Meilisearch documents.
type Product struct {
	ID          int64    `msgpack:"id" json:"id"`
	Type        string   `msgpack:"type" json:"type"`
	Status      string   `msgpack:"status" json:"status"`
	Kind        string   `msgpack:"kind" json:"kind"`
	Title       string   `msgpack:"title" json:"title"`
	Content     string   `msgpack:"content,omitempty" json:"content,omitempty"`
	Excerpt     string   `msgpack:"excerpt,omitempty" json:"excerpt,omitempty"`
	SKU         string   `msgpack:"sku,omitempty" json:"sku,omitempty"`
	Tags        []string `msgpack:"tags,omitempty" json:"tags,omitempty"`
	Categories  []string `msgpack:"categories,omitempty" json:"categories,omitempty"`
	Permalink   string   `msgpack:"permalink" json:"permalink"`
	Thumbnail   string   `msgpack:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	PriceHTML   string   `msgpack:"price_html" json:"price_html"`
	Purchasable bool     `msgpack:"purchasable" json:"purchasable"`
	Visibility  []string `msgpack:"visibility,omitempty" json:"visibility,omitempty"`
}

// Entry converts the record to the shape the suggest core consumes.
func (p Product) Entry() suggest.CatalogEntry {
	var thumb *string
	if p.Thumbnail != "" {
		t := p.Thumbnail
		thumb = &t
	}
	return suggest.CatalogEntry{
		ID:           p.ID,
		Title:        p.Title,
		Permalink:    p.Permalink,
		ThumbnailURL: thumb,
		PriceHTML:    p.PriceHTML,
		Purchasable:  p.Purchasable,
		Variable:     p.Kind == KindVariable,
	}
}

// Hidden reports whether the product carries any of the excluded visibility terms.
func (p Product) Hidden(excluded suggest.ExclusionSet) bool {
	for _, v := range p.Visibility {
		if excluded.Contains(suggest.VisibilityTerm(v)) {
			return true
		}
	}
	return false
}

// Field returns the searchable text of a named field.
// Unknown field names yield an empty string.
func (p Product) Field(name string) string {
	switch name {
	case FieldTitle:
		return p.Title
	case FieldContent:
		return p.Content
	case FieldExcerpt:
		return p.Excerpt
	case FieldSKU:
		return p.SKU
	case FieldTags:
		return strings.Join(p.Tags, " ")
	case FieldCategories:
		return strings.Join(p.Categories, " ")
	}
	return ""
}

// Searchable field names accepted by the where_to_search setting.
const (
	FieldTitle      = "title"
	FieldContent    = "content"
	FieldExcerpt    = "excerpt"
	FieldSKU        = "sku"
	FieldTags       = "tags"
	FieldCategories = "categories"
)

// KnownFields lists every searchable field name.
var KnownFields = []string{FieldTitle, FieldContent, FieldExcerpt, FieldSKU, FieldTags, FieldCategories}

// SanitizeFields drops unknown and repeated names and falls back to title only.
func SanitizeFields(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if seen[f] || !isKnownField(f) {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return []string{FieldTitle}
	}
	return out
}

func isKnownField(name string) bool {
	for _, f := range KnownFields {
		if f == name {
			return true
		}
	}
	return false
}
