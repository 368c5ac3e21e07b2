package suggest

// Format maps one catalog entry to its suggestion.
// Variable products are never purchasable straight from a suggestion.
func Format(e CatalogEntry) Suggestion {
	return Suggestion{
		ID:          e.ID,
		Label:       e.Title,
		Link:        e.Permalink,
		Image:       e.ThumbnailURL,
		Price:       e.PriceHTML,
		Purchasable: e.Purchasable && !e.Variable,
	}
}

// FormatAll formats entries keeping their order.
func FormatAll(entries []CatalogEntry) []Suggestion {
	out := make([]Suggestion, 0, len(entries))
	for _, e := range entries {
		out = append(out, Format(e))
	}
	return out
}
