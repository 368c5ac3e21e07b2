package suggest

// Exclusions computes the visibility terms that must never reach a suggestion.
//
// exclude-from-search is always present. outofstock is added when the explicit
// override is set and true, or otherwise when the store hides out-of-stock items.
func Exclusions(opts Options) ExclusionSet {
	set := ExclusionSet{ExcludeFromSearch}

	if opts.OutOfStock != nil && *opts.OutOfStock {
		return append(set, OutOfStock)
	}
	if opts.HideOutOfStock {
		return append(set, OutOfStock)
	}
	return set
}
