package catalog

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

const backendMemory = "memory"

// Index is an immutable in-memory product index.
// Every word of the configured fields is inserted into a Patricia trie
// pointing at the positions of the products that contain it.
type Index struct {
	trie     *patricia.Trie
	products []Product
	fields   []string
	words    int
}

// NewIndex builds an index over the published products of the given snapshot.
// Snapshot order is kept and used to break ranking ties.
func NewIndex(products []Product, fields []string) *Index {
	idx := &Index{
		trie:   patricia.NewTrie(),
		fields: SanitizeFields(fields),
	}

	for _, p := range products {
		if p.Status != "" && p.Status != StatusPublish {
			continue
		}
		pos := len(idx.products)
		idx.products = append(idx.products, p)

		for _, word := range idx.productWords(p) {
			key := patricia.Prefix(word)
			if item := idx.trie.Get(key); item != nil {
				idx.trie.Set(key, append(item.([]int), pos))
				continue
			}
			idx.trie.Insert(key, []int{pos})
			idx.words++
		}
	}

	log.Debugf("Indexed %d products, %d words, fields=%v", len(idx.products), idx.words, idx.fields)
	return idx
}

// productWords returns the unique words of every configured field.
func (idx *Index) productWords(p Product) []string {
	seen := make(map[string]bool)
	var words []string
	for _, field := range idx.fields {
		for _, w := range Tokenize(p.Field(field)) {
			if !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
	}
	return words
}

// Tokenize splits text into lowercase words of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Search implements suggest.Catalog.
// A product matches when every word of the term prefixes one of its indexed words.
func (idx *Index) Search(ctx context.Context, req suggest.SearchRequest) ([]suggest.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(backendMemory, "search", err)
	}

	terms := Tokenize(req.Term)
	if len(terms) == 0 || req.Limit <= 0 {
		return []suggest.CatalogEntry{}, nil
	}

	var matched map[int]bool
	for _, term := range terms {
		hits, err := idx.prefixHits(term)
		if err != nil {
			return nil, newError(backendMemory, "search", err)
		}
		if matched == nil {
			matched = hits
			continue
		}
		for pos := range matched {
			if !hits[pos] {
				delete(matched, pos)
			}
		}
		if len(matched) == 0 {
			break
		}
	}

	type candidate struct {
		pos  int
		rank int
	}
	candidates := make([]candidate, 0, len(matched))
	for pos := range matched {
		p := idx.products[pos]
		if p.Type != req.PostType || p.Hidden(req.Excluded) {
			continue
		}
		candidates = append(candidates, candidate{pos: pos, rank: titleRank(p.Title, req.Term, terms)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].pos < candidates[j].pos
	})

	if len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}

	entries := make([]suggest.CatalogEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = idx.products[c.pos].Entry()
	}
	return entries, nil
}

// prefixHits collects the positions of every product holding a word that starts with term.
func (idx *Index) prefixHits(term string) (map[int]bool, error) {
	hits := make(map[int]bool)
	err := idx.trie.VisitSubtree(patricia.Prefix(term), func(_ patricia.Prefix, item patricia.Item) error {
		for _, pos := range item.([]int) {
			hits[pos] = true
		}
		return nil
	})
	return hits, err
}

// titleRank orders matches: 0 when the title starts with the term,
// 1 when every term word prefixes a title word, 2 otherwise.
func titleRank(title, term string, terms []string) int {
	lower := strings.ToLower(title)
	if strings.HasPrefix(lower, term) {
		return 0
	}
	titleWords := Tokenize(lower)
	for _, t := range terms {
		found := false
		for _, w := range titleWords {
			if strings.HasPrefix(w, t) {
				found = true
				break
			}
		}
		if !found {
			return 2
		}
	}
	return 1
}

// Len returns the number of indexed products.
func (idx *Index) Len() int { return len(idx.products) }

// Stats returns basic statistics about the index.
func (idx *Index) Stats() map[string]int {
	return map[string]int{
		"products": len(idx.products),
		"words":    idx.words,
		"fields":   len(idx.fields),
	}
}
