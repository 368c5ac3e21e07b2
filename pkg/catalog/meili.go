package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/meilisearch/meilisearch-go"
)

const backendMeili = "meilisearch"

// taskPollInterval is how often index tasks are polled while waiting.
const taskPollInterval = 50 * time.Millisecond

var retrievedAttributes = []string{"id", "title", "permalink", "thumbnail", "price_html", "purchasable", "kind"}

// meiliSearcher is the part of meilisearch.IndexManager used for queries.
type meiliSearcher interface {
	SearchWithContext(ctx context.Context, query string, request *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error)
}

// Meili serves suggestions from a Meilisearch index.
type Meili struct {
	index  meiliSearcher
	fields []string
}

// NewMeiliClient returns a client for host, authenticated with apiKey when set.
func NewMeiliClient(host, apiKey string) meilisearch.ServiceManager {
	if apiKey == "" {
		return meilisearch.New(host)
	}
	return meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
}

// NewMeili searches index restricted to the given product fields.
func NewMeili(index meiliSearcher, fields []string) *Meili {
	return &Meili{
		index:  index,
		fields: SanitizeFields(fields),
	}
}

// Search implements suggest.Catalog.
func (m *Meili) Search(ctx context.Context, req suggest.SearchRequest) ([]suggest.CatalogEntry, error) {
	searchRequest := &meilisearch.SearchRequest{
		Limit:                int64(req.Limit),
		Filter:               BuildFilter(req.PostType, req.Excluded),
		AttributesToSearchOn: m.fields,
		AttributesToRetrieve: retrievedAttributes,
	}

	result, err := m.index.SearchWithContext(ctx, req.Term, searchRequest)
	if err != nil {
		return nil, newError(backendMeili, "search", err)
	}

	entries := make([]suggest.CatalogEntry, 0, len(result.Hits))
	for _, hit := range result.Hits {
		p, err := decodeHit(hit)
		if err != nil {
			log.Warnf("Skipping malformed search hit: %v", err)
			continue
		}
		entries = append(entries, p.Entry())
	}
	return entries, nil
}

// decodeHit turns one raw hit into a Product.
func decodeHit(hit any) (Product, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return Product{}, err
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, err
	}
	if p.ID <= 0 {
		return Product{}, fmt.Errorf("hit has no valid id")
	}
	return p, nil
}

// escapeFilterValue escapes characters with a meaning inside filter strings.
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// BuildFilter returns the Meilisearch filter limiting results to postType
// and dropping every document tagged with an excluded visibility term.
func BuildFilter(postType string, excluded suggest.ExclusionSet) string {
	filter := fmt.Sprintf("type = \"%s\"", escapeFilterValue(postType))
	if len(excluded) == 0 {
		return filter
	}

	quoted := make([]string, len(excluded))
	for i, term := range excluded {
		quoted[i] = fmt.Sprintf("\"%s\"", escapeFilterValue(string(term)))
	}
	return filter + " AND visibility NOT IN [" + strings.Join(quoted, ", ") + "]"
}

// MeiliIndexer prepares and fills a Meilisearch index from snapshots.
type MeiliIndexer struct {
	index     meilisearch.IndexManager
	batchSize int
}

// NewMeiliIndexer returns an indexer for the named index.
func NewMeiliIndexer(client meilisearch.ServiceManager, indexName string, batchSize int) *MeiliIndexer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &MeiliIndexer{
		index:     client.Index(indexName),
		batchSize: batchSize,
	}
}

// EnsureIndex sets the filterable and searchable attributes the search relies on.
func (mi *MeiliIndexer) EnsureIndex(fields []string) error {
	task, err := mi.index.UpdateFilterableAttributes(&[]interface{}{"type", "visibility"})
	if err != nil {
		return newError(backendMeili, "ensure-index", fmt.Errorf("failed to set filterable attributes: %w", err))
	}
	if err := mi.wait(task.TaskUID); err != nil {
		return newError(backendMeili, "ensure-index", err)
	}

	searchable := SanitizeFields(fields)
	task, err = mi.index.UpdateSearchableAttributes(&searchable)
	if err != nil {
		return newError(backendMeili, "ensure-index", fmt.Errorf("failed to set searchable attributes: %w", err))
	}
	if err := mi.wait(task.TaskUID); err != nil {
		return newError(backendMeili, "ensure-index", err)
	}
	return nil
}

// IndexProducts uploads products in batches and waits for each batch to be
// indexed. On failure it reports how many products made it in.
func (mi *MeiliIndexer) IndexProducts(products []Product) (int, error) {
	indexed := 0
	for start := 0; start < len(products); start += mi.batchSize {
		end := min(start+mi.batchSize, len(products))
		batch := products[start:end]

		// primary key "id" is inferred from the documents
		task, err := mi.index.AddDocuments(batch, nil)
		if err != nil {
			return indexed, newError(backendMeili, "index", err)
		}
		if err := mi.wait(task.TaskUID); err != nil {
			return indexed, newError(backendMeili, "index", fmt.Errorf("failed to wait for indexing task: %w", err))
		}
		indexed += len(batch)
		log.Debugf("Indexed %d/%d products", indexed, len(products))
	}
	return indexed, nil
}

// wait blocks until the task is done and turns a failed task into an error.
func (mi *MeiliIndexer) wait(taskUID int64) error {
	task, err := mi.index.WaitForTask(taskUID, taskPollInterval)
	if err != nil {
		return err
	}
	if task.Status == meilisearch.TaskStatusFailed {
		return fmt.Errorf("task %d failed", taskUID)
	}
	return nil
}
