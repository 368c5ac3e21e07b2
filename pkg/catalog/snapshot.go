package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/bastiangx/suggestserve/internal/utils"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotVersion is the only snapshot layout this build reads and writes.
const SnapshotVersion = 1

// maxSnapshotProducts is a sanity bound on the header count.
const maxSnapshotProducts = 5_000_000

// SnapshotHeader describes a snapshot file.
type SnapshotHeader struct {
	Version   int       `msgpack:"v"`
	CreatedAt time.Time `msgpack:"created_at"`
	Count     int       `msgpack:"count"`
}

type snapshotFile struct {
	Header   SnapshotHeader `msgpack:"header"`
	Products []Product      `msgpack:"products"`
}

// ReadSnapshot decodes a msgpack snapshot.
func ReadSnapshot(r io.Reader) ([]Product, SnapshotHeader, error) {
	var snap snapshotFile
	if err := msgpack.NewDecoder(bufio.NewReader(r)).Decode(&snap); err != nil {
		return nil, SnapshotHeader{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	h := snap.Header
	if h.Version != SnapshotVersion {
		return nil, h, fmt.Errorf("unsupported snapshot version %d (expected %d)", h.Version, SnapshotVersion)
	}
	if h.Count < 0 || h.Count > maxSnapshotProducts {
		return nil, h, fmt.Errorf("invalid product count in snapshot header: %d", h.Count)
	}
	if h.Count != len(snap.Products) {
		return nil, h, fmt.Errorf("snapshot header says %d products, found %d", h.Count, len(snap.Products))
	}
	return snap.Products, h, nil
}

// WriteSnapshot encodes products as a msgpack snapshot.
func WriteSnapshot(w io.Writer, products []Product) error {
	snap := snapshotFile{
		Header: SnapshotHeader{
			Version:   SnapshotVersion,
			CreatedAt: time.Now().UTC(),
			Count:     len(products),
		},
		Products: products,
	}
	if products == nil {
		snap.Products = []Product{}
	}
	return msgpack.NewEncoder(w).Encode(&snap)
}

// LoadSnapshot reads a snapshot file from disk.
func LoadSnapshot(path string) ([]Product, SnapshotHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, SnapshotHeader{}, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer file.Close()

	products, header, err := ReadSnapshot(file)
	if err != nil {
		return nil, header, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded snapshot %s: %d products, created %s", path, header.Count, header.CreatedAt.Format(time.RFC3339))
	return products, header, nil
}

// SaveSnapshot writes products to path, replacing any existing file.
func SaveSnapshot(path string, products []Product) error {
	err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteSnapshot(w, products)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", path, err)
	}
	return nil
}

// Identity names this particular build of a snapshot.
func (h SnapshotHeader) Identity() string {
	return h.CreatedAt.UTC().Format(time.RFC3339Nano) + "/" + strconv.Itoa(h.Count)
}

// ReadJSONExport decodes a JSON array of products, as produced by a store export.
// Records without a type default to "product".
func ReadJSONExport(r io.Reader) ([]Product, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode JSON export: %w", err)
	}
	for i := range products {
		if products[i].Type == "" {
			products[i].Type = suggest.ProductType
		}
		if products[i].ID <= 0 {
			return nil, fmt.Errorf("product at position %d has no id", i)
		}
	}
	return products, nil
}

// Pack converts a JSON export file to a snapshot file.
func Pack(jsonPath, snapshotPath string) (int, error) {
	file, err := os.Open(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open export %s: %w", jsonPath, err)
	}
	defer file.Close()

	products, err := ReadJSONExport(file)
	if err != nil {
		return 0, err
	}
	if err := SaveSnapshot(snapshotPath, products); err != nil {
		return 0, err
	}
	return len(products), nil
}
