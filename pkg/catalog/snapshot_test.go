package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestSnapshot_WriteRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, sampleProducts()))

	products, header, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, header.Version)
	assert.Equal(t, len(sampleProducts()), header.Count)
	assert.False(t, header.CreatedAt.IsZero())
	assert.Equal(t, sampleProducts(), products)
}

func TestSnapshot_RejectsBadHeader(t *testing.T) {
	testCases := []struct {
		name string
		snap snapshotFile
		want string
	}{
		{"wrong version", snapshotFile{Header: SnapshotHeader{Version: 99}}, "unsupported snapshot version"},
		{"negative count", snapshotFile{Header: SnapshotHeader{Version: SnapshotVersion, Count: -1}}, "invalid product count"},
		{"count mismatch", snapshotFile{Header: SnapshotHeader{Version: SnapshotVersion, Count: 3}, Products: []Product{{ID: 1}}}, "found 1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := msgpack.Marshal(&tc.snap)
			require.NoError(t, err)

			_, _, err = ReadSnapshot(bytes.NewReader(data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, _, err := ReadSnapshot(strings.NewReader("not msgpack"))
	assert.Error(t, err)
}

func TestPack(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "export.json")
	snapPath := filepath.Join(dir, "catalog.msgpack")

	export := `[
		{"id": 10, "status": "publish", "kind": "simple", "title": "Canvas Tote", "permalink": "https://shop.test/p/tote", "price_html": "$12.00", "purchasable": true},
		{"id": 11, "type": "product", "status": "publish", "kind": "variable", "title": "Tote Set", "permalink": "https://shop.test/p/tote-set", "price_html": "$20.00", "visibility": ["outofstock"]}
	]`
	require.NoError(t, os.WriteFile(jsonPath, []byte(export), 0o644))

	n, err := Pack(jsonPath, snapPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	products, header, err := LoadSnapshot(snapPath)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 2, header.Count)
	assert.NotEmpty(t, header.Identity())
	assert.Equal(t, "product", products[0].Type, "missing type defaults to product")
	assert.Equal(t, []string{"outofstock"}, products[1].Visibility)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the export and the snapshot remain")
}

func TestSaveSnapshot_NewBuildHasNewIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.msgpack")

	require.NoError(t, SaveSnapshot(path, sampleProducts()))
	_, first, err := LoadSnapshot(path)
	require.NoError(t, err)

	require.NoError(t, SaveSnapshot(path, sampleProducts()[:2]))
	_, second, err := LoadSnapshot(path)
	require.NoError(t, err)

	assert.NotEqual(t, first.Identity(), second.Identity())
}

func TestReadJSONExport_RequiresID(t *testing.T) {
	_, err := ReadJSONExport(strings.NewReader(`[{"title": "no id"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.msgpack"))
	assert.Error(t, err)
}
