package catalog

import (
	"context"
	"testing"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entries []suggest.CatalogEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func request(term string, limit int, excluded ...suggest.VisibilityTerm) suggest.SearchRequest {
	return suggest.SearchRequest{
		Term:     term,
		Limit:    limit,
		PostType: suggest.ProductType,
		Excluded: suggest.ExclusionSet(excluded),
	}
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		input string
		want  []string
	}{
		{"Blue Shirt", []string{"blue", "shirt"}},
		{"  t-shirt, XL!", []string{"t", "shirt", "xl"}},
		{"Café crème", []string{"café", "crème"}},
		{"SH-001", []string{"sh", "001"}},
		{"", []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokenize(tc.input))
		})
	}
}

func TestIndex_Search(t *testing.T) {
	idx := NewIndex(sampleProducts(), []string{"title"})
	ctx := context.Background()

	t.Run("drafts and other post types are skipped", func(t *testing.T) {
		got, err := idx.Search(ctx, request("shirt", 10))
		require.NoError(t, err)
		assert.NotContains(t, ids(got), int64(5))
		assert.NotContains(t, ids(got), int64(6))
		assert.Equal(t, 6, idx.Len())
	})

	t.Run("title prefix ranks first and snapshot order breaks ties", func(t *testing.T) {
		got, err := idx.Search(ctx, request("shirt", 10))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4, 1, 3}, ids(got))
	})

	t.Run("exclusions are honoured", func(t *testing.T) {
		got, err := idx.Search(ctx, request("shirt", 10, suggest.ExcludeFromSearch, suggest.OutOfStock))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, ids(got))
	})

	t.Run("every term word must match", func(t *testing.T) {
		got, err := idx.Search(ctx, request("blue shi", 10))
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(got))

		got, err = idx.Search(ctx, request("blue hoodie", 10))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit is applied", func(t *testing.T) {
		got, err := idx.Search(ctx, request("shirt", 2))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4}, ids(got))
	})

	t.Run("no words means no results", func(t *testing.T) {
		got, err := idx.Search(ctx, request("---", 5))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("cancelled context fails with catalog error", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := idx.Search(cctx, request("shirt", 5))
		require.Error(t, err)
		assert.ErrorIs(t, err, suggest.ErrCatalogUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIndex_SearchFields(t *testing.T) {
	ctx := context.Background()

	titleOnly := NewIndex(sampleProducts(), []string{"title"})
	got, err := titleOnly.Search(ctx, request("winter", 10))
	require.NoError(t, err)
	assert.Empty(t, got)

	withTags := NewIndex(sampleProducts(), []string{"title", "tags", "sku", "content"})
	got, err = withTags.Search(ctx, request("winter", 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids(got))

	got, err = withTags.Search(ctx, request("sh-001", 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))

	got, err = withTags.Search(ctx, request("cotton", 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))
}

func TestIndex_EntryShape(t *testing.T) {
	idx := NewIndex(sampleProducts(), nil)
	got, err := idx.Search(context.Background(), request("blue", 1))
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, "Blue Shirt", e.Title)
	require.NotNil(t, e.ThumbnailURL)
	assert.Equal(t, "https://shop.test/i/1.jpg", *e.ThumbnailURL)
	assert.False(t, e.Variable)

	got, err = idx.Search(context.Background(), request("shirt pack", 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ThumbnailURL)
	assert.True(t, got[0].Variable)
}

func TestSanitizeFields(t *testing.T) {
	assert.Equal(t, []string{"title"}, SanitizeFields(nil))
	assert.Equal(t, []string{"title"}, SanitizeFields([]string{"bogus"}))
	assert.Equal(t, []string{"sku", "title"}, SanitizeFields([]string{" SKU ", "title", "sku"}))
}
