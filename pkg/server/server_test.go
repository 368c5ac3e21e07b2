package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bastiangx/suggestserve/internal/logger"
	"github.com/bastiangx/suggestserve/pkg/catalog"
	"github.com/bastiangx/suggestserve/pkg/config"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type MockSuggester struct {
	mock.Mock
}

func (m *MockSuggester) Suggestions(ctx context.Context, rawTerm string) ([]suggest.Suggestion, error) {
	args := m.Called(ctx, rawTerm)
	list, _ := args.Get(0).([]suggest.Suggestion)
	return list, args.Error(1)
}

type panicSuggester struct{}

func (panicSuggester) Suggestions(context.Context, string) ([]suggest.Suggestion, error) {
	panic("boom")
}

func get(t *testing.T, s *Server, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return getFrom(t, s, target, "", headers...)
}

// getFrom is get with the peer address set; an empty remote keeps httptest's default.
func getFrom(t *testing.T, s *Server, target, remote string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func newTestServer(t *testing.T, sg suggest.ISuggester, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(sg, config.NewStore(cfg, ""))
}

func image(s string) *string { return &s }

func TestSearch_JSON(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "Shi").Return([]suggest.Suggestion{
		{ID: 12, Label: "Shirt", Link: "https://shop.test/shirt", Price: "$10", Purchasable: true},
		{ID: 13, Label: "Shirt Pack", Link: "https://shop.test/pack", Image: image("https://shop.test/i/13.jpg"), Price: "$25"},
	}, nil)

	rec := get(t, newTestServer(t, sg, nil), "/premmerce-search/v1/search?term=Shi")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `[
		{"id":12,"label":"Shirt","link":"https://shop.test/shirt","image":null,"price":"$10","isPurchasable":true},
		{"id":13,"label":"Shirt Pack","link":"https://shop.test/pack","image":"https://shop.test/i/13.jpg","price":"$25","isPurchasable":false}
	]`, rec.Body.String())
	sg.AssertExpectations(t)
}

func TestSearch_MissingTermIsEmpty(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "").Return([]suggest.Suggestion{}, nil)

	rec := get(t, newTestServer(t, sg, nil), "/premmerce-search/v1/search")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSearch_Msgpack(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "hat").Return([]suggest.Suggestion{
		{ID: 1, Label: "Hat", Link: "https://shop.test/hat", Price: "$3", Purchasable: true},
	}, nil)

	rec := get(t, newTestServer(t, sg, nil), "/premmerce-search/v1/search?term=hat", "Accept", MIMEMsgpack)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMEMsgpack, rec.Header().Get("Content-Type"))

	var got []SuggestionResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Nil(t, got[0].Image)
	assert.True(t, got[0].IsPurchasable)
}

func TestSearch_CatalogFailure(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code string
	}{
		{"catalog", fmt.Errorf("%w: connection refused", suggest.ErrCatalogUnavailable), CodeCatalogUnavailable},
		{"other", errors.New("unexpected"), CodeInternal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sg := new(MockSuggester)
			sg.On("Suggestions", mock.Anything, "shirt").Return(nil, tc.err)

			rec := get(t, newTestServer(t, sg, nil), "/premmerce-search/v1/search?term=shirt")

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, http.StatusInternalServerError, body.Status)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestSearch_AppliesCatalogTimeout(t *testing.T) {
	hasDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
	sg := new(MockSuggester)
	sg.On("Suggestions", hasDeadline, "shirt").Return([]suggest.Suggestion{}, nil).Once()

	rec := get(t, newTestServer(t, sg, nil), "/premmerce-search/v1/search?term=shirt")
	assert.Equal(t, http.StatusOK, rec.Code)
	sg.AssertExpectations(t)
}

func TestSearch_CustomNamespace(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "cap").Return([]suggest.Suggestion{}, nil)

	s := newTestServer(t, sg, func(c *config.Config) { c.Server.Namespace = "/shop/v2/" })

	assert.Equal(t, http.StatusOK, get(t, s, "/shop/v2/search?term=cap").Code)

	rec := get(t, s, "/premmerce-search/v1/search?term=cap")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeNotFound, body.Code)
}

func TestSearch_RateLimited(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "shirt").Return([]suggest.Suggestion{}, nil)

	s := newTestServer(t, sg, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
	})

	assert.Equal(t, http.StatusOK, get(t, s, "/premmerce-search/v1/search?term=shirt").Code)

	rec := get(t, s, "/premmerce-search/v1/search?term=shirt")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeRateLimited, body.Code)

	// settings are not limited
	assert.Equal(t, http.StatusOK, get(t, s, "/premmerce-search/v1/settings").Code)
}

func TestSearch_RateLimitIgnoresForwardedFor(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "shirt").Return([]suggest.Suggestion{}, nil)

	s := newTestServer(t, sg, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
	})

	const target = "/premmerce-search/v1/search?term=shirt"
	first := getFrom(t, s, target, "198.51.100.7:4000", echo.HeaderXForwardedFor, "203.0.113.1")
	assert.Equal(t, http.StatusOK, first.Code)

	second := getFrom(t, s, target, "198.51.100.7:4001", echo.HeaderXForwardedFor, "203.0.113.2")
	assert.Equal(t, http.StatusTooManyRequests, second.Code, "a new X-Forwarded-For must not buy a new bucket")

	other := getFrom(t, s, target, "198.51.100.8:4000")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestSearch_RateLimitBehindTrustedProxy(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "shirt").Return([]suggest.Suggestion{}, nil)

	s := newTestServer(t, sg, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
		c.Server.TrustedProxies = []string{"10.0.0.0/8"}
	})

	const target = "/premmerce-search/v1/search?term=shirt"
	const proxy = "10.0.0.1:8080"
	assert.Equal(t, http.StatusOK, getFrom(t, s, target, proxy, echo.HeaderXForwardedFor, "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, getFrom(t, s, target, proxy, echo.HeaderXForwardedFor, "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, getFrom(t, s, target, proxy, echo.HeaderXForwardedFor, "203.0.113.1").Code)

	// an untrusted peer still cannot pick its own address
	assert.Equal(t, http.StatusOK, getFrom(t, s, target, "198.51.100.7:4000", echo.HeaderXForwardedFor, "203.0.113.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, getFrom(t, s, target, "198.51.100.7:4000", echo.HeaderXForwardedFor, "203.0.113.10").Code)
}

func TestRequestLogLevels(t *testing.T) {
	sg := new(MockSuggester)
	sg.On("Suggestions", mock.Anything, "down").Return(nil, fmt.Errorf("%w: timeout", suggest.ErrCatalogUnavailable))
	sg.On("Suggestions", mock.Anything, "shirt").Return([]suggest.Suggestion{}, nil)

	s := newTestServer(t, sg, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
	})
	var buf bytes.Buffer
	s.log = logger.NewWithConfig(&buf, "server", log.InfoLevel, false, false, log.TextFormatter)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/premmerce-search/v1/search?term=shirt").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s, "/premmerce-search/v1/search?term=shirt").Code)
	assert.Empty(t, buf.String(), "client errors stay below info")

	rec := getFrom(t, s, "/premmerce-search/v1/search?term=down", "198.51.100.9:4000")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, strings.Count(buf.String(), "ERRO"), buf.String())
	assert.Contains(t, buf.String(), "Search failed")
}

func TestPanicBecomesErrorResponse(t *testing.T) {
	rec := get(t, newTestServer(t, panicSuggester{}, nil), "/premmerce-search/v1/search?term=shirt")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Code)
}

func TestSettings(t *testing.T) {
	s := newTestServer(t, new(MockSuggester), func(c *config.Config) {
		c.Search.MinToSearch = 0
		c.Search.SearchSelector = "#search"
		c.Search.ForceProductSearch = true
		c.Search.ShowAllMessage = "See everything"
		c.Search.AutocompleteFields = []string{"#header-search", ".widget input"}
	})

	rec := get(t, s, "/premmerce-search/v1/settings")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"url": "/premmerce-search/v1/search",
		"minLength": 3,
		"searchField": "#search",
		"forceProductSearch": true,
		"showAllMessage": "See everything",
		"autocompleteFields": ["#header-search", ".widget input"]
	}`, rec.Body.String())
}

func TestSettings_AutocompleteFieldsNeverNull(t *testing.T) {
	rec := get(t, newTestServer(t, new(MockSuggester), nil), "/premmerce-search/v1/settings")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{}, body["autocompleteFields"])
}

func TestStyle(t *testing.T) {
	css := ".premmerce-search__item { color: #333; }"
	s := newTestServer(t, new(MockSuggester), func(c *config.Config) { c.Search.CustomCSS = css })

	rec := get(t, s, "/premmerce-search/v1/style.css")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, css, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, new(MockSuggester), nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearch_MemoryCatalogEndToEnd(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, Type: "product", Status: catalog.StatusPublish, Kind: "simple", Title: "Blue Shirt",
			Permalink: "https://shop.test/p/blue-shirt", PriceHTML: "$10.00", Purchasable: true},
		{ID: 2, Type: "product", Status: catalog.StatusPublish, Kind: catalog.KindVariable, Title: "Shirt Pack",
			Permalink: "https://shop.test/p/shirt-pack", Thumbnail: "https://shop.test/i/2.jpg", PriceHTML: "$25.00", Purchasable: true},
		{ID: 3, Type: "product", Status: catalog.StatusPublish, Kind: "simple", Title: "Hidden Shirt",
			Permalink: "https://shop.test/p/hidden", Visibility: []string{string(suggest.ExcludeFromSearch)}},
	}
	store := config.NewStore(config.DefaultConfig(), "")
	svc := suggest.NewService(catalog.NewIndex(products, []string{catalog.FieldTitle}), store)

	rec := get(t, NewServer(svc, store), "/premmerce-search/v1/search?term=%20SHIRT%20")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []SuggestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.False(t, got[0].IsPurchasable, "variable products are never directly purchasable")
	require.NotNil(t, got[0].Image)
	assert.Equal(t, int64(1), got[1].ID)
	assert.True(t, got[1].IsPurchasable)
	assert.Nil(t, got[1].Image)

	rec = get(t, NewServer(svc, store), "/premmerce-search/v1/search?term=sh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
