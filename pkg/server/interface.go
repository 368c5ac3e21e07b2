/*
Package server exposes product suggestions over HTTP.

All routes live under a configurable namespace (premmerce-search/v1 by
default) and are public.

# Routes

	GET /<namespace>/search?term=shi
	GET /<namespace>/settings
	GET /<namespace>/style.css
	GET /healthz

The search route answers with a JSON array of suggestions, ordered the way
the catalog ranked them:

	[{"id": 12, "label": "Shirt", "link": "https://shop.test/shirt", "image": null, "price": "$10", "isPurchasable": true}]

Clients sending "Accept: application/msgpack" receive the same array msgpack
encoded, with the same field names. Short terms and terms without matches
yield an empty array. When the catalog fails the response is a 500 with an
error body:

	{"code": "catalog_unavailable", "message": "product search is unavailable", "status": 500}

The settings route carries what the widget script needs to bootstrap: the
search URL, the minimum term length, the input selector, the force product
search flag and the "show all" message.
*/
package server

import (
	"github.com/bastiangx/suggestserve/pkg/suggest"
)

// MIMEMsgpack is the content type negotiated through the Accept header.
const MIMEMsgpack = "application/msgpack"

// Error codes
const (
	CodeCatalogUnavailable = "catalog_unavailable"
	CodeInternal           = "internal_error"
	CodeRateLimited        = "rate_limited"
	CodeNotFound           = "not_found"
)

// SuggestionResponse is one suggestion on the wire.
type SuggestionResponse struct {
	ID            int64   `json:"id" msgpack:"id"`
	Label         string  `json:"label" msgpack:"label"`
	Link          string  `json:"link" msgpack:"link"`
	Image         *string `json:"image" msgpack:"image"`
	Price         string  `json:"price" msgpack:"price"`
	IsPurchasable bool    `json:"isPurchasable" msgpack:"isPurchasable"`
}

// ErrorResponse is the body of every non 2xx answer.
type ErrorResponse struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Status  int    `json:"status" msgpack:"status"`
}

// WidgetSettings bootstraps the suggestion dropdown script.
type WidgetSettings struct {
	URL                string   `json:"url"`
	MinLength          int      `json:"minLength"`
	SearchField        string   `json:"searchField"`
	ForceProductSearch bool     `json:"forceProductSearch"`
	ShowAllMessage     string   `json:"showAllMessage"`
	AutocompleteFields []string `json:"autocompleteFields"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// toResponse maps service suggestions to their wire shape. Never nil.
func toResponse(list []suggest.Suggestion) []SuggestionResponse {
	out := make([]SuggestionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, SuggestionResponse{
			ID:            s.ID,
			Label:         s.Label,
			Link:          s.Link,
			Image:         s.Image,
			Price:         s.Price,
			IsPurchasable: s.Purchasable,
		})
	}
	return out
}
