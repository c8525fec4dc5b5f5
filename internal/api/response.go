// Package api serves Portwatch's HTTP and WebSocket surface.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zeebo/xxh3"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every non-2xx response:
// {"error":{"code":"NOT_FOUND","message":"..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a message for humans.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// PageResponse is a limit/offset window over a list plus the list's size.
type PageResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// WritePage writes the window of items selected by p.
func WritePage[T any](w http.ResponseWriter, status int, items []T, p Pagination) {
	WriteJSON(w, status, PageResponse[T]{
		Items:  PaginateSlice(items, p),
		Total:  len(items),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
}

// writeVersionedJSON writes an already encoded body tagged with an xxh3 ETag.
// A request whose If-None-Match lists that tag gets 304 and no body.
func writeVersionedJSON(w http.ResponseWriter, r *http.Request, body []byte) {
	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if strings.TrimSpace(candidate) == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
