// Package request parses the query strings and bodies the admin client
// sends: list parameters (pagination, free-text search, per-attribute
// filters), JSON record payloads, and multipart uploads.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/lucent-admin/lucent/internal/engine"
	"github.com/lucent-admin/lucent/internal/store"
)

// filterPattern matches query parameters like filters[published]
var filterPattern = regexp.MustCompile(`^filters\[([^\]]+)\]$`)

const defaultMaxBodySize = 10 << 20

// ListParams reads the list parameters from the request query string.
// Example: ?page=2&per_page=25&query=go&filters[published]=true
func ListParams(r *http.Request) engine.Params {
	values := r.URL.Query()

	params := engine.Params{
		Page:    positiveInt(values.Get("page")),
		PerPage: positiveInt(values.Get("per_page")),
		Query:   values.Get("query"),
		Filters: make(map[string]string),
	}

	for key, vals := range values {
		matches := filterPattern.FindStringSubmatch(key)
		if len(matches) != 2 || len(vals) == 0 {
			continue
		}
		params.Filters[matches[1]] = vals[0]
	}

	return params
}

func positiveInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Record decodes a JSON request body into a record payload. The body size
// is capped to keep oversized payloads from being buffered.
func Record(w http.ResponseWriter, r *http.Request) (store.Record, error) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxBodySize)
	defer r.Body.Close()

	var record store.Record
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&record); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("request body is empty")
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("request body contains multiple JSON objects")
	}

	return record, nil
}

// IDs decodes a JSON body of the form {"ids": [...]} used by bulk
// destroy and action endpoints.
func IDs(w http.ResponseWriter, r *http.Request) ([]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxBodySize)
	defer r.Body.Close()

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return body.IDs, nil
}
