// Package pagestore loads the page-text documents produced by the
// external text-extraction stage. A document is a JSON array, either of
// plain page strings or of {"index", "text"} objects; either form maps
// to the ordered page sequence the pipeline consumes.
package pagestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// Loader resolves a pages URI into the ordered page sequence.
type Loader interface {
	LoadPages(ctx context.Context, uri string) ([]statement.RawPage, error)
}

// decodePages accepts both document forms. Page order is the array
// order; explicit indexes are kept when present.
func decodePages(data []byte) ([]statement.RawPage, error) {
	var asStrings []string
	if err := json.Unmarshal(data, &asStrings); err == nil {
		pages := make([]statement.RawPage, len(asStrings))
		for i, text := range asStrings {
			pages[i] = statement.RawPage{Index: i, Text: text}
		}
		return pages, nil
	}

	var asPages []statement.RawPage
	if err := json.Unmarshal(data, &asPages); err != nil {
		return nil, fmt.Errorf("pages document is neither a string array nor a page array: %w", err)
	}
	return asPages, nil
}
