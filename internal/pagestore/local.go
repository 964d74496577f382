package pagestore

import (
	"context"
	"fmt"
	"os"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// LocalLoader loads page documents from the local filesystem. Used by
// the one-shot CLI and in tests.
type LocalLoader struct{}

func NewLocalLoader() *LocalLoader {
	return &LocalLoader{}
}

// LoadPages implements the Loader interface.
func (l *LocalLoader) LoadPages(ctx context.Context, uri string) ([]statement.RawPage, error) {
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("read pages file: %w", err)
	}

	pages, err := decodePages(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return pages, nil
}

var _ Loader = (*LocalLoader)(nil)
