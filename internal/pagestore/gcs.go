package pagestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/statementsense/statement-pipeline/internal/statement"
)

// GCSLoader loads page documents from Cloud Storage. URIs use the
// gs://bucket/object form.
type GCSLoader struct{}

func NewGCSLoader() *GCSLoader {
	return &GCSLoader{}
}

// LoadPages implements the Loader interface.
func (l *GCSLoader) LoadPages(ctx context.Context, uri string) ([]statement.RawPage, error) {
	bucketName, objectName, err := splitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	pages, err := decodePages(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return pages, nil
}

func splitGCSURI(uri string) (bucket, object string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gs:// URI: %q", uri)
	}
	return bucket, object, nil
}

var _ Loader = (*GCSLoader)(nil)
