package notionexport

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService defines the interface for interacting with the Notion
// API. This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given filter.
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DeletePage archives a Notion page.
	DeletePage(ctx context.Context, pageID string) error
}
