package notionexport

import (
	"context"
	"fmt"
	"testing"

	"github.com/jomei/notionapi"

	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
)

// mockNotion is a NotionService with injectable behavior that records
// created and archived pages.
type mockNotion struct {
	created  []notionapi.Properties
	archived []string

	QueryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.created = append(m.created, properties)
	return &notionapi.Page{}, nil
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, filter)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *mockNotion) DeletePage(ctx context.Context, pageID string) error {
	if m.DeletePageFunc != nil {
		return m.DeletePageFunc(ctx, pageID)
	}
	m.archived = append(m.archived, pageID)
	return nil
}

var _ NotionService = (*mockNotion)(nil)

func summaryPage(pageID, statementID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Statement ID": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: statementID}},
			},
		},
	}
}

func TestExportCategorySummaryArchivesOwnPagesOnly(t *testing.T) {
	client := &mockNotion{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{
					summaryPage("page-own", "stmt-1"),
					summaryPage("page-foreign", "stmt-2"),
					{ID: notionapi.ObjectID("page-blank"), Properties: notionapi.Properties{}},
				},
			}, nil
		},
	}
	totals := []infra.CategoryTotalRow{
		{Category: "alimentacion", Count: 3, Total: 450.00},
		{Category: "transporte", Count: 1, Total: 120.00},
	}

	if err := ExportCategorySummary(context.Background(), client, "db-1", "stmt-1", totals); err != nil {
		t.Fatalf("ExportCategorySummary() error = %v", err)
	}

	// Only the page that carries stmt-1's ID is archived.
	if len(client.archived) != 1 || client.archived[0] != "page-own" {
		t.Errorf("archived pages = %v, want [page-own]", client.archived)
	}

	if len(client.created) != 2 {
		t.Fatalf("created %d pages, want 2", len(client.created))
	}
	sel, ok := client.created[0]["Category"].(notionapi.SelectProperty)
	if !ok || sel.Select.Name != "alimentacion" {
		t.Errorf("first created Category = %+v", client.created[0]["Category"])
	}
}

func TestExportCategorySummaryPaginatesQuery(t *testing.T) {
	calls := 0
	client := &mockNotion{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			switch calls {
			case 1:
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{summaryPage("page-1", "stmt-1")},
					HasMore:    true,
					NextCursor: "cursor-2",
				}, nil
			default:
				if filter.StartCursor != "cursor-2" {
					t.Errorf("StartCursor = %q, want cursor-2", filter.StartCursor)
				}
				return &notionapi.DatabaseQueryResponse{
					Results: []notionapi.Page{summaryPage("page-2", "stmt-1")},
				}, nil
			}
		},
	}

	err := ExportCategorySummary(context.Background(), client, "db-1", "stmt-1", nil)
	if err != nil {
		t.Fatalf("ExportCategorySummary() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("QueryDatabase calls = %d, want 2", calls)
	}
	if len(client.archived) != 2 {
		t.Errorf("archived pages = %v, want both pages", client.archived)
	}
}

func TestExportCategorySummaryQueryError(t *testing.T) {
	client := &mockNotion{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, fmt.Errorf("rate limited")
		},
	}

	err := ExportCategorySummary(context.Background(), client, "db-1", "stmt-1", nil)
	if err == nil {
		t.Fatal("ExportCategorySummary() error = nil, want query failure")
	}
	if len(client.created) != 0 {
		t.Errorf("pages created after query failure: %d", len(client.created))
	}
}
