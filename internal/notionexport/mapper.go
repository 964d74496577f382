package notionexport

import (
	"fmt"

	"github.com/jomei/notionapi"

	infra "github.com/statementsense/statement-pipeline/internal/infra/bigquery"
)

// CategoryTotalToNotionProperties converts one per-category aggregate to
// the properties of a summary-database page.
func CategoryTotalToNotionProperties(statementID string, row infra.CategoryTotalRow) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: fmt.Sprintf("%s / %s", statementID, row.Category),
					},
				},
			},
		},
		"Statement ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: statementID,
					},
				},
			},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.Category,
			},
		},
		"Transactions": notionapi.NumberProperty{
			Number: float64(row.Count),
		},
		"Total": notionapi.NumberProperty{
			Number: row.Total,
		},
	}

	return props
}

// extractStatementID reads the Statement ID property back from a page,
// returning "" when the property is missing or empty.
func extractStatementID(page notionapi.Page) string {
	prop, ok := page.Properties["Statement ID"]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	return rt.RichText[0].PlainText
}
