package pipeline

import (
	"fmt"

	"github.com/ternarybob/purgo/internal/datasets"
	"github.com/ternarybob/purgo/internal/models"
)

// BuildQuerySuggestions derives template queries from the cleaned table's
// column names. Always offers a preview and a row count; the rest depend on
// which column types exist.
func BuildQuerySuggestions(t *models.Table) []models.QuerySuggestion {
	numeric := t.NumericColumnNames()
	categorical := t.CategoricalColumnNames()
	table := datasets.CleanedTableName

	suggestions := []models.QuerySuggestion{
		{Name: "Preview rows", SQL: fmt.Sprintf("SELECT * FROM %s LIMIT 25", table)},
		{Name: "Row count", SQL: fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", table)},
	}

	if len(numeric) > 0 {
		col := datasets.QuoteIdent(numeric[0])
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: fmt.Sprintf("Distribution stats for %s", numeric[0]),
			SQL: fmt.Sprintf(
				"SELECT MIN(%[1]s) AS min_value, AVG(%[1]s) AS avg_value, MAX(%[1]s) AS max_value FROM %[2]s",
				col, table),
		})
	}

	if len(categorical) > 0 && len(numeric) > 0 {
		group := datasets.QuoteIdent(categorical[0])
		metric := datasets.QuoteIdent(numeric[0])
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: fmt.Sprintf("Grouped mean by %s", categorical[0]),
			SQL: fmt.Sprintf(
				"SELECT %s, AVG(%s) AS avg_metric FROM %s GROUP BY %s ORDER BY avg_metric DESC LIMIT 20",
				group, metric, table, group),
		})
	}

	if len(numeric) >= 2 {
		first := datasets.QuoteIdent(numeric[0])
		second := datasets.QuoteIdent(numeric[1])
		suggestions = append(suggestions, models.QuerySuggestion{
			Name: fmt.Sprintf("Top %s by %s", numeric[1], numeric[0]),
			SQL: fmt.Sprintf(
				"SELECT %s, %s FROM %s ORDER BY %s DESC LIMIT 10",
				first, second, table, first),
		})
	}

	return suggestions
}
