// File path: internal/agent/format_test.go
package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicodishanthj/ecomqa/internal/chart"
)

func TestAnswerTextOrdersOutputs(t *testing.T) {
	answer := &Answer{
		SQL:     "SELECT date, amount FROM total_sales",
		Columns: []string{"date", "amount"},
		Rows:    [][]any{{"2024-01", int64(100)}, {nil, 1.5}},
		Summary: "Sales grew.",
		Chart:   &chart.Chart{Title: "sales?", Bars: []chart.Bar{{Label: "2024-01", Value: 100}}},
	}
	text := answer.Text()
	assert.True(t, strings.HasPrefix(text, "SQL:\nSELECT date, amount FROM total_sales\n"))
	assert.Contains(t, text, "Results (2 rows):\ndate | amount\n2024-01 | 100\nNULL | 1.5\n")
	sqlAt := strings.Index(text, "SQL:")
	rowsAt := strings.Index(text, "Results")
	summaryAt := strings.Index(text, "Summary:")
	chartAt := strings.Index(text, "Chart:")
	assert.Less(t, sqlAt, rowsAt)
	assert.Less(t, rowsAt, summaryAt)
	assert.Less(t, summaryAt, chartAt)
}

func TestAnswerTextReportsNoticesAndFailure(t *testing.T) {
	answer := &Answer{
		SQL:     "SELECT nope",
		Notices: []chart.Notice{{Level: chart.LevelWarning, Message: chart.MessageNoData}},
	}
	answer.fail(StageQuery, "statement", "Query failed: no such column: nope")
	text := answer.Text()
	assert.Contains(t, text, "[warning] No data to visualize.")
	assert.Contains(t, text, "Error (query): Query failed: no such column: nope")
	assert.NotContains(t, text, "Results")

	var empty *Answer
	assert.Equal(t, "", empty.Text())
}
