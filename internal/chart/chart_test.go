// File path: internal/chart/chart_test.go
package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTwoColumnsProducesChart(t *testing.T) {
	question := "What were total sales per month?"
	out := Render(question, []string{"date", "amount"}, [][]any{{"2024-01", int64(100)}, {"2024-02", int64(150)}})

	require.Nil(t, out.Notice)
	require.NotNil(t, out.Chart)
	assert.NotEmpty(t, out.Chart.ID)
	assert.Equal(t, question, out.Chart.Title)
	assert.Equal(t, "date", out.Chart.XLabel)
	assert.Equal(t, "amount", out.Chart.YLabel)
	assert.Equal(t, []Bar{{Label: "2024-01", Value: 100}, {Label: "2024-02", Value: 150}}, out.Chart.Bars)
	svg := string(out.Chart.SVG)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, question)
}

func TestRenderSingleBarAndStringValues(t *testing.T) {
	out := Render("one", []string{"item", "total"}, [][]any{{"A", "42.5"}})
	require.NotNil(t, out.Chart)
	assert.Equal(t, 42.5, out.Chart.Bars[0].Value)

	out = Render("zeros", []string{"item", "total"}, [][]any{{nil, 0}, {"b", nil}})
	require.NotNil(t, out.Chart)
	assert.Equal(t, "NULL", out.Chart.Bars[0].Label)
}

func TestRenderEmptyRowsWarns(t *testing.T) {
	out := Render("q", []string{"date", "amount"}, nil)
	assert.Nil(t, out.Chart)
	require.NotNil(t, out.Notice)
	assert.Equal(t, Notice{Level: LevelWarning, Message: MessageNoData}, *out.Notice)
}

func TestRenderOtherShapesProduceNoChart(t *testing.T) {
	cases := map[string]struct {
		columns []string
		rows    [][]any
	}{
		"zero":  {columns: nil, rows: [][]any{{}}},
		"one":   {columns: []string{"n"}, rows: [][]any{{int64(1)}}},
		"three": {columns: []string{"a", "b", "c"}, rows: [][]any{{"x", 1, 2}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := Render("q", tc.columns, tc.rows)
			assert.Nil(t, out.Chart)
			require.NotNil(t, out.Notice)
			assert.Equal(t, LevelInfo, out.Notice.Level)
			assert.Equal(t, MessageNeedsTwoCols, out.Notice.Message)
		})
	}
}

func TestRenderUnconvertibleValueReportsError(t *testing.T) {
	out := Render("q", []string{"item", "status"}, [][]any{{"a", "eligible"}})
	assert.Nil(t, out.Chart)
	require.NotNil(t, out.Notice)
	assert.Equal(t, LevelError, out.Notice.Level)
	assert.True(t, strings.HasPrefix(out.Notice.Message, "Could not generate chart: "))
}

func TestRenderEscapesMarkup(t *testing.T) {
	out := Render("sales < 10 & rising", []string{"k", "v"}, [][]any{{"<b>", 1}, {"c", 2}})
	require.NotNil(t, out.Chart)
	svg := string(out.Chart.SVG)
	assert.Contains(t, svg, "sales &lt; 10 &amp; rising")
	assert.NotContains(t, svg, "<b>")
}
