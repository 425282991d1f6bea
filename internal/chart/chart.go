// File path: internal/chart/chart.go
package chart

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/telemetry"
)

const ContentType = gochart.ContentTypeSVG

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	MessageNoData       = "No data to visualize."
	MessageNeedsTwoCols = "Chart needs exactly two columns."
)

// Notice is a user-facing message produced instead of a chart.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a rendered bar chart. SVG is served separately by id.
type Chart struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
	Bars   []Bar  `json:"bars"`
	SVG    []byte `json:"-"`
}

// Outcome holds exactly one of Chart or Notice.
type Outcome struct {
	Chart  *Chart
	Notice *Notice
}

const (
	barWidth   = 40
	barSpacing = 24
	minWidth   = 800
	height     = 480
)

// Render draws rows as a bar chart titled title when they have exactly two
// positional fields: the first is the category, the second the value.
// Rendering problems are reported as an error notice, never returned.
func Render(title string, columns []string, rows [][]any) Outcome {
	logger := common.Logger()
	if len(rows) == 0 {
		return Outcome{Notice: &Notice{Level: LevelWarning, Message: MessageNoData}}
	}
	if width(columns, rows) != 2 {
		return Outcome{Notice: &Notice{Level: LevelInfo, Message: MessageNeedsTwoCols}}
	}

	bars, err := toBars(rows)
	if err != nil {
		logger.Warn("chart: rows not chartable", "error", err)
		return failed(err)
	}
	c := &Chart{ID: uuid.NewString(), Title: title, Bars: bars}
	if len(columns) == 2 {
		c.XLabel, c.YLabel = columns[0], columns[1]
	}
	svg, err := draw(c)
	if err != nil {
		logger.Warn("chart: render failed", "error", err)
		return failed(err)
	}
	c.SVG = svg
	telemetry.RecordChart()
	logger.Debug("chart: rendered", "id", c.ID, "bars", len(bars), "bytes", len(svg))
	return Outcome{Chart: c}
}

func failed(err error) Outcome {
	return Outcome{Notice: &Notice{Level: LevelError, Message: fmt.Sprintf("Could not generate chart: %v", err)}}
}

func width(columns []string, rows [][]any) int {
	if len(columns) > 0 {
		return len(columns)
	}
	return len(rows[0])
}

func toBars(rows [][]any) ([]Bar, error) {
	bars := make([]Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("row %d has %d fields", i+1, len(row))
		}
		label := "NULL"
		if row[0] != nil {
			s, err := cast.ToStringE(row[0])
			if err != nil {
				return nil, fmt.Errorf("row %d label: %w", i+1, err)
			}
			label = s
		}
		value, err := cast.ToFloat64E(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d value: %w", i+1, err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("row %d value is not finite", i+1)
		}
		bars = append(bars, Bar{Label: label, Value: value})
	}
	return bars, nil
}

func draw(c *Chart) ([]byte, error) {
	values := make([]gochart.Value, len(c.Bars))
	lo, hi := 0.0, 0.0
	for i, bar := range c.Bars {
		values[i] = gochart.Value{Label: html.EscapeString(bar.Label), Value: bar.Value}
		lo = math.Min(lo, bar.Value)
		hi = math.Max(hi, bar.Value)
	}
	if lo == hi {
		hi = lo + 1
	}
	w := len(values)*(barWidth+barSpacing) + 160
	if w < minWidth {
		w = minWidth
	}
	graph := gochart.BarChart{
		Title:        html.EscapeString(c.Title),
		Width:        w,
		Height:       height,
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		Background:   gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis: gochart.YAxis{
			Name:  html.EscapeString(c.YLabel),
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: values,
	}
	var buf bytes.Buffer
	if err := graph.Render(gochart.SVG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
