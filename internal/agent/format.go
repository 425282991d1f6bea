// File path: internal/agent/format.go
package agent

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Text renders the answer for terminals and tool clients: generated SQL,
// result rows, summary, then the chart or its notices.
func (a *Answer) Text() string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	if a.SQL != "" {
		fmt.Fprintf(&b, "SQL:\n%s\n", a.SQL)
	}
	if a.Columns != nil {
		fmt.Fprintf(&b, "\nResults (%d rows):\n", len(a.Rows))
		b.WriteString(strings.Join(a.Columns, " | "))
		b.WriteString("\n")
		for _, row := range a.Rows {
			cells := make([]string, len(row))
			for i, value := range row {
				if value == nil {
					cells[i] = "NULL"
					continue
				}
				cells[i] = cast.ToString(value)
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}
	}
	if a.Summary != "" {
		fmt.Fprintf(&b, "\nSummary:\n%s\n", a.Summary)
	}
	if a.Chart != nil {
		fmt.Fprintf(&b, "\nChart: %q (%d bars)\n", a.Chart.Title, len(a.Chart.Bars))
	}
	for _, notice := range a.Notices {
		fmt.Fprintf(&b, "\n[%s] %s\n", notice.Level, notice.Message)
	}
	if a.Failure != nil {
		fmt.Fprintf(&b, "\nError (%s): %s\n", a.Failure.Stage, a.Failure.Message)
	}
	return strings.TrimLeft(b.String(), "\n")
}
