// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	questionsTotal *expvar.Int
	stageFailures  *expvar.Map

	llmCallsTotal *expvar.Map
	llmLatencyMS  *expvar.Map

	queryTotal     *expvar.Int
	queryLatencyMS *expvar.Int

	rowsLoadedTotal *expvar.Map
	loadsTotal      *expvar.Int

	chartsRendered *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		questionsTotal = expvar.NewInt("ecomqa_questions_total")
		stageFailures = expvar.NewMap("ecomqa_stage_failures")

		llmCallsTotal = expvar.NewMap("ecomqa_llm_calls_total")
		llmLatencyMS = expvar.NewMap("ecomqa_llm_latency_ms")

		queryTotal = expvar.NewInt("ecomqa_queries_total")
		queryLatencyMS = expvar.NewInt("ecomqa_query_latency_ms")

		rowsLoadedTotal = expvar.NewMap("ecomqa_rows_loaded_total")
		loadsTotal = expvar.NewInt("ecomqa_loads_total")

		chartsRendered = expvar.NewInt("ecomqa_charts_rendered_total")
	})
}

// StartSpan logs the start of a named operation at debug level and returns a
// func that logs its end with the elapsed time.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...any)) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...any) {
		logger.Debug("trace: end", append([]any{"span", name, "dur", time.Since(sp.start)}, attrs...)...)
	}
}

// SpanDuration reports how long the innermost span on ctx has been running.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func RecordQuestion() {
	ensureInit()
	questionsTotal.Add(1)
}

func RecordStageFailure(stage string) {
	ensureInit()
	stageFailures.Add(normalizeKey(stage, "unknown"), 1)
}

// RecordLLMCall counts one provider round trip; purpose is "synthesis" or "summary".
func RecordLLMCall(purpose string, duration time.Duration) {
	ensureInit()
	key := normalizeKey(purpose, "generic")
	llmCallsTotal.Add(key, 1)
	if duration > 0 {
		llmLatencyMS.Add(key, duration.Milliseconds())
	}
}

func RecordQuery(duration time.Duration) {
	ensureInit()
	queryTotal.Add(1)
	if duration > 0 {
		queryLatencyMS.Add(duration.Milliseconds())
	}
}

func RecordTableLoad(table string, rows int) {
	ensureInit()
	if rows < 0 {
		return
	}
	rowsLoadedTotal.Add(normalizeKey(table, "unnamed"), int64(rows))
}

func RecordLoad() {
	ensureInit()
	loadsTotal.Add(1)
}

func RecordChart() {
	ensureInit()
	chartsRendered.Add(1)
}

func normalizeKey(value, fallback string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return fallback
	}
	return key
}
