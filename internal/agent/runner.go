// File path: internal/agent/runner.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/ecomqa/internal/chart"
	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/telemetry"
	"github.com/nicodishanthj/ecomqa/internal/llm"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

var ErrEmptyQuestion = errors.New("please enter a question")

// ValidateQuestion returns ErrEmptyQuestion for a blank question.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// Store is the part of the SQLite store the pipeline reads from.
type Store interface {
	Tables(ctx context.Context) ([]sqlite.Table, error)
	Execute(ctx context.Context, statement string) (*sqlite.ResultSet, error)
}

// Runner turns a question into SQL, runs it and explains the result.
type Runner struct {
	provider llm.Provider
	store    Store
	timeout  time.Duration
	render   func(title string, columns []string, rows [][]any) chart.Outcome
}

type Option func(*Runner)

// WithTimeout bounds a whole Ask call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(provider llm.Provider, store Store, opts ...Option) *Runner {
	r := &Runner{provider: provider, store: store, render: chart.Render}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SynthesizeSQL asks the provider for a statement answering question against
// schema and returns it without fences.
func (r *Runner) SynthesizeSQL(ctx context.Context, question, schema string) (string, error) {
	if r.provider == nil {
		return "", errors.New("no llm provider configured")
	}
	start := time.Now()
	reply, err := r.provider.Chat(ctx, []llm.Message{{Role: "user", Content: buildSQLPrompt(schema, question)}})
	telemetry.RecordLLMCall("synthesis", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	sql := ExtractSQL(reply)
	if sql == "" {
		return "", errors.New("model returned no sql")
	}
	return sql, nil
}

// Summarize asks the provider to explain data as an answer to question.
func (r *Runner) Summarize(ctx context.Context, question, data string) (string, error) {
	if r.provider == nil {
		return "", errors.New("no llm provider configured")
	}
	start := time.Now()
	reply, err := r.provider.Chat(ctx, []llm.Message{{Role: "user", Content: buildSummaryPrompt(question, data)}})
	telemetry.RecordLLMCall("summary", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Ask runs the full pipeline for one question. Stage failures are reported
// on the Answer; the error is non-nil only for a runner without a store.
func (r *Runner) Ask(ctx context.Context, question string) (answer *Answer, err error) {
	if r == nil || r.store == nil {
		return nil, errors.New("agent runner not initialised")
	}
	logger := common.Logger()
	telemetry.RecordQuestion()
	answer = &Answer{ID: uuid.NewString(), Question: strings.TrimSpace(question), Rows: [][]any{}}
	ctx, end := telemetry.StartSpan(ctx, "agent.ask")
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("agent: pipeline panicked", "id", answer.ID, "panic", rec, "stack", string(debug.Stack()))
			answer.fail(StageUnexpected, "", fmt.Sprintf("Unexpected error: %v", rec))
		}
		answer.Duration = telemetry.SpanDuration(ctx).String()
		stage := ""
		if answer.Failure != nil {
			stage = string(answer.Failure.Stage)
			telemetry.RecordStageFailure(stage)
		}
		end("id", answer.ID, "failed_stage", stage)
	}()

	if err := ValidateQuestion(answer.Question); err != nil {
		answer.fail(StageValidation, "", "Please enter a question.")
		return answer, nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	logger.Info("agent: question received", "id", answer.ID, "question", answer.Question)

	tables, err := r.store.Tables(ctx)
	if err != nil {
		logger.Error("agent: schema introspection failed", "id", answer.ID, "error", err)
		answer.fail(StageSchema, "", fmt.Sprintf("Could not read the database schema: %v", err))
		return answer, nil
	}
	sql, err := r.SynthesizeSQL(ctx, answer.Question, sqlite.DescribeSchema(tables))
	if err != nil {
		logger.Error("agent: sql synthesis failed", "id", answer.ID, "error", err)
		answer.fail(StageSynthesis, "", fmt.Sprintf("Could not generate SQL: %v", err))
		return answer, nil
	}
	answer.SQL = sql
	logger.Info("agent: sql generated", "id", answer.ID, "sql", sql)

	result, err := r.store.Execute(ctx, sql)
	if err != nil {
		kind := string(sqlite.KindOther)
		var qerr *sqlite.QueryError
		if errors.As(err, &qerr) {
			kind = string(qerr.Kind)
		}
		logger.Warn("agent: query failed", "id", answer.ID, "kind", kind, "error", err)
		answer.fail(StageQuery, kind, fmt.Sprintf("Query failed: %v", err))
		return answer, nil
	}
	answer.Columns = result.Columns
	answer.Rows = result.Rows

	summary, err := r.Summarize(ctx, answer.Question, FormatRows(result.Rows))
	if err != nil {
		logger.Error("agent: summary failed", "id", answer.ID, "error", err)
		answer.fail(StageSummary, "", fmt.Sprintf("Could not summarize the result: %v", err))
		return answer, nil
	}
	answer.Summary = summary

	outcome := r.render(answer.Question, result.Columns, result.Rows)
	answer.Chart = outcome.Chart
	if outcome.Notice != nil {
		answer.Notices = append(answer.Notices, *outcome.Notice)
	}
	logger.Info("agent: question answered", "id", answer.ID, "rows", len(answer.Rows), "chart", answer.Chart != nil)
	return answer, nil
}
