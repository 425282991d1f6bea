// File path: internal/agent/answer.go
package agent

import "github.com/nicodishanthj/ecomqa/internal/chart"

type Stage string

const (
	StageValidation Stage = "validation"
	StageSchema     Stage = "schema"
	StageSynthesis  Stage = "synthesis"
	StageQuery      Stage = "query"
	StageSummary    Stage = "summary"
	StageUnexpected Stage = "unexpected"
)

// Failure records the first stage of the pipeline that did not succeed.
// Kind is set for query failures only.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Answer carries the outputs in display order: SQL, rows, summary, chart.
type Answer struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	SQL      string         `json:"sql,omitempty"`
	Columns  []string       `json:"columns,omitempty"`
	Rows     [][]any        `json:"rows"`
	Summary  string         `json:"summary,omitempty"`
	Chart    *chart.Chart   `json:"chart,omitempty"`
	Notices  []chart.Notice `json:"notices,omitempty"`
	Failure  *Failure       `json:"failure,omitempty"`
	Duration string         `json:"duration"`
}

func (a *Answer) OK() bool {
	return a != nil && a.Failure == nil
}

func (a *Answer) fail(stage Stage, kind, message string) {
	a.Failure = &Failure{Stage: stage, Kind: kind, Message: message}
}
