// File path: internal/sqlite/types.go
package sqlite

import (
	"errors"
	"fmt"
	"time"
)

var ErrStoreClosed = errors.New("sqlite store not initialised")

// Source maps a CSV file onto the relation it is loaded into.
type Source struct {
	Table string `yaml:"table" json:"table"`
	Path  string `yaml:"path" json:"path"`
}

// Column is one row of PRAGMA table_info.
type Column struct {
	CID     int     `db:"cid" json:"-"`
	Name    string  `db:"name" json:"name"`
	Type    string  `db:"type" json:"type"`
	NotNull int     `db:"notnull" json:"-"`
	Default *string `db:"dflt_value" json:"-"`
	PK      int     `db:"pk" json:"-"`
}

// Table is a relation and its columns in declaration order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// TableLoad describes the outcome of loading one source.
type TableLoad struct {
	Table   string   `json:"table"`
	Path    string   `json:"path"`
	Rows    int      `json:"rows"`
	Columns []Column `json:"columns,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// LoadReport is the result of a full (re)load of the store.
type LoadReport struct {
	StartedAt time.Time   `json:"started_at"`
	Duration  string      `json:"duration"`
	Tables    []TableLoad `json:"tables"`
	Failed    bool        `json:"failed"`
	Hint      string      `json:"hint,omitempty"`
}

// RowCount returns the loaded rows for table, or -1 when it was not loaded.
func (r *LoadReport) RowCount(table string) int {
	if r == nil {
		return -1
	}
	for _, t := range r.Tables {
		if t.Table == table && t.Error == "" {
			return t.Rows
		}
	}
	return -1
}

// LoadError wraps the first failure of a load. Tables listed before the
// failing source remain in the store.
type LoadError struct {
	Source Source
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.Source.Table, e.Source.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
