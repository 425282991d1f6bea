// File path: internal/sqlite/query.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/telemetry"
)

// ErrMultipleStatements is wrapped by the KindMultiple QueryError.
var ErrMultipleStatements = errors.New("only one statement can be executed at a time")

// ErrorKind classifies why a generated statement failed.
type ErrorKind string

const (
	KindStatement  ErrorKind = "statement"
	KindReadOnly   ErrorKind = "read_only"
	KindConstraint ErrorKind = "constraint"
	KindBusy       ErrorKind = "busy"
	KindEmpty      ErrorKind = "empty"
	KindMultiple   ErrorKind = "multiple_statements"
	KindCanceled   ErrorKind = "canceled"
	KindOther      ErrorKind = "other"
)

// QueryError is the failure half of Execute's result.
type QueryError struct {
	Kind ErrorKind
	SQL  string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sql %s error", e.Kind)
	}
	return fmt.Sprintf("sql %s error: %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ResultSet is the success half of Execute's result. Rows keep store order.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Execute runs exactly one statement and fetches every row. Input holding
// more than one statement is rejected before anything runs. Any failure is
// returned as a *QueryError; a nil error always comes with a non-nil
// ResultSet.
func (s *Store) Execute(ctx context.Context, statement string) (*ResultSet, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, &QueryError{Kind: KindEmpty, Err: errors.New("no statement to execute")}
	}
	if n := countStatements(statement); n > 1 {
		common.Logger().Warn("sqlite: statement rejected", "kind", KindMultiple, "statements", n)
		return nil, &QueryError{Kind: KindMultiple, SQL: statement, Err: ErrMultipleStatements}
	}
	if s == nil {
		return nil, &QueryError{Kind: KindOther, SQL: statement, Err: ErrStoreClosed}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.readDB()
	if err != nil {
		return nil, &QueryError{Kind: KindOther, SQL: statement, Err: err}
	}

	logger := common.Logger()
	start := time.Now()
	defer func() { telemetry.RecordQuery(time.Since(start)) }()

	rows, err := db.QueryxContext(ctx, statement)
	if err != nil {
		qerr := classify(statement, err)
		logger.Warn("sqlite: statement failed", "kind", qerr.Kind, "error", err)
		return nil, qerr
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(statement, err)
	}
	result := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, classify(statement, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		qerr := classify(statement, err)
		logger.Warn("sqlite: statement failed while reading rows", "kind", qerr.Kind, "error", err)
		return nil, qerr
	}
	logger.Debug("sqlite: statement executed", "rows", len(result.Rows), "columns", len(columns), "dur", time.Since(start))
	return result, nil
}

func classify(statement string, err error) *QueryError {
	qerr := &QueryError{Kind: KindOther, SQL: statement, Err: err}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		qerr.Kind = KindCanceled
		return qerr
	}
	var serr *moderncsqlite.Error
	if !errors.As(err, &serr) {
		return qerr
	}
	// Extended result codes carry the primary code in the low byte.
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_ERROR:
		qerr.Kind = KindStatement
	case sqlite3.SQLITE_READONLY:
		qerr.Kind = KindReadOnly
	case sqlite3.SQLITE_CONSTRAINT:
		qerr.Kind = KindConstraint
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		qerr.Kind = KindBusy
	}
	return qerr
}

// countStatements counts the ';'-separated statements in sql that hold
// anything besides whitespace and comments. Separators inside string
// literals, quoted identifiers and comments do not count.
func countStatements(sql string) int {
	count := 0
	content := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == ';':
			if content {
				count++
			}
			content = false
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			content = true
			for i++; i < len(sql); i++ {
				if sql[i] != closing {
					continue
				}
				// Doubled quotes escape themselves.
				if closing != ']' && i+1 < len(sql) && sql[i+1] == closing {
					i++
					continue
				}
				break
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
		default:
			content = true
		}
	}
	if content {
		count++
	}
	return count
}
