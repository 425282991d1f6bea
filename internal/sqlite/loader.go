// File path: internal/sqlite/loader.go
package sqlite

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/telemetry"
)

const (
	typeInteger = "INTEGER"
	typeReal    = "REAL"
	typeText    = "TEXT"
)

func (s *Store) loadSources(ctx context.Context, sources []Source) (*LoadReport, error) {
	logger := common.Logger()
	telemetry.RecordLoad()
	ctx, end := telemetry.StartSpan(ctx, "sqlite.load")
	report := &LoadReport{StartedAt: time.Now().UTC()}
	defer func() {
		report.Duration = time.Since(report.StartedAt).String()
		end("tables", len(report.Tables), "failed", report.Failed)
	}()
	if s.writer == nil {
		report.Failed = true
		return report, ErrStoreClosed
	}

	for _, src := range sources {
		load, err := s.loadTable(ctx, src)
		if err != nil {
			load.Error = err.Error()
			report.Tables = append(report.Tables, load)
			report.Failed = true
			report.Hint = missingFilesHint(sources)
			logger.Error("sqlite: load failed", "table", src.Table, "path", src.Path, "error", err)
			return report, &LoadError{Source: src, Err: err}
		}
		report.Tables = append(report.Tables, load)
		telemetry.RecordTableLoad(load.Table, load.Rows)
		logger.Info("sqlite: table loaded", "table", load.Table, "path", load.Path, "rows", load.Rows, "columns", len(load.Columns))
	}
	return report, nil
}

func (s *Store) loadTable(ctx context.Context, src Source) (TableLoad, error) {
	load := TableLoad{Table: strings.TrimSpace(src.Table), Path: src.Path}
	if load.Table == "" {
		return load, errors.New("table name required")
	}
	header, records, err := readCSVFile(src.Path)
	if err != nil {
		return load, err
	}
	columns := inferColumns(header, records)
	kinds := inferKinds(records, columns)

	tx, err := s.writer.BeginTxx(ctx, nil)
	if err != nil {
		return load, fmt.Errorf("begin load: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(load.Table)); err != nil {
		tx.Rollback()
		return load, fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(load.Table, columns)); err != nil {
		tx.Rollback()
		return load, fmt.Errorf("create table: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, insertSQL(load.Table, columns))
	if err != nil {
		tx.Rollback()
		return load, fmt.Errorf("prepare insert: %w", err)
	}
	for i, record := range records {
		if _, err := stmt.ExecContext(ctx, convertRecord(record, columns, kinds)...); err != nil {
			stmt.Close()
			tx.Rollback()
			return load, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return load, fmt.Errorf("commit load: %w", err)
	}
	load.Rows = len(records)
	load.Columns = columns
	return load, nil
}

// readCSVFile returns the normalised header and the data records. Short
// records are padded with empty cells; long records are an error.
func readCSVFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		records = append(records, record)
	}
	return header, records, nil
}

// normalizeHeader strips a UTF-8 BOM, names blank columns "Unnamed: N" and
// suffixes repeated names with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		// SQLite identifiers are case-insensitive.
		candidate := name
		for n := 1; seen[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

// isBlankRecord matches a whitespace-only line. A line of bare separators is
// a row of missing cells and is kept.
func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// naTokens are the cell values read as missing, in addition to the empty
// cell.
var naTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

func isMissing(cell string) bool {
	return cell == "" || naTokens[cell]
}

func parseBool(cell string) (bool, bool) {
	switch cell {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// column kinds beyond the declared SQL type.
type cellKind int

const (
	kindText cellKind = iota
	kindInteger
	kindReal
	kindBool
)

// inferColumns types each column from its non-missing cells:
//   - all integers: INTEGER, or REAL when the column has missing cells
//   - all numbers, or no values at all: REAL
//   - all TRUE/FALSE spellings: INTEGER 1/0, or TEXT holding 1/0 when the
//     column has missing cells
//   - anything else: TEXT
func inferColumns(header []string, records [][]string) []Column {
	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{CID: i, Name: name, Type: inferType(records, i)}
	}
	return columns
}

func inferKinds(records [][]string, columns []Column) []cellKind {
	kinds := make([]cellKind, len(columns))
	for i := range columns {
		kinds[i], _ = inferKind(records, i)
	}
	return kinds
}

func inferType(records [][]string, idx int) string {
	kind, missing := inferKind(records, idx)
	switch kind {
	case kindInteger:
		if missing {
			return typeReal
		}
		return typeInteger
	case kindReal:
		return typeReal
	case kindBool:
		if missing {
			return typeText
		}
		return typeInteger
	default:
		return typeText
	}
}

// inferKind reports the narrowest kind holding every non-missing cell of
// column idx, and whether any cell is missing. A column with no values is
// kindReal.
func inferKind(records [][]string, idx int) (cellKind, bool) {
	sawValue, missing := false, false
	isBool, isInt, isReal := true, true, true
	for _, record := range records {
		cell := strings.TrimSpace(record[idx])
		if isMissing(cell) {
			missing = true
			continue
		}
		sawValue = true
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isReal && !isInt {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isReal = false
			}
		}
		if !isBool && !isInt && !isReal {
			break
		}
	}
	switch {
	case !sawValue:
		return kindReal, missing
	case isBool:
		return kindBool, missing
	case isInt:
		return kindInteger, missing
	case isReal:
		return kindReal, missing
	default:
		return kindText, missing
	}
}

func convertRecord(record []string, columns []Column, kinds []cellKind) []any {
	args := make([]any, len(columns))
	for i := range columns {
		raw := record[i]
		cell := strings.TrimSpace(raw)
		if isMissing(cell) {
			args[i] = nil
			continue
		}
		switch kinds[i] {
		case kindBool:
			v, _ := parseBool(cell)
			if v {
				args[i] = int64(1)
			} else {
				args[i] = int64(0)
			}
		case kindInteger:
			v, _ := strconv.ParseInt(cell, 10, 64)
			if columns[i].Type == typeReal {
				args[i] = float64(v)
			} else {
				args[i] = v
			}
		case kindReal:
			v, _ := strconv.ParseFloat(cell, 64)
			args[i] = v
		default:
			args[i] = raw
		}
	}
	return args
}

func createTableSQL(table string, columns []Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col.Name) + " " + col.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

func insertSQL(table string, columns []Column) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		names[i] = quoteIdent(col.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func missingFilesHint(sources []Source) string {
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, filepath.Base(src.Path))
	}
	return "Place all CSV files (" + strings.Join(names, ", ") + ") in the data directory and reload."
}
