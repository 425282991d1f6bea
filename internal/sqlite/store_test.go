// File path: internal/sqlite/store_test.go
package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func openTestStore(t *testing.T, queryOnly bool) *Store {
	t.Helper()
	store, err := OpenWithConfig(Config{Path: filepath.Join(t.TempDir(), "ecommerce_data.db"), QueryOnly: queryOnly})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func defaultSources(t *testing.T, dir string) []Source {
	t.Helper()
	return []Source{
		{Table: "ad_sales", Path: writeCSV(t, dir, "plasm.csv", "date,item_id,ad_spend,ad_sales\n2024-01-01,1,10.5,100\n2024-01-02,2,3,20\n2024-01-03,1,7.25,55\n")},
		{Table: "total_sales", Path: writeCSV(t, dir, "pltsm.csv", "date,amount\n2024-01,100\n2024-02,150\n")},
		{Table: "eligibility", Path: writeCSV(t, dir, "plet.csv", "eligibility_datetime_utc,item_id,eligibility,message\n2024-01-01 00:00:00,1,TRUE,\n2024-01-01 00:00:00,2,FALSE,not eligible\n2024-01-02 00:00:00,3,TRUE,\n2024-01-02 00:00:00,4,TRUE,\n")},
	}
}

func TestRebuildLoadsEveryRelationWithFileRowCounts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, false)
	sources := defaultSources(t, t.TempDir())

	report, err := store.Rebuild(ctx, sources)
	require.NoError(t, err)
	require.False(t, report.Failed)
	assert.Equal(t, 3, report.RowCount("ad_sales"))
	assert.Equal(t, 2, report.RowCount("total_sales"))
	assert.Equal(t, 4, report.RowCount("eligibility"))
	assert.Equal(t, -1, report.RowCount("missing"))

	for table, want := range map[string]int64{"ad_sales": 3, "total_sales": 2, "eligibility": 4} {
		result, err := store.Execute(ctx, `SELECT COUNT(*) FROM "`+table+`"`)
		require.NoError(t, err)
		assert.Equal(t, want, result.Rows[0][0], table)
	}

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, "ad_sales", tables[0].Name)
	names := make([]string, 0, len(tables[0].Columns))
	for _, col := range tables[0].Columns {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"date", "item_id", "ad_spend", "ad_sales"}, names)
}

func TestRebuildLeavesNoResidue(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openTestStore(t, false)
	sources := defaultSources(t, dir)

	scratch := Source{Table: "scratch", Path: writeCSV(t, dir, "scratch.csv", "x\n1\n")}
	_, err := store.Rebuild(ctx, append(sources, scratch))
	require.NoError(t, err)

	sources[1].Path = writeCSV(t, dir, "pltsm.csv", "date,amount\n2024-03,75\n")
	report, err := store.Rebuild(ctx, sources)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowCount("total_sales"))

	result, err := store.Execute(ctx, `SELECT date, amount FROM total_sales`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"2024-03", int64(75)}}, result.Rows)

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	for _, table := range tables {
		assert.NotEqual(t, "scratch", table.Name)
	}
}

func TestRebuildStopsAtFirstFailureAndKeepsEarlierTables(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openTestStore(t, false)
	sources := defaultSources(t, dir)
	sources[1].Path = filepath.Join(dir, "absent.csv")

	report, err := store.Rebuild(ctx, sources)
	require.Error(t, err)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "total_sales", loadErr.Source.Table)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NotNil(t, report)
	assert.True(t, report.Failed)
	assert.Contains(t, report.Hint, "plasm.csv")
	assert.Equal(t, 3, report.RowCount("ad_sales"))
	assert.Equal(t, -1, report.RowCount("eligibility"))

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "ad_sales", tables[0].Name)
}

func TestStorePathWithURIMetacharacters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "q?a#1 100%", "ecommerce_data.db")
	store, err := OpenWithConfig(Config{Path: path, QueryOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Rebuild(ctx, defaultSources(t, t.TempDir()))
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ecommerce_data.db", entries[0].Name())

	result, err := store.Execute(ctx, "SELECT COUNT(*) FROM total_sales")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestFileDSNEscapesPath(t *testing.T) {
	assert.Equal(t, "file:///data/a%3Fb%23c.db?_pragma=busy_timeout(5000)", fileDSN("/data/a?b#c.db", 5000, false))
	assert.Equal(t, "file:///data/x.db?_pragma=busy_timeout(10)&_pragma=query_only(1)", fileDSN("/data/x.db", 10, true))
}

func TestExecuteReturnsRowsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openTestStore(t, false)
	_, err := store.Rebuild(ctx, []Source{{Table: "total_sales", Path: writeCSV(t, dir, "pltsm.csv", "date,amount\n2024-01,100\n2024-02,150\n")}})
	require.NoError(t, err)

	result, err := store.Execute(ctx, "SELECT date, amount FROM total_sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "amount"}, result.Columns)
	assert.Equal(t, [][]any{{"2024-01", int64(100)}, {"2024-02", int64(150)}}, result.Rows)
}

func TestExecuteMalformedStatementIsQueryError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, false)
	_, err := store.Rebuild(ctx, defaultSources(t, t.TempDir()))
	require.NoError(t, err)

	for _, statement := range []string{"SELEC date FROM total_sales", "SELECT nope FROM total_sales", "SELECT * FROM missing"} {
		result, err := store.Execute(ctx, statement)
		assert.Nil(t, result)
		var qerr *QueryError
		require.True(t, errors.As(err, &qerr), statement)
		assert.Equal(t, KindStatement, qerr.Kind, statement)
		assert.Equal(t, statement, qerr.SQL)
	}

	_, err = store.Execute(ctx, "   ")
	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, KindEmpty, qerr.Kind)
}

func TestExecuteRejectsMultipleStatements(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, false)
	_, err := store.Rebuild(ctx, defaultSources(t, t.TempDir()))
	require.NoError(t, err)

	for _, statement := range []string{"SELECT 1; SELECT 2", "SELECT 1 AS a; DROP TABLE eligibility", "SELECT 1;\n-- note\nSELECT 2;"} {
		result, err := store.Execute(ctx, statement)
		assert.Nil(t, result, statement)
		var qerr *QueryError
		require.True(t, errors.As(err, &qerr), statement)
		assert.Equal(t, KindMultiple, qerr.Kind, statement)
		assert.ErrorIs(t, err, ErrMultipleStatements)
	}

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	result, err := store.Execute(ctx, "SELECT COUNT(*) FROM total_sales; ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestCountStatements(t *testing.T) {
	cases := map[string]int{
		"SELECT 1":                          1,
		"SELECT 1;":                         1,
		"SELECT 1; -- done":                 1,
		"SELECT 1; /* done; really */":      1,
		"SELECT ';' AS semi":                1,
		`SELECT "a;b" FROM t`:               1,
		"SELECT 'it''s; fine'":              1,
		"SELECT [odd;name] FROM t":          1,
		"SELECT 1 -- trailing; comment\n":   1,
		"SELECT 1; SELECT 2":                2,
		";;SELECT 1;;":                      1,
		"SELECT 1; DELETE FROM t; SELECT 2": 3,
		"-- only a comment":                 0,
	}
	for sql, want := range cases {
		assert.Equal(t, want, countStatements(sql), sql)
	}
}

func TestExecuteResultsMayContainErrorText(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openTestStore(t, false)
	_, err := store.Rebuild(ctx, []Source{{Table: "notes", Path: writeCSV(t, dir, "notes.csv", "note\nAn error occurred: not really\n")}})
	require.NoError(t, err)

	result, err := store.Execute(ctx, "SELECT note FROM notes")
	require.NoError(t, err)
	assert.Equal(t, "An error occurred: not really", result.Rows[0][0])
}

func TestQueryOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, true)
	require.True(t, store.QueryOnly())
	_, err := store.Rebuild(ctx, defaultSources(t, t.TempDir()))
	require.NoError(t, err)

	_, err = store.Execute(ctx, "DELETE FROM total_sales")
	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, KindReadOnly, qerr.Kind)

	result, err := store.Execute(ctx, "SELECT COUNT(*) FROM total_sales")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestClosedStoreReportsErrStoreClosed(t *testing.T) {
	store := openTestStore(t, false)
	require.NoError(t, store.Close())

	_, err := store.Tables(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Execute(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestDescribeSchemaFormat(t *testing.T) {
	got := DescribeSchema([]Table{{
		Name:    "total_sales",
		Columns: []Column{{Name: "date", Type: "TEXT"}, {Name: "amount", Type: "INTEGER"}},
	}})
	assert.Equal(t, "\nTable 'total_sales':\n   • date (TEXT)\n   • amount (INTEGER)\n", got)
}

func TestInferTypes(t *testing.T) {
	records := [][]string{
		{"1", "1.5", "a", "", "7", "TRUE", "true"},
		{"2", "2", "b", "", "", "FALSE", "NA"},
		{"-3", "1e3", "3", "", "8", "True", "false"},
	}
	header := []string{"i", "r", "t", "blank", "sparse", "flag", "sparse_flag"}
	columns := inferColumns(header, records)
	types := make([]string, len(columns))
	for i, col := range columns {
		types[i] = col.Type
	}
	assert.Equal(t, []string{typeInteger, typeReal, typeText, typeReal, typeReal, typeInteger, typeText}, types)

	kinds := inferKinds(records, columns)
	assert.Equal(t, []any{int64(2), float64(2), "b", nil, nil, int64(0), nil}, convertRecord(records[1], columns, kinds))
	assert.Equal(t, []any{int64(1), 1.5, "a", nil, float64(7), int64(1), int64(1)}, convertRecord(records[0], columns, kinds))
}

func TestRebuildReadsMissingMarkersAndFlags(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, false)
	path := writeCSV(t, t.TempDir(), "plet.csv", "id,eligible,note,qty\n1,TRUE,NA,3\n2,FALSE,,\n3,TRUE,n/a,5\n")

	report, err := store.Rebuild(ctx, []Source{{Table: "eligibility", Path: path}})
	require.NoError(t, err)
	assert.Equal(t, 3, report.RowCount("eligibility"))

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	types := map[string]string{}
	for _, col := range tables[0].Columns {
		types[col.Name] = col.Type
	}
	assert.Equal(t, map[string]string{"id": typeInteger, "eligible": typeInteger, "note": typeReal, "qty": typeReal}, types)

	result, err := store.Execute(ctx, `SELECT id, eligible, note, qty FROM eligibility ORDER BY rowid`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int64(1), int64(1), nil, float64(3)},
		{int64(2), int64(0), nil, nil},
		{int64(3), int64(1), nil, float64(5)},
	}, result.Rows)

	result, err = store.Execute(ctx, `SELECT COUNT(*) FROM eligibility WHERE eligible = 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"\ufeffdate", "", "Amount", "amount", " amount "})
	assert.Equal(t, []string{"date", "Unnamed: 1", "Amount", "amount.1", "amount.2"}, got)
}

func TestReadCSVFileShapes(t *testing.T) {
	dir := t.TempDir()

	header, records, err := readCSVFile(writeCSV(t, dir, "short.csv", "a,b,c\n1,2\n\n3,4,5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, header)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"3", "4", "5"}}, records)

	_, records, err = readCSVFile(writeCSV(t, dir, "separators.csv", "a,b\n,\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"", ""}, {"1", "2"}}, records)

	_, _, err = readCSVFile(writeCSV(t, dir, "long.csv", "a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expected 2 fields"))

	_, _, err = readCSVFile(writeCSV(t, dir, "empty.csv", ""))
	require.Error(t, err)
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_open_conns: 2\nbusy_timeout: 2s\n"), 0o644))
	t.Setenv("SQLITE_CONFIG_FILE", path)
	t.Setenv("SQLITE_MAX_OPEN_CONNS", "6")
	t.Setenv("SQLITE_MAX_IDLE_CONNS", "")
	t.Setenv("SQLITE_CONN_MAX_LIFETIME", "")
	t.Setenv("SQLITE_CONN_MAX_IDLE_TIME", "")
	t.Setenv("SQLITE_BUSY_TIMEOUT", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxOpenConns)
	assert.Equal(t, 6, cfg.MaxIdleConns)
	assert.Equal(t, "2s", cfg.BusyTimeout.String())

	t.Setenv("SQLITE_MAX_OPEN_CONNS", "many")
	_, err = LoadConfig()
	assert.Error(t, err)
}
