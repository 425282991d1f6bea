// File path: cmd/ecomqa/main_test.go
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicodishanthj/ecomqa/internal/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ECOMQA_CONFIG_FILE", "ECOMQA_STORE_PATH", "ECOMQA_DATA_DIR", "ECOMQA_SOURCES",
		"ECOMQA_QUERY_ONLY", "ECOMQA_ASK_TIMEOUT", "ECOMQA_CHART_CACHE", "ECOMQA_LLM_PROVIDER", "ECOMQA_HISTORY_PATH",
		"SQLITE_CONFIG_FILE", "SQLITE_PATH", "GOOGLE_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"plasm.csv": "date,item_id,ad_spend\n2024-01-01,1,10.5\n2024-01-02,2,3\n",
		"pltsm.csv": "date,amount\n2024-01,100\n2024-02,150\n",
		"plet.csv":  "item_id,eligibility\n1,TRUE\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadThenSchema(t *testing.T) {
	clearEnv(t)
	dir := writeData(t)
	store := filepath.Join(t.TempDir(), "ecommerce_data.db")

	out, err := run(t, "load", "--data-dir", dir, "--store", store, "--provider", "gemini", "--skip-load=false")
	require.NoError(t, err)
	assert.Contains(t, out, "ad_sales")
	assert.Contains(t, out, "2 rows, 3 columns")
	assert.Contains(t, out, "1 rows, 2 columns")

	out, err = run(t, "schema", "--data-dir", dir, "--store", store, "--skip-load")
	require.NoError(t, err)
	assert.Contains(t, out, "Table 'total_sales':")
	assert.Contains(t, out, "amount (INTEGER)")
}

func TestLoadReportsMissingFiles(t *testing.T) {
	clearEnv(t)
	dir := writeData(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "pltsm.csv")))
	store := filepath.Join(t.TempDir(), "ecommerce_data.db")

	out, err := run(t, "load", "--data-dir", dir, "--store", store, "--skip-load=false")
	require.Error(t, err)
	assert.Contains(t, out, "Place all CSV files")
}

func TestAskWithoutCredentialFails(t *testing.T) {
	clearEnv(t)
	dir := writeData(t)
	store := filepath.Join(t.TempDir(), "ecommerce_data.db")

	_, err := run(t, "ask", "total sales?", "--data-dir", dir, "--store", store, "--provider", "gemini", "--skip-load=false")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
	_, statErr := os.Stat(store)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOllamaAddress(t *testing.T) {
	base, hostPort := ollamaAddress("")
	assert.Equal(t, "http://127.0.0.1:11434", base)
	assert.Equal(t, "127.0.0.1:11434", hostPort)

	base, hostPort = ollamaAddress("0.0.0.0:9999/")
	assert.Equal(t, "http://0.0.0.0:9999", base)
	assert.Equal(t, "0.0.0.0:9999", hostPort)

	base, hostPort = ollamaAddress("https://models.internal:443")
	assert.Equal(t, "https://models.internal:443", base)
	assert.Equal(t, "models.internal:443", hostPort)
}
