// File path: internal/agent/prompts.go
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const sqlPromptTemplate = `
You are an expert SQL analyst. Based on the database schema below, write a single, syntactically correct SQLite query to answer the user's question.
Only output the SQL query and nothing else.

**Database Schema:**
%s

**Question:**
"%s"

**SQL Query:**
`

const summaryPromptTemplate = `
You are a helpful AI assistant. A user asked the following question:
"%s"

The answer from the database is:
"%s"

Provide a concise, human-readable answer based on this data.
`

func buildSQLPrompt(schema, question string) string {
	return fmt.Sprintf(sqlPromptTemplate, schema, question)
}

func buildSummaryPrompt(question, data string) string {
	return fmt.Sprintf(summaryPromptTemplate, question, data)
}

// FormatRows renders rows as compact JSON for the summary prompt.
func FormatRows(rows [][]any) string {
	if rows == nil {
		rows = [][]any{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprint(rows)
	}
	return string(data)
}

// ExtractSQL strips markdown code fences and surrounding whitespace from a
// model response.
func ExtractSQL(response string) string {
	sql := strings.TrimSpace(response)
	sql = strings.ReplaceAll(sql, "```sql", "")
	sql = strings.ReplaceAll(sql, "```SQL", "")
	sql = strings.ReplaceAll(sql, "```", "")
	return strings.TrimSpace(sql)
}
