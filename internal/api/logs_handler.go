// File path: internal/api/logs_handler.go
package api

import (
	"net/http"
	"strings"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

// handleLogs returns the captured log history, optionally narrowed by the
// level and component query parameters.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	level := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))
	component := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("component")))
	entries := common.LogEntries()
	filtered := make([]common.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if level != "" && entry.Level != level {
			continue
		}
		if component != "" && strings.ToLower(entry.Component) != component {
			continue
		}
		filtered = append(filtered, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": filtered})
}
