// File path: internal/api/store_handler.go
package api

import (
	"errors"
	"net/http"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

var errChartNotFound = errors.New("chart not found or expired")

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	tables, description, err := s.orchestrator.Schema(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if tables == nil {
		tables = []sqlite.Table{}
	}
	writeJSON(w, http.StatusOK, schemaResponse{Tables: tables, Description: description})
}

// handleReload rebuilds the store. A failed load is still a completed
// request; the report says which source failed.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	report, err := s.orchestrator.Reload(r.Context())
	resp := reloadResponse{Report: report}
	if err != nil {
		var loadErr *sqlite.LoadError
		if !errors.As(err, &loadErr) {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Error = err.Error()
		logger.Warn("api: reload incomplete", "error", err)
	} else {
		logger.Info("api: reload completed", "tables", len(report.Tables))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Lifecycle())
}
