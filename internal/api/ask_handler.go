// File path: internal/api/ask_handler.go
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/ecomqa/internal/agent"
	"github.com/nicodishanthj/ecomqa/internal/chart"
	"github.com/nicodishanthj/ecomqa/internal/common"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: ask decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := agent.ValidateQuestion(req.Question); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	answer, err := s.orchestrator.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := askResponse{Answer: answer}
	if answer.Chart != nil {
		s.charts.Add(answer.Chart.ID, answer.Chart)
		resp.ChartURL = "/v1/charts/" + answer.Chart.ID
	}
	stage := ""
	if answer.Failure != nil {
		stage = string(answer.Failure.Stage)
	}
	logger.Info("api: ask completed", "id", answer.ID, "rows", len(answer.Rows), "failed_stage", stage)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	c, ok := s.charts.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errChartNotFound)
		return
	}
	w.Header().Set("Content-Type", chart.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.SVG)
}
