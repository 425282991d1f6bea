// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nicodishanthj/ecomqa/internal/chart"
	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/data/orchestrator"
)

type Server struct {
	router       chi.Router
	orchestrator *orchestrator.Orchestrator
	charts       *lru.Cache[string, *chart.Chart]
}

// Config controls the HTTP layer.
type Config struct {
	ChartCacheSize int
}

// DefaultConfig returns the standard configuration used when no overrides are
// provided.
func DefaultConfig() Config {
	return Config{ChartCacheSize: 128}
}

// Merge overlays non-zero values from the override onto the base
// configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.ChartCacheSize > 0 {
		result.ChartCacheSize = override.ChartCacheSize
	}
	return result
}

func NewServer(orch *orchestrator.Orchestrator, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	charts, err := lru.New[string, *chart.Chart](configuration.ChartCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init chart cache: %w", err)
	}
	providerName := "unknown"
	if provider := orch.Provider(); provider != nil {
		providerName = provider.Name()
	}
	life := orch.Lifecycle()
	logger.Info(
		"api: building server",
		"provider", providerName,
		"store_loaded", life.StoreLoaded,
		"chart_cache", configuration.ChartCacheSize,
	)
	srv := &Server{
		router:       chi.NewRouter(),
		orchestrator: orch,
		charts:       charts,
	}
	srv.routes()
	logger.Info("api: server ready", "routes", true)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("api: request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr, "request_id", middleware.GetReqID(r.Context()))
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/", s.handleIndex)
	s.router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	s.router.Post("/v1/ask", s.handleAsk)
	s.router.Get("/v1/schema", s.handleSchema)
	s.router.Post("/v1/reload", s.handleReload)
	s.router.Get("/v1/lifecycle", s.handleLifecycle)
	s.router.Get("/v1/charts/{id}", s.handleChart)
	s.router.Get("/v1/history", s.handleHistory)
	s.router.Delete("/v1/history", s.handleClearHistory)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("api: request failed", "status", status, "error", err)
	} else {
		logger.Warn("api: request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
