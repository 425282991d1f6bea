// File path: cmd/ecomqa/ollama.go
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/process"
)

const defaultOllamaURL = "http://127.0.0.1:11434"

// ensureOllama starts `ollama serve` unless a server already answers at
// OLLAMA_HOST. It returns nil when nothing was launched.
func ensureOllama(ctx context.Context) (*process.Service, error) {
	logger := common.Logger()
	baseURL, hostPort := ollamaAddress(os.Getenv("OLLAMA_HOST"))
	readyURL := baseURL + "/api/version"
	if err := process.Probe(ctx, readyURL); err == nil {
		logger.Info("ecomqa: ollama already running", "url", baseURL)
		return nil, nil
	}
	bin, err := process.BinaryPath("ollama")
	if err != nil {
		return nil, err
	}
	return process.Start(ctx, process.Spec{
		Name:         "ollama",
		Command:      bin,
		Args:         []string{"serve"},
		Env:          []string{"OLLAMA_HOST=" + hostPort},
		ReadyURL:     readyURL,
		ReadyTimeout: time.Minute,
		StopTimeout:  5 * time.Second,
	})
}

// ollamaAddress returns the base URL and host:port for an OLLAMA_HOST value,
// which may omit the scheme.
func ollamaAddress(raw string) (string, string) {
	value := strings.TrimRight(strings.TrimSpace(raw), "/")
	if value == "" {
		value = defaultOllamaURL
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	hostPort := value[strings.Index(value, "://")+3:]
	return value, hostPort
}
