// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"
)

// ErrMissingCredential is returned when the selected provider needs an API
// key that is not configured. Callers treat it as fatal.
var ErrMissingCredential = errors.New("llm credential not configured")

// ProviderName resolves the provider to use: the explicit name when set,
// else ECOMQA_LLM_PROVIDER, else gemini.
func ProviderName(explicit string) string {
	name := strings.ToLower(strings.TrimSpace(explicit))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(os.Getenv("ECOMQA_LLM_PROVIDER")))
	}
	if name == "" {
		name = ProviderGemini
	}
	return name
}

// NewProvider builds the named provider from the environment.
func NewProvider(ctx context.Context, name string) (Provider, error) {
	logger := common.Logger()
	name = ProviderName(name)
	switch name {
	case ProviderGemini:
		apiKey := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("%w: set GOOGLE_API_KEY for the gemini provider", ErrMissingCredential)
		}
		logger.Info("llm: Gemini provider selected")
		return providers.NewGeminiProvider(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
	case ProviderOpenAI:
		apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY for the openai provider", ErrMissingCredential)
		}
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
			timeout, err := time.ParseDuration(timeoutStr)
			if err != nil {
				logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
			} else {
				logger.Info("llm: configuring OpenAI client with custom HTTP timeout", "timeout", timeout)
				opts = append(opts, option.WithRequestTimeout(timeout))
			}
		}
		if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
			logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
			opts = append(opts, option.WithBaseURL(endpoint))
		} else {
			logger.Debug("llm: using default OpenAI endpoint")
		}
		client := openai.NewClient(opts...)
		logger.Info("llm: OpenAI provider selected")
		return providers.NewOpenAIProvider(client, os.Getenv("OPENAI_CHAT_MODEL")), nil
	case ProviderOllama:
		logger.Info("llm: Ollama provider selected")
		return providers.NewOllamaProvider(os.Getenv("OLLAMA_HOST"), os.Getenv("OLLAMA_MODEL"))
	case ProviderLocal:
		logger.Warn("llm: local stub provider selected; answers will not be meaningful")
		return providers.NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
