// File path: internal/llm/providers/ollama.go
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

const defaultOllamaModel = "llama3.1"

// OllamaProvider drives a local Ollama server through langchaingo.
type OllamaProvider struct {
	model llms.Model
	name  string
}

func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if strings.TrimSpace(serverURL) != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	logger := common.Logger()
	logger.Info("llm: Ollama provider configured", "model", model, "server", serverURL)
	return NewLangChainProvider("ollama", client), nil
}

// NewLangChainProvider adapts any langchaingo model.
func NewLangChainProvider(name string, model llms.Model) *OllamaProvider {
	return &OllamaProvider{model: model, name: name}
}

func (o *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.model == nil {
		return "", fmt.Errorf("nil langchaingo model")
	}
	normalized, err := normalizeMessages(messages)
	if err != nil {
		return "", err
	}
	content := make([]llms.MessageContent, 0, len(normalized))
	for _, msg := range normalized {
		content = append(content, llms.TextParts(langChainRole(msg.Role), msg.Content))
	}
	logger := common.Logger()
	logger.Debug("llm: sending langchaingo request", "provider", o.name, "messages", len(content))
	resp, err := o.model.GenerateContent(ctx, content)
	if err != nil {
		logger.Error("llm: langchaingo request failed", "provider", o.name, "error", err)
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func langChainRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (o *OllamaProvider) Name() string {
	return o.name
}
