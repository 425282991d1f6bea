// File path: internal/llm/providers/gemini.go
package providers

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider talks to the Gemini API. System messages become the
// request's system instruction; the rest are sent as user/model turns.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger := common.Logger()
	logger.Info("llm: Gemini provider configured", "model", model)
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("nil gemini client")
	}
	normalized, err := normalizeMessages(messages)
	if err != nil {
		return "", err
	}
	contents, config := geminiRequest(normalized)
	if len(contents) == 0 {
		return "", errNoMessages
	}
	logger := common.Logger()
	logger.Debug("llm: sending generate content request", "model", g.model, "contents", len(contents))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		logger.Error("llm: generate content failed", "error", err)
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	logger.Debug("llm: generate content succeeded")
	return text, nil
}

func geminiRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}
