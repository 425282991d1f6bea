// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"strings"
)

// LocalProvider answers without any network access. It echoes the last
// message, which is enough to exercise the pipeline offline.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	normalized, err := normalizeMessages(messages)
	if err != nil {
		return "", err
	}
	last := normalized[len(normalized)-1].Content
	return "[local-stub] " + strings.TrimSpace(last), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}
