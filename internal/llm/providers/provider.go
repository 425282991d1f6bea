// File path: internal/llm/providers/provider.go
package providers

import (
	"context"
	"errors"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

var errNoMessages = errors.New("no messages provided")

// normalizeMessages lowercases roles and maps unknown roles onto user.
func normalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errNoMessages
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case RoleSystem, RoleAssistant:
		case "model", "ai":
			role = RoleAssistant
		default:
			role = RoleUser
		}
		out[i] = Message{Role: role, Content: msg.Content}
	}
	return out, nil
}
