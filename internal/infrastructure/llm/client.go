package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the service answers without any choice
var ErrEmptyCompletion = errors.New("completion service returned no choices")

type Message struct {
	Role    string
	Content string
}

type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client sends a role-tagged message sequence to a chat-completion service
type Client interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}
