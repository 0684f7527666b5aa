//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_ai.go -package=mocks

package ai

import (
	"context"
	"errors"
)

var ErrEmptyReply = errors.New("model returned no choices")

// AI produces a completion for a prompt. It knows nothing about rooms or
// memories.
type AI interface {
	GetReply(ctx context.Context, history []Message) (string, error)
}

// Message is one turn of a conversation handed to the model.
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}
