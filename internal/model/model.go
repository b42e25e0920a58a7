// Package model abstracts the conversational engine behind the chat and
// simulation features. The only backend today is MockEngine; the
// interface keeps consumers from depending on it directly so a real
// inference backend can slot in later.
package model

import "context"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Engine abstracts a conversational inference backend.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ListModels returns the names of the models the backend can serve.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available.
	HasModel(ctx context.Context, name string) bool
}
