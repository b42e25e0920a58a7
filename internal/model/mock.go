package model

import (
	"context"
	"time"

	"github.com/empathyfine/empathyfine/internal/empathy"
)

// MockEngine fabricates empathetic responses: it detects the dominant
// emotion in the last user message and replies with a canned response for
// it, after a simulated inference delay.
type MockEngine struct {
	latency time.Duration
}

// NewMockEngine creates a MockEngine with the default one second latency.
func NewMockEngine() *MockEngine {
	return &MockEngine{latency: time.Second}
}

// NewMockEngineWithLatency creates a MockEngine with a custom latency,
// used by tests to avoid the simulated delay.
func NewMockEngineWithLatency(latency time.Duration) *MockEngine {
	return &MockEngine{latency: latency}
}

var cannedResponses = map[empathy.Emotion]string{
	empathy.EmotionSad: "I'm really sorry you're feeling this way. It sounds like things have been " +
		"weighing on you, and I want you to know that what you feel matters. I'm here to listen.",
	empathy.EmotionAngry: "I can hear how frustrating this is for you, and your feelings are completely " +
		"valid. It makes sense to be upset about this. Do you want to talk through what happened?",
	empathy.EmotionHappy: "That's wonderful to hear! I can feel the excitement in your words, and I'm " +
		"genuinely happy for you. Tell me more about it!",
	empathy.EmotionNeutral: "I hear you, and I appreciate you sharing that with me. I want to understand " +
		"what this is like for you. Could you tell me a bit more?",
}

// Chat returns the canned response for the emotion detected in the last
// user message. The model name is ignored.
func (e *MockEngine) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	if e.latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(e.latency):
		}
	}

	var lastUser string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = messages[i].Content
			break
		}
	}
	return cannedResponses[empathy.DetectEmotion(lastUser)], nil
}

// ListModels returns the base model catalog.
func (e *MockEngine) ListModels(ctx context.Context) ([]string, error) {
	return BaseModels(), nil
}

// HasModel reports whether name is in the catalog.
func (e *MockEngine) HasModel(ctx context.Context, name string) bool {
	return ValidateBaseModel(name) == nil
}
