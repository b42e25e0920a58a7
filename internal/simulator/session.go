package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/empathyfine/empathyfine/internal/empathy"
	"github.com/empathyfine/empathyfine/internal/model"
)

// Analysis scores one assistant response in the context of the user
// message it answered.
type Analysis struct {
	EmpathyScore float64            `json:"empathy_score"`
	Dimensions   empathy.Dimensions `json:"dimensions"`
	Emotion      empathy.Emotion    `json:"detected_emotion"`
	WordCount    int                `json:"word_count"`
	Suggestions  []string           `json:"suggestions,omitempty"`
}

// Analyze scores a response against the user message that prompted it.
func Analyze(userMessage, response string) Analysis {
	score := empathy.Score(response)
	a := Analysis{
		EmpathyScore: score,
		Dimensions:   empathy.DimensionsFor(score),
		Emotion:      empathy.DetectEmotion(userMessage),
		WordCount:    len(strings.Fields(response)),
	}

	if score < 0.4 {
		a.Suggestions = append(a.Suggestions, "Add validating language (e.g. \"I understand\", \"I hear you\")")
	}
	if a.WordCount < 10 {
		a.Suggestions = append(a.Suggestions, "Response is short; expand on the user's feelings")
	}
	if a.Emotion != empathy.EmotionNeutral && !strings.Contains(strings.ToLower(response), string(a.Emotion)) {
		a.Suggestions = append(a.Suggestions, fmt.Sprintf("Consider naming the user's emotion (%s) explicitly", a.Emotion))
	}
	return a
}

// Turn is one message in a test conversation. Assistant turns carry the
// analysis of their content.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Analysis  *Analysis `json:"analysis,omitempty"`
}

// Session is one test conversation against an engine. Methods are safe
// for concurrent use.
type Session struct {
	engine    model.Engine
	modelName string
	persona   Persona

	mu    sync.Mutex
	turns []Turn
}

// NewSession starts a conversation with the given persona against engine.
func NewSession(engine model.Engine, modelName string, persona Persona) *Session {
	return &Session{engine: engine, modelName: modelName, persona: persona}
}

// Send submits a user message, waits for the engine's reply, and returns
// the analyzed assistant turn. Both turns are appended to the history.
func (s *Session) Send(ctx context.Context, message string) (Turn, error) {
	s.mu.Lock()
	messages := make([]model.Message, 0, len(s.turns)+2)
	messages = append(messages, model.Message{Role: "system", Content: s.persona.SystemPrompt})
	for _, t := range s.turns {
		messages = append(messages, model.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, model.Message{Role: "user", Content: message})
	s.mu.Unlock()

	reply, err := s.engine.Chat(ctx, s.modelName, messages)
	if err != nil {
		return Turn{}, fmt.Errorf("generating response: %w", err)
	}

	analysis := Analyze(message, reply)
	now := time.Now().UTC()
	assistant := Turn{Role: "assistant", Content: reply, Timestamp: now, Analysis: &analysis}

	s.mu.Lock()
	s.turns = append(s.turns,
		Turn{Role: "user", Content: message, Timestamp: now},
		assistant)
	s.mu.Unlock()

	return assistant, nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Reset clears the conversation, keeping persona and model.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Persona returns the persona the session runs under.
func (s *Session) Persona() Persona {
	return s.persona
}

type export struct {
	Persona    string    `json:"persona"`
	Model      string    `json:"model"`
	ExportedAt time.Time `json:"exported_at"`
	Turns      []Turn    `json:"turns"`
}

// Export serializes the conversation for saving alongside the project.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	turns := append([]Turn(nil), s.turns...)
	s.mu.Unlock()

	return json.MarshalIndent(export{
		Persona:    s.persona.Name,
		Model:      s.modelName,
		ExportedAt: time.Now().UTC(),
		Turns:      turns,
	}, "", "  ")
}
