package simulator

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/empathyfine/empathyfine/internal/empathy"
	"github.com/empathyfine/empathyfine/internal/model"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(model.NewMockEngineWithLatency(0), model.DefaultBaseModel, DefaultPersona())
}

func TestSendAppendsAnalyzedTurns(t *testing.T) {
	s := newTestSession(t)

	turn, err := s.Send(context.Background(), "I've been feeling sad all week")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if turn.Role != "assistant" || turn.Content == "" {
		t.Fatalf("turn = %+v", turn)
	}
	if turn.Analysis == nil {
		t.Fatal("assistant turn should carry analysis")
	}
	if turn.Analysis.Emotion != empathy.EmotionSad {
		t.Errorf("detected emotion = %v, want sad", turn.Analysis.Emotion)
	}
	if turn.Analysis.EmpathyScore <= 0 {
		t.Errorf("empathy score = %v, want > 0", turn.Analysis.EmpathyScore)
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[0].Analysis != nil {
		t.Errorf("user turn = %+v", history[0])
	}
}

func TestAnalyzeSuggestions(t *testing.T) {
	a := Analyze("I'm so sad today", "OK.")
	if a.EmpathyScore != 0 {
		t.Errorf("score = %v, want 0", a.EmpathyScore)
	}
	if len(a.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %v", a.Suggestions)
	}

	a = Analyze("What's the capital of France?",
		"I understand the question and I hear that you want a plain answer; I appreciate you asking and support your curiosity.")
	if len(a.Suggestions) != 0 {
		t.Errorf("expected no suggestions, got %v", a.Suggestions)
	}
}

func TestResetClearsHistory(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	s.Reset()
	if len(s.History()) != 0 {
		t.Error("history should be empty after reset")
	}
}

func TestExport(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Send(context.Background(), "I'm happy today!"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var out struct {
		Persona string `json:"persona"`
		Model   string `json:"model"`
		Turns   []Turn `json:"turns"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshalling export: %v", err)
	}
	if out.Persona != "empathetic_companion" || out.Model != model.DefaultBaseModel {
		t.Errorf("export header = %+v", out)
	}
	if len(out.Turns) != 2 {
		t.Errorf("exported %d turns, want 2", len(out.Turns))
	}
}

func TestPersonaByName(t *testing.T) {
	p, err := PersonaByName("Professional_Counselor")
	if err != nil {
		t.Fatalf("PersonaByName: %v", err)
	}
	if !strings.Contains(p.SystemPrompt, "counselor") {
		t.Errorf("system prompt = %q", p.SystemPrompt)
	}

	if p, err := PersonaByName(""); err != nil || p.Name != "empathetic_companion" {
		t.Errorf("empty name should yield default, got %+v, %v", p, err)
	}
	if _, err := PersonaByName("villain"); err == nil {
		t.Error("expected error for unknown persona")
	}
}
