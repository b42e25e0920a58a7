package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/empathyfine/empathyfine/internal/bias"
	"github.com/empathyfine/empathyfine/internal/model"
	"github.com/empathyfine/empathyfine/internal/storage"
)

type captureSink struct {
	results []storage.EvaluationResult
	err     error
}

func (s *captureSink) AppendEvaluationResult(r storage.EvaluationResult) error {
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, r)
	return nil
}

func TestRunRecordsOutcome(t *testing.T) {
	sink := &captureSink{}
	e := New(model.NewMockEngineWithLatency(0), sink)

	outcome, err := e.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Checkpoint != "models/fine_tuned_model.pt" {
		t.Errorf("checkpoint = %q", outcome.Checkpoint)
	}
	if len(outcome.Probes) != 4 {
		t.Fatalf("expected 4 probes, got %d", len(outcome.Probes))
	}
	for _, p := range outcome.Probes {
		if p.Response == "" {
			t.Errorf("probe %q got empty response", p.Prompt)
		}
	}
	if outcome.EmpathyScore != 0.55 {
		t.Errorf("empathy score = %v, want 0.55", outcome.EmpathyScore)
	}
	if outcome.BiasScore != 0.73 {
		t.Errorf("bias score = %v, want 0.73", outcome.BiasScore)
	}
	if outcome.Passed {
		t.Error("outcome should not pass the default threshold")
	}

	if len(sink.results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d", len(sink.results))
	}
	rec := sink.results[0]
	if rec.EmpathyScore != outcome.EmpathyScore || rec.Checkpoint != outcome.Checkpoint {
		t.Errorf("recorded result = %+v", rec)
	}
	if rec.BiasScore == nil || *rec.BiasScore != 0.73 {
		t.Errorf("recorded bias score = %v", rec.BiasScore)
	}
	if rec.DetailedResults["passed"] != false {
		t.Errorf("detailed results = %v", rec.DetailedResults)
	}
}

func TestRunWithRelaxedThresholdPasses(t *testing.T) {
	e := New(model.NewMockEngineWithLatency(0), nil)

	outcome, err := e.Run(context.Background(), Options{
		Threshold:      0.5,
		BiasCategories: []bias.Category{bias.CategoryRace},
		BiasMode:       bias.ModeThorough,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.BiasScore != 0.12 {
		t.Errorf("bias score = %v, want 0.12", outcome.BiasScore)
	}
	if !outcome.Passed {
		t.Errorf("outcome should pass: %+v", outcome)
	}
}

func TestRunSinkFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("store closed")}
	e := New(model.NewMockEngineWithLatency(0), sink)

	if _, err := e.Run(context.Background(), Options{}); err == nil {
		t.Error("expected error from sink failure")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Latency forces the engine to observe cancellation.
	e := New(model.NewMockEngine(), nil)
	if _, err := e.Run(ctx, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
