package trainer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/empathyfine/empathyfine/internal/storage"
)

type recordingSink struct {
	mu      sync.Mutex
	metrics []storage.TrainingMetric
	err     error
}

func (s *recordingSink) AppendTrainingMetric(m storage.TrainingMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.metrics = append(s.metrics, m)
	return nil
}

func (s *recordingSink) recorded() []storage.TrainingMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.TrainingMetric(nil), s.metrics...)
}

func fastConfig(epochs, steps int) Config {
	return Config{
		Epochs:        epochs,
		StepsPerEpoch: steps,
		StepInterval:  time.Microsecond,
	}
}

func TestTrainProducesDecreasingLoss(t *testing.T) {
	sink := &recordingSink{}
	summary, err := Train(context.Background(), fastConfig(2, 20), sink, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if summary.Epochs != 2 || summary.Steps != 40 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Checkpoint != "models/fine_tuned_model.pt" {
		t.Errorf("checkpoint = %q", summary.Checkpoint)
	}
	if summary.EmpathyScore != 0.8 {
		t.Errorf("empathy score = %v, want 0.8", summary.EmpathyScore)
	}

	metrics := sink.recorded()
	if len(metrics) == 0 {
		t.Fatal("expected recorded metrics")
	}
	prev := metrics[0].Loss
	for _, m := range metrics[1:] {
		if m.Loss > prev {
			t.Fatalf("loss increased: %v -> %v", prev, m.Loss)
		}
		prev = m.Loss
	}
}

func TestTrainRecordsEpochCompletion(t *testing.T) {
	sink := &recordingSink{}
	if _, err := Train(context.Background(), fastConfig(1, 10), sink, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	metrics := sink.recorded()
	last := metrics[len(metrics)-1]
	if last.Metadata == nil || last.Metadata["epoch_complete"] != true {
		t.Fatalf("last metric should mark epoch completion: %+v", last)
	}
	if last.Metadata["empathy_score"] != 0.65 {
		t.Errorf("epoch 1 empathy score = %v, want 0.65", last.Metadata["empathy_score"])
	}
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Train(ctx, fastConfig(1, 10), nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTrainAbortsOnSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("store closed")}
	if _, err := Train(context.Background(), fastConfig(1, 10), sink, nil); err == nil {
		t.Error("expected error from sink failure")
	}
}

func waitForState(t *testing.T, s *Supervisor, want State) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.Status(); st.State == want {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("supervisor never reached state %q (now %q)", want, s.Status().State)
	return Status{}
}

func TestSupervisorLifecycle(t *testing.T) {
	s := NewSupervisor(&recordingSink{})

	runID, err := s.Start(fastConfig(1, 5))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if runID == "" {
		t.Fatal("expected run ID")
	}

	st := waitForState(t, s, StateCompleted)
	if st.Percent != 100 || st.Checkpoint == "" {
		t.Errorf("completed status = %+v", st)
	}

	// Finished supervisor accepts a new run.
	if _, err := s.Start(fastConfig(1, 5)); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestSupervisorRejectsConcurrentRuns(t *testing.T) {
	s := NewSupervisor(&recordingSink{})

	cfg := fastConfig(10, 100)
	cfg.StepInterval = 10 * time.Millisecond
	if _, err := s.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if _, err := s.Start(cfg); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSupervisorStop(t *testing.T) {
	s := NewSupervisor(&recordingSink{})

	cfg := fastConfig(10, 100)
	cfg.StepInterval = 10 * time.Millisecond
	if _, err := s.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	waitForState(t, s, StateStopped)

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}
