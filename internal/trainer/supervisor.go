package trainer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("a training run is already active")
	ErrNotRunning     = errors.New("no training run is active")
)

// State is the lifecycle state of the supervised run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is a snapshot of the supervised run.
type Status struct {
	RunID       string    `json:"run_id,omitempty"`
	State       State     `json:"state"`
	Epoch       int       `json:"epoch,omitempty"`
	TotalEpochs int       `json:"total_epochs,omitempty"`
	Step        int       `json:"step,omitempty"`
	Loss        float64   `json:"loss,omitempty"`
	Accuracy    float64   `json:"accuracy,omitempty"`
	Percent     int       `json:"percent"`
	Checkpoint  string    `json:"checkpoint,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Supervisor owns at most one training run at a time. Start launches the
// loop on a background goroutine; Status returns snapshots safe to hand
// out concurrently.
type Supervisor struct {
	sink   MetricsSink
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	status Status
}

// NewSupervisor creates a Supervisor recording through sink.
func NewSupervisor(sink MetricsSink) *Supervisor {
	return &Supervisor{
		sink:   sink,
		logger: slog.Default(),
		status: Status{State: StateIdle},
	}
}

// Start launches a run with cfg. It fails with ErrAlreadyRunning if a run
// is active.
func (s *Supervisor) Start(cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State == StateRunning {
		return "", ErrAlreadyRunning
	}

	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.status = Status{
		RunID:       runID,
		State:       StateRunning,
		TotalEpochs: cfg.Epochs,
		StartedAt:   time.Now().UTC(),
	}

	s.logger.Info("training started", "run_id", runID, "epochs", cfg.Epochs, "steps_per_epoch", cfg.StepsPerEpoch)
	go s.run(ctx, runID, cfg)
	return runID, nil
}

func (s *Supervisor) run(ctx context.Context, runID string, cfg Config) {
	summary, err := Train(ctx, cfg, s.sink, func(p Progress) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.status.RunID != runID {
			return
		}
		s.status.Epoch = p.Epoch
		s.status.Step = p.Step
		s.status.Loss = p.Loss
		s.status.Accuracy = p.Accuracy
		s.status.Percent = p.Percent
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.RunID != runID {
		return
	}
	s.status.FinishedAt = time.Now().UTC()
	s.cancel = nil

	switch {
	case errors.Is(err, context.Canceled):
		s.status.State = StateStopped
		s.logger.Info("training stopped", "run_id", runID, "epoch", s.status.Epoch, "step", s.status.Step)
	case err != nil:
		s.status.State = StateFailed
		s.status.Error = err.Error()
		s.logger.Error("training failed", "run_id", runID, "error", err)
	default:
		s.status.State = StateCompleted
		s.status.Percent = 100
		s.status.Loss = summary.FinalLoss
		s.status.Accuracy = summary.FinalAcc
		s.status.Checkpoint = summary.Checkpoint
		s.logger.Info("training completed",
			"run_id", runID,
			"final_loss", summary.FinalLoss,
			"empathy_score", summary.EmpathyScore,
			"checkpoint", summary.Checkpoint)
	}
}

// Stop cancels the active run. It fails with ErrNotRunning when idle.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateRunning || s.cancel == nil {
		return ErrNotRunning
	}
	s.cancel()
	return nil
}

// Status returns a snapshot of the current or most recent run.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
