// Package trainer implements the training engine. The engine is a
// stand-in: it fabricates a plausible loss curve on a fixed cadence
// instead of running any optimization, and records the curve through the
// project store so the rest of the application behaves as if a real run
// had happened.
package trainer

import (
	"context"
	"math"
	"time"

	"github.com/empathyfine/empathyfine/internal/storage"
)

// MetricsSink receives metrics recorded during a run.
type MetricsSink interface {
	AppendTrainingMetric(metric storage.TrainingMetric) error
}

// Config controls one training run.
type Config struct {
	Epochs        int
	StepsPerEpoch int
	StepInterval  time.Duration
	LearningRate  float64
	Checkpoint    string
}

const (
	defaultEpochs        = 3
	defaultStepsPerEpoch = 100
	defaultStepInterval  = 50 * time.Millisecond
	defaultLearningRate  = 5e-5
	defaultCheckpoint    = "models/fine_tuned_model.pt"

	// metricEvery is the step interval at which metrics are persisted.
	metricEvery = 10
)

func (c Config) withDefaults() Config {
	if c.Epochs <= 0 {
		c.Epochs = defaultEpochs
	}
	if c.StepsPerEpoch <= 0 {
		c.StepsPerEpoch = defaultStepsPerEpoch
	}
	if c.StepInterval <= 0 {
		c.StepInterval = defaultStepInterval
	}
	if c.LearningRate <= 0 {
		c.LearningRate = defaultLearningRate
	}
	if c.Checkpoint == "" {
		c.Checkpoint = defaultCheckpoint
	}
	return c
}

// Progress is a point-in-time snapshot of a running loop.
type Progress struct {
	Epoch    int     `json:"epoch"` // 1-based
	Step     int     `json:"step"`  // 1-based within the epoch
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
	Percent  int     `json:"percent"`
}

// Summary is the outcome of a completed run.
type Summary struct {
	Epochs       int     `json:"epochs"`
	Steps        int     `json:"steps"`
	FinalLoss    float64 `json:"final_loss"`
	FinalAcc     float64 `json:"final_accuracy"`
	EmpathyScore float64 `json:"empathy_score"`
	Checkpoint   string  `json:"checkpoint"`
}

// lossAt fabricates the loss curve: it decays with epochs and drifts
// down within each epoch.
func lossAt(epoch, step int) float64 {
	return round4(2.5 - 0.5*float64(epoch) - 0.001*float64(step))
}

func accuracyAt(epoch, step int) float64 {
	return round4(math.Min(1.0, 0.6+0.1*float64(epoch)+0.001*float64(step)))
}

// empathyAt fabricates the per-epoch empathy score, epoch 1-based.
func empathyAt(epoch int) float64 {
	return round4(math.Min(1.0, 0.5+0.15*float64(epoch)))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Train runs the fabricated loop until it completes or ctx is cancelled.
// Every metricEvery-th step is persisted through sink; onProgress (may be
// nil) fires on every step. A persistence failure aborts the run.
func Train(ctx context.Context, cfg Config, sink MetricsSink, onProgress func(Progress)) (*Summary, error) {
	cfg = cfg.withDefaults()

	total := cfg.Epochs * cfg.StepsPerEpoch
	done := 0
	var last Progress

	ticker := time.NewTicker(cfg.StepInterval)
	defer ticker.Stop()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for step := 1; step <= cfg.StepsPerEpoch; step++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}

			done++
			last = Progress{
				Epoch:    epoch + 1,
				Step:     step,
				Loss:     lossAt(epoch, step),
				Accuracy: accuracyAt(epoch, step),
				Percent:  done * 100 / total,
			}
			if onProgress != nil {
				onProgress(last)
			}

			if sink != nil && step%metricEvery == 0 {
				acc := last.Accuracy
				lr := cfg.LearningRate
				metric := storage.TrainingMetric{
					Epoch:        last.Epoch,
					Step:         step,
					Loss:         last.Loss,
					Accuracy:     &acc,
					LearningRate: &lr,
				}
				if err := sink.AppendTrainingMetric(metric); err != nil {
					return nil, err
				}
			}
		}

		if sink != nil {
			acc := last.Accuracy
			lr := cfg.LearningRate
			metric := storage.TrainingMetric{
				Epoch:    epoch + 1,
				Step:     cfg.StepsPerEpoch,
				Loss:     last.Loss,
				Accuracy: &acc, LearningRate: &lr,
				Metadata: map[string]any{
					"epoch_complete": true,
					"empathy_score":  empathyAt(epoch + 1),
				},
			}
			if err := sink.AppendTrainingMetric(metric); err != nil {
				return nil, err
			}
		}
	}

	return &Summary{
		Epochs:       cfg.Epochs,
		Steps:        total,
		FinalLoss:    last.Loss,
		FinalAcc:     last.Accuracy,
		EmpathyScore: empathyAt(cfg.Epochs),
		Checkpoint:   cfg.Checkpoint,
	}, nil
}
