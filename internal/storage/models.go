package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TrainingMetric is one append-only entry in a project's training history.
type TrainingMetric struct {
	ID           int64
	Timestamp    time.Time
	Epoch        int
	Step         int
	Loss         float64
	Accuracy     *float64
	LearningRate *float64
	Metadata     map[string]any
}

// EvaluationResult is one append-only entry in a project's evaluation history.
type EvaluationResult struct {
	ID              int64
	Timestamp       time.Time
	Checkpoint      string
	EmpathyScore    float64
	BiasScore       *float64
	CoherenceScore  *float64
	FluencyScore    *float64
	DetailedResults map[string]any
}
