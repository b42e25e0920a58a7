package dataset

import (
	"context"
	"fmt"
	"log/slog"
)

// Progress receives percentage and status updates while a worker
// operation runs. Callbacks fire on the worker's goroutine.
type Progress func(percent int, status string)

// Worker runs dataset operations with progress reporting and
// cancellation. Operations are synchronous; callers that want them in
// the background run the methods on their own goroutine.
type Worker struct {
	progress Progress
	logger   *slog.Logger
}

// NewWorker creates a Worker. A nil progress callback disables reporting.
func NewWorker(progress Progress) *Worker {
	return &Worker{progress: progress, logger: slog.Default()}
}

func (w *Worker) report(percent int, status string) {
	if w.progress != nil {
		w.progress(percent, status)
	}
}

// Load reads the dataset at path.
func (w *Worker) Load(ctx context.Context, path string) (*LoadResult, error) {
	w.report(0, "Loading dataset...")

	examples, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.report(100, fmt.Sprintf("Loaded %d examples", len(examples)))
	w.logger.Info("dataset loaded", "path", path, "examples", len(examples))
	return &LoadResult{Examples: examples, Count: len(examples), FilePath: path}, nil
}

// Validate loads the dataset at path and validates every example,
// reporting progress per example.
func (w *Worker) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	loaded, err := w.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	w.report(0, "Validating examples...")
	for i := range loaded.Examples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(loaded.Examples) > 0 {
			w.report((i+1)*100/len(loaded.Examples), "Validating examples...")
		}
	}

	result := Validate(loaded.Examples)
	w.logger.Info("dataset validated",
		"path", path,
		"valid", result.Valid,
		"issues", len(result.Issues),
		"avg_empathy_score", result.AvgEmpathyScore)
	return &result, nil
}

// Augment loads the dataset at path and expands it per opts.
func (w *Worker) Augment(ctx context.Context, path string, opts AugmentOptions) (*AugmentResult, error) {
	loaded, err := w.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.report(50, "Augmenting examples...")
	result := Augment(loaded.Examples, opts)
	w.report(100, fmt.Sprintf("Augmented %d -> %d examples", result.OriginalCount, result.Count))
	w.logger.Info("dataset augmented",
		"path", path,
		"original", result.OriginalCount,
		"count", result.Count)
	return &result, nil
}
