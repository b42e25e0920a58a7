package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "proj.db")

	s1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestSchemaTablesExist verifies all four project tables are created,
// including the declared-but-unused dataset_examples cache.
func TestSchemaTablesExist(t *testing.T) {
	s := openTestStore(t)

	tables := []string{"project_config", "training_history", "evaluation_results", "dataset_examples"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %q not found in sqlite_master", table)
		}
	}
}

func TestSaveConfigUpserts(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	if err := s.SaveConfig(`{"name":"p1"}`, now, now); err != nil {
		t.Fatalf("SaveConfig (insert): %v", err)
	}
	if err := s.SaveConfig(`{"name":"p1","description":"updated"}`, now, now.Add(time.Second)); err != nil {
		t.Fatalf("SaveConfig (update): %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM project_config").Scan(&count); err != nil {
		t.Fatalf("counting config rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected single config row after upsert, got %d", count)
	}

	got, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != `{"name":"p1","description":"updated"}` {
		t.Errorf("LoadConfig returned stale config: %s", got)
	}
}

func TestLoadConfigEmpty(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.LoadConfig(); err != ErrNotFound {
		t.Errorf("LoadConfig on empty store: got %v, want ErrNotFound", err)
	}
}

func TestTrainingHistoryOrderedAscending(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of chronological order.
	for _, offset := range []int{2, 0, 1} {
		m := TrainingMetric{
			Timestamp: base.Add(time.Duration(offset) * time.Second),
			Epoch:     1,
			Step:      offset,
			Loss:      2.5 - float64(offset)*0.001,
		}
		if err := s.AppendTrainingMetric(m); err != nil {
			t.Fatalf("AppendTrainingMetric: %v", err)
		}
	}

	history, err := s.TrainingHistory()
	if err != nil {
		t.Fatalf("TrainingHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Errorf("training history not ascending at index %d", i)
		}
	}
}

func TestTrainingMetricRoundTrip(t *testing.T) {
	s := openTestStore(t)

	acc := 0.72
	lr := 5e-5
	m := TrainingMetric{
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Epoch:        2,
		Step:         41,
		Loss:         1.4589,
		Accuracy:     &acc,
		LearningRate: &lr,
		Metadata:     map[string]any{"run_id": "abc"},
	}
	if err := s.AppendTrainingMetric(m); err != nil {
		t.Fatalf("AppendTrainingMetric: %v", err)
	}

	history, err := s.TrainingHistory()
	if err != nil {
		t.Fatalf("TrainingHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(history))
	}

	got := history[0]
	if got.Epoch != 2 || got.Step != 41 || got.Loss != 1.4589 {
		t.Errorf("metric fields mismatch: %+v", got)
	}
	if got.Accuracy == nil || *got.Accuracy != acc {
		t.Errorf("accuracy mismatch: %v", got.Accuracy)
	}
	if got.LearningRate == nil || *got.LearningRate != lr {
		t.Errorf("learning rate mismatch: %v", got.LearningRate)
	}
	if got.Metadata["run_id"] != "abc" {
		t.Errorf("metadata mismatch: %v", got.Metadata)
	}
	if !got.Timestamp.Equal(m.Timestamp) {
		t.Errorf("timestamp mismatch: %v != %v", got.Timestamp, m.Timestamp)
	}
}

func TestTrainingMetricOptionalFieldsNull(t *testing.T) {
	s := openTestStore(t)

	m := TrainingMetric{Timestamp: time.Now().UTC(), Epoch: 1, Step: 0, Loss: 2.5}
	if err := s.AppendTrainingMetric(m); err != nil {
		t.Fatalf("AppendTrainingMetric: %v", err)
	}

	history, err := s.TrainingHistory()
	if err != nil {
		t.Fatalf("TrainingHistory: %v", err)
	}
	got := history[0]
	if got.Accuracy != nil || got.LearningRate != nil || got.Metadata != nil {
		t.Errorf("optional fields should be nil: %+v", got)
	}
}

func TestEvaluationHistoryOrderedDescending(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := EvaluationResult{
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Checkpoint:   fmt.Sprintf("checkpoint-%d", i),
			EmpathyScore: 0.5 + float64(i)*0.1,
		}
		if err := s.AppendEvaluationResult(r); err != nil {
			t.Fatalf("AppendEvaluationResult: %v", err)
		}
	}

	history, err := s.EvaluationHistory()
	if err != nil {
		t.Fatalf("EvaluationHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 results, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.After(history[i-1].Timestamp) {
			t.Errorf("evaluation history not descending at index %d", i)
		}
	}
	if history[0].Checkpoint != "checkpoint-2" {
		t.Errorf("newest result first: got %s", history[0].Checkpoint)
	}
}

func TestEvaluationResultRoundTrip(t *testing.T) {
	s := openTestStore(t)

	bias := 0.31
	r := EvaluationResult{
		Timestamp:       time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Checkpoint:      "models/fine_tuned_model.pt",
		EmpathyScore:    0.8,
		BiasScore:       &bias,
		DetailedResults: map[string]any{"examples_scored": float64(12)},
	}
	if err := s.AppendEvaluationResult(r); err != nil {
		t.Fatalf("AppendEvaluationResult: %v", err)
	}

	history, err := s.EvaluationHistory()
	if err != nil {
		t.Fatalf("EvaluationHistory: %v", err)
	}
	got := history[0]
	if got.Checkpoint != r.Checkpoint || got.EmpathyScore != 0.8 {
		t.Errorf("result fields mismatch: %+v", got)
	}
	if got.BiasScore == nil || *got.BiasScore != bias {
		t.Errorf("bias score mismatch: %v", got.BiasScore)
	}
	if got.CoherenceScore != nil || got.FluencyScore != nil {
		t.Errorf("unset optional scores should be nil: %+v", got)
	}
	if got.DetailedResults["examples_scored"] != float64(12) {
		t.Errorf("detailed results mismatch: %v", got.DetailedResults)
	}
}
