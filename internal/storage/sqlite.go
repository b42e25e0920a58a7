package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps one project's SQLite database. Each project owns exactly one
// store file; there is no sharing across projects.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath and runs pending
// migrations. Pass ":memory:" for an in-memory database (used by tests).
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Project configuration ---

// SaveConfig upserts the single project configuration row. configJSON is the
// serialized project configuration; the caller owns the format.
func (s *Store) SaveConfig(configJSON string, createdAt, updatedAt time.Time) error {
	var id int64
	err := s.db.QueryRow("SELECT id FROM project_config LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(`
			INSERT INTO project_config (config, created_at, updated_at)
			VALUES (?, ?, ?)`,
			configJSON, createdAt.UTC().Format(time.RFC3339), updatedAt.UTC().Format(time.RFC3339),
		)
		return err
	}
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		UPDATE project_config SET config = ?, updated_at = ? WHERE id = ?`,
		configJSON, updatedAt.UTC().Format(time.RFC3339), id,
	)
	return err
}

// LoadConfig returns the serialized project configuration, or ErrNotFound if
// no configuration row has been written yet.
func (s *Store) LoadConfig() (string, error) {
	var configJSON string
	err := s.db.QueryRow("SELECT config FROM project_config LIMIT 1").Scan(&configJSON)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return configJSON, err
}

// --- Training history ---

// AppendTrainingMetric inserts one training history row. Rows are write-once;
// there is no update or per-row delete.
func (s *Store) AppendTrainingMetric(m TrainingMetric) error {
	metadataJSON, err := marshalOptionalMap(m.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metric metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO training_history (timestamp, epoch, step, loss, accuracy, learning_rate, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Timestamp.UTC().Format(time.RFC3339Nano), m.Epoch, m.Step, m.Loss,
		nullableFloat(m.Accuracy), nullableFloat(m.LearningRate), metadataJSON,
	)
	return err
}

// TrainingHistory returns all training metrics ordered by timestamp ascending.
func (s *Store) TrainingHistory() ([]TrainingMetric, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, epoch, step, loss, accuracy, learning_rate, metadata
		FROM training_history ORDER BY timestamp ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TrainingMetric
	for rows.Next() {
		var m TrainingMetric
		var ts string
		var accuracy, learningRate sql.NullFloat64
		var metadata sql.NullString
		if err := rows.Scan(&m.ID, &ts, &m.Epoch, &m.Step, &m.Loss, &accuracy, &learningRate, &metadata); err != nil {
			return nil, err
		}
		if m.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		m.Accuracy = floatPtr(accuracy)
		m.LearningRate = floatPtr(learningRate)
		if m.Metadata, err = unmarshalOptionalMap(metadata); err != nil {
			return nil, fmt.Errorf("parsing metric metadata: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// --- Evaluation results ---

// AppendEvaluationResult inserts one evaluation result row. Same write-once
// lifecycle as training metrics.
func (s *Store) AppendEvaluationResult(r EvaluationResult) error {
	detailsJSON, err := marshalOptionalMap(r.DetailedResults)
	if err != nil {
		return fmt.Errorf("marshalling detailed results: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO evaluation_results (timestamp, model_checkpoint, empathy_score, bias_score, coherence_score, fluency_score, detailed_results)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339Nano), r.Checkpoint, r.EmpathyScore,
		nullableFloat(r.BiasScore), nullableFloat(r.CoherenceScore), nullableFloat(r.FluencyScore),
		detailsJSON,
	)
	return err
}

// EvaluationHistory returns all evaluation results ordered by timestamp
// descending (newest first).
func (s *Store) EvaluationHistory() ([]EvaluationResult, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, model_checkpoint, empathy_score, bias_score, coherence_score, fluency_score, detailed_results
		FROM evaluation_results ORDER BY timestamp DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []EvaluationResult
	for rows.Next() {
		var r EvaluationResult
		var ts string
		var bias, coherence, fluency sql.NullFloat64
		var details sql.NullString
		if err := rows.Scan(&r.ID, &ts, &r.Checkpoint, &r.EmpathyScore, &bias, &coherence, &fluency, &details); err != nil {
			return nil, err
		}
		if r.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		r.BiasScore = floatPtr(bias)
		r.CoherenceScore = floatPtr(coherence)
		r.FluencyScore = floatPtr(fluency)
		if r.DetailedResults, err = unmarshalOptionalMap(details); err != nil {
			return nil, fmt.Errorf("parsing detailed results: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- helpers ---

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func marshalOptionalMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalOptionalMap(v sql.NullString) (map[string]any, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
