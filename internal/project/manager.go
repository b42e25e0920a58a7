package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/empathyfine/empathyfine/internal/storage"
)

const metadataFile = "project.json"

// projectSubdirs is the directory tree created alongside each project store.
var projectSubdirs = []string{"datasets", "models", "checkpoints", "exports", "logs", "evaluations"}

var (
	// ErrNoProject is returned by operations that require an open project.
	ErrNoProject = errors.New("no project open")
	// ErrExists is returned by Create when the project name collides.
	ErrExists = errors.New("project already exists")
	// ErrNotFound is returned when a named project is absent from the workspace.
	ErrNotFound = errors.New("project not found")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager owns the workspace directory and the single "current project"
// reference. Each project gets its own directory with a project.json
// metadata mirror and a SQLite store.
type Manager struct {
	workspaceDir string
	clock        Clock
	logger       *slog.Logger

	mu      sync.Mutex
	current *Config
	store   *storage.Store
}

// NewManager creates a Manager rooted at workspaceDir, creating the
// directory if needed.
func NewManager(workspaceDir string) (*Manager, error) {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}
	return &Manager{
		workspaceDir: workspaceDir,
		clock:        realClock{},
		logger:       slog.Default(),
	}, nil
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(workspaceDir string, clock Clock) (*Manager, error) {
	m, err := NewManager(workspaceDir)
	if err != nil {
		return nil, err
	}
	m.clock = clock
	return m, nil
}

// WorkspaceDir returns the workspace root.
func (m *Manager) WorkspaceDir() string {
	return m.workspaceDir
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("project name is empty")
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid project name %q", name)
	}
	return nil
}

func (m *Manager) projectDir(name string) string {
	return filepath.Join(m.workspaceDir, name)
}

func (m *Manager) dbPath(name string) string {
	return filepath.Join(m.projectDir(name), name+".db")
}

// Create creates a new project: directory tree, SQLite store with schema,
// config row, and the project.json metadata mirror. The created project
// becomes current.
func (m *Manager) Create(cfg Config) error {
	if err := validateName(cfg.Name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.projectDir(cfg.Name)
	if _, err := os.Stat(dir); err == nil {
		m.logger.Error("project name collides", "name", cfg.Name)
		return fmt.Errorf("creating project %q: %w", cfg.Name, ErrExists)
	}

	cfg.ApplyDefaults()
	now := m.clock.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.logger.Error("failed to create project directory", "name", cfg.Name, "error", err)
		return fmt.Errorf("creating project directory: %w", err)
	}
	for _, sub := range projectSubdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			m.logger.Error("failed to create project subdirectory", "name", cfg.Name, "subdir", sub, "error", err)
			return fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	store, err := storage.Open(m.dbPath(cfg.Name))
	if err != nil {
		m.logger.Error("failed to initialize project store", "name", cfg.Name, "error", err)
		return fmt.Errorf("initializing project store: %w", err)
	}

	if err := m.persistLocked(store, &cfg); err != nil {
		store.Close()
		m.logger.Error("failed to persist project", "name", cfg.Name, "error", err)
		return err
	}

	m.closeCurrentLocked()
	m.current = &cfg
	m.store = store
	m.logger.Info("created project", "name", cfg.Name)
	return nil
}

// Load opens an existing project by name, reading its configuration from
// the project.json metadata file. The loaded project becomes current.
func (m *Manager) Load(name string) (Config, error) {
	if err := validateName(name); err != nil {
		return Config{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	metaPath := filepath.Join(m.projectDir(name), metadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Error("project not found", "name", name)
			return Config{}, fmt.Errorf("loading project %q: %w", name, ErrNotFound)
		}
		m.logger.Error("failed to read project metadata", "name", name, "error", err)
		return Config{}, fmt.Errorf("reading project metadata: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.logger.Error("failed to parse project metadata", "name", name, "error", err)
		return Config{}, fmt.Errorf("parsing project metadata: %w", err)
	}
	cfg.ApplyDefaults()

	store, err := storage.Open(m.dbPath(name))
	if err != nil {
		m.logger.Error("failed to open project store", "name", name, "error", err)
		return Config{}, fmt.Errorf("opening project store: %w", err)
	}

	m.closeCurrentLocked()
	m.current = &cfg
	m.store = store
	m.logger.Info("loaded project", "name", name)
	return cfg, nil
}

// Save persists the current project: bumps the updated timestamp, rewrites
// project.json, and upserts the store's config row. Fails with ErrNoProject
// when nothing is open.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.logger.Error("save requested with no project open")
		return ErrNoProject
	}

	m.current.UpdatedAt = m.clock.Now().UTC()
	if err := m.persistLocked(m.store, m.current); err != nil {
		m.logger.Error("failed to save project", "name", m.current.Name, "error", err)
		return err
	}
	m.logger.Info("saved project", "name", m.current.Name)
	return nil
}

// SetConfig replaces the current project's configuration in memory. The
// name and creation timestamp are immutable and preserved.
func (m *Manager) SetConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNoProject
	}
	cfg.Name = m.current.Name
	cfg.CreatedAt = m.current.CreatedAt
	cfg.ApplyDefaults()
	*m.current = cfg
	return nil
}

// Current returns a copy of the open project's configuration.
func (m *Manager) Current() (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Config{}, false
	}
	return *m.current, true
}

// List returns the names of all projects in the workspace that carry a
// valid metadata file, sorted lexicographically.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metaPath := filepath.Join(m.workspaceDir, entry.Name(), metadataFile)
		if _, err := os.Stat(metaPath); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a project's entire directory subtree. Deleting the current
// project closes it first. Returns ErrNotFound if the directory is absent.
func (m *Manager) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.projectDir(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("deleting project %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("checking project directory: %w", err)
	}

	if m.current != nil && m.current.Name == name {
		m.closeCurrentLocked()
	}

	if err := os.RemoveAll(dir); err != nil {
		m.logger.Error("failed to delete project", "name", name, "error", err)
		return fmt.Errorf("deleting project %q: %w", name, err)
	}
	m.logger.Info("deleted project", "name", name)
	return nil
}

// Close closes the current project's store, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrentLocked()
	return nil
}

func (m *Manager) closeCurrentLocked() {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.logger.Warn("closing project store", "error", err)
		}
		m.store = nil
	}
	m.current = nil
}

// persistLocked writes both the metadata mirror and the store config row.
func (m *Manager) persistLocked(store *storage.Store, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling project metadata: %w", err)
	}
	metaPath := filepath.Join(m.projectDir(cfg.Name), metadataFile)
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("writing project metadata: %w", err)
	}
	if err := store.SaveConfig(string(data), cfg.CreatedAt, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("saving config row: %w", err)
	}
	return nil
}

// AppendTrainingMetric records one training metric for the open project.
// A no-op when no project is open.
func (m *Manager) AppendTrainingMetric(metric storage.TrainingMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		m.logger.Debug("training metric dropped: no project open")
		return nil
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = m.clock.Now().UTC()
	}
	if err := m.store.AppendTrainingMetric(metric); err != nil {
		m.logger.Error("failed to append training metric", "error", err)
		return fmt.Errorf("appending training metric: %w", err)
	}
	return nil
}

// AppendEvaluationResult records one evaluation result for the open project.
// A no-op when no project is open.
func (m *Manager) AppendEvaluationResult(result storage.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		m.logger.Debug("evaluation result dropped: no project open")
		return nil
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = m.clock.Now().UTC()
	}
	if err := m.store.AppendEvaluationResult(result); err != nil {
		m.logger.Error("failed to append evaluation result", "error", err)
		return fmt.Errorf("appending evaluation result: %w", err)
	}
	return nil
}

// TrainingHistory returns the open project's training metrics ordered by
// timestamp ascending. Empty when no project is open.
func (m *Manager) TrainingHistory() ([]storage.TrainingMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil, nil
	}
	return m.store.TrainingHistory()
}

// EvaluationHistory returns the open project's evaluation results ordered by
// timestamp descending. Empty when no project is open.
func (m *Manager) EvaluationHistory() ([]storage.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil, nil
	}
	return m.store.EvaluationHistory()
}
