package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/empathyfine/empathyfine/internal/bias"
	"github.com/empathyfine/empathyfine/internal/dataset"
	"github.com/empathyfine/empathyfine/internal/eval"
	"github.com/empathyfine/empathyfine/internal/model"
	"github.com/empathyfine/empathyfine/internal/project"
	"github.com/empathyfine/empathyfine/internal/simulator"
	"github.com/empathyfine/empathyfine/internal/trainer"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps holds the dependencies of the HTTP API.
type AppDeps struct {
	Projects  *project.Manager
	Trainer   *trainer.Supervisor
	Evaluator *eval.Evaluator
	Engine    model.Engine
	Token     string

	// DefaultModel names the engine model chat sessions run against.
	DefaultModel string
	// TrainerStepInterval overrides the training loop cadence; zero keeps
	// the default.
	TrainerStepInterval time.Duration
	// EmpathyThreshold is the passing bar for evaluations; zero keeps the
	// default.
	EmpathyThreshold float64
}

// app carries per-server mutable state alongside the injected deps.
type app struct {
	AppDeps

	mu   sync.Mutex
	chat *simulator.Session
}

// NewAppHandler builds the authenticated HTTP API. /health stays open so
// clients can probe for a running daemon without a token.
func NewAppHandler(deps AppDeps) http.Handler {
	a := &app{AppDeps: deps}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/projects", a.handleCreateProject)
		r.Get("/projects", a.handleListProjects)
		r.Get("/projects/current", a.handleCurrentProject)
		r.Put("/projects/current", a.handleUpdateProject)
		r.Post("/projects/current/save", a.handleSaveProject)
		r.Post("/projects/{name}/load", a.handleLoadProject)
		r.Delete("/projects/{name}", a.handleDeleteProject)

		r.Post("/dataset/load", a.handleDatasetLoad)
		r.Post("/dataset/validate", a.handleDatasetValidate)
		r.Post("/dataset/augment", a.handleDatasetAugment)

		r.Post("/train/start", a.handleTrainStart)
		r.Post("/train/stop", a.handleTrainStop)
		r.Get("/train/status", a.handleTrainStatus)
		r.Get("/train/history", a.handleTrainHistory)

		r.Post("/eval/run", a.handleEvalRun)
		r.Get("/eval/history", a.handleEvalHistory)

		r.Post("/bias/scan", a.handleBiasScan)

		r.Post("/chat", a.handleChat)
		r.Post("/chat/reset", a.handleChatReset)
		r.Get("/chat/history", a.handleChatHistory)
		r.Get("/chat/export", a.handleChatExport)

		r.Get("/models", a.handleModels)
		r.Get("/personas", a.handlePersonas)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BaseModel   string `json:"base_model"`
	Framework   string `json:"framework"`
}

func (a *app) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Name == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}

	cfg := project.NewConfig(req.Name)
	cfg.Description = req.Description
	if req.BaseModel != "" {
		if err := model.ValidateBaseModel(req.BaseModel); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		cfg.BaseModel = req.BaseModel
	}
	if req.Framework != "" {
		if err := model.ValidateFramework(req.Framework); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		cfg.Framework = req.Framework
	}

	if err := a.Projects.Create(cfg); err != nil {
		if errors.Is(err, project.ErrExists) {
			httpError(w, http.StatusConflict, "conflict", "project %q already exists", req.Name)
			return
		}
		httpError(w, http.StatusInternalServerError, "api_error", "failed to create project: %v", err)
		return
	}

	current, _ := a.Projects.Current()
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, current)
}

func (a *app) handleListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := a.Projects.List()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list projects: %v", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, map[string]any{"projects": names})
}

func (a *app) handleCurrentProject(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.Projects.Current()
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "no project is open")
		return
	}
	writeJSON(w, cfg)
}

func (a *app) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var cfg project.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if err := a.Projects.SetConfig(cfg); err != nil {
		if errors.Is(err, project.ErrNoProject) {
			httpError(w, http.StatusConflict, "conflict", "no project is open")
			return
		}
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	if err := a.Projects.Save(); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save project: %v", err)
		return
	}

	current, _ := a.Projects.Current()
	writeJSON(w, current)
}

func (a *app) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	if err := a.Projects.Save(); err != nil {
		if errors.Is(err, project.ErrNoProject) {
			httpError(w, http.StatusConflict, "conflict", "no project is open")
			return
		}
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save project: %v", err)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

func (a *app) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	cfg, err := a.Projects.Load(name)
	if errors.Is(err, project.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "project %q not found", name)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load project: %v", err)
		return
	}
	writeJSON(w, cfg)
}

func (a *app) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	err := a.Projects.Delete(name)
	if errors.Is(err, project.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "project %q not found", name)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to delete project: %v", err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

type datasetRequest struct {
	Path             string   `json:"path"`
	Methods          []string `json:"methods"`
	Factor           int      `json:"factor"`
	PreserveOriginal bool     `json:"preserve_original"`
}

func decodeDatasetRequest(w http.ResponseWriter, r *http.Request) (datasetRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req datasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return req, false
	}
	if req.Path == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
		return req, false
	}
	return req, true
}

func (a *app) handleDatasetLoad(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDatasetRequest(w, r)
	if !ok {
		return
	}

	result, err := dataset.NewWorker(nil).Load(r.Context(), req.Path)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to load dataset: %v", err)
		return
	}

	// Remember the dataset on the open project, if any.
	if cfg, open := a.Projects.Current(); open {
		cfg.DatasetPath = req.Path
		if err := a.Projects.SetConfig(cfg); err == nil {
			if err := a.Projects.Save(); err != nil {
				slog.Warn("failed to persist dataset path", "error", err)
			}
		}
	}

	writeJSON(w, map[string]any{"count": result.Count, "file_path": result.FilePath})
}

func (a *app) handleDatasetValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDatasetRequest(w, r)
	if !ok {
		return
	}

	result, err := dataset.NewWorker(nil).Validate(r.Context(), req.Path)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to validate dataset: %v", err)
		return
	}
	writeJSON(w, result)
}

func (a *app) handleDatasetAugment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDatasetRequest(w, r)
	if !ok {
		return
	}

	methods, err := dataset.ParseMethods(req.Methods)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}

	result, err := dataset.NewWorker(nil).Augment(r.Context(), req.Path, dataset.AugmentOptions{
		Methods:          methods,
		Factor:           req.Factor,
		PreserveOriginal: req.PreserveOriginal,
	})
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to augment dataset: %v", err)
		return
	}
	writeJSON(w, map[string]any{
		"original_count": result.OriginalCount,
		"count":          result.Count,
	})
}

type trainStartRequest struct {
	Epochs int `json:"epochs"`
}

func (a *app) handleTrainStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req trainStartRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
	}

	cfg, open := a.Projects.Current()
	if !open {
		httpError(w, http.StatusConflict, "conflict", "no project is open")
		return
	}

	trainCfg := trainer.Config{
		Epochs:       cfg.Epochs(),
		LearningRate: cfg.LearningRate(),
		StepInterval: a.TrainerStepInterval,
	}
	if req.Epochs > 0 {
		trainCfg.Epochs = req.Epochs
	}

	runID, err := a.Trainer.Start(trainCfg)
	if errors.Is(err, trainer.ErrAlreadyRunning) {
		httpError(w, http.StatusConflict, "conflict", "a training run is already active")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to start training: %v", err)
		return
	}
	writeJSON(w, map[string]string{"run_id": runID, "status": "started"})
}

func (a *app) handleTrainStop(w http.ResponseWriter, r *http.Request) {
	if err := a.Trainer.Stop(); err != nil {
		if errors.Is(err, trainer.ErrNotRunning) {
			httpError(w, http.StatusConflict, "conflict", "no training run is active")
			return
		}
		httpError(w, http.StatusInternalServerError, "api_error", "failed to stop training: %v", err)
		return
	}
	writeJSON(w, map[string]string{"status": "stopping"})
}

func (a *app) handleTrainStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.Trainer.Status())
}

func (a *app) handleTrainHistory(w http.ResponseWriter, r *http.Request) {
	metrics, err := a.Projects.TrainingHistory()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to read training history: %v", err)
		return
	}

	limit := parseIntParam(r, "limit", 0, 0)
	if limit > 0 && len(metrics) > limit {
		metrics = metrics[len(metrics)-limit:]
	}
	writeJSON(w, map[string]any{"metrics": metrics})
}

type evalRunRequest struct {
	Checkpoint string   `json:"checkpoint"`
	Categories []string `json:"categories"`
	Mode       string   `json:"mode"`
	Threshold  float64  `json:"threshold"`
}

func (a *app) handleEvalRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req evalRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
	}

	categories, err := bias.ParseCategories(req.Categories)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	mode, err := bias.ParseMode(req.Mode)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = a.EmpathyThreshold
	}

	outcome, err := a.Evaluator.Run(r.Context(), eval.Options{
		Checkpoint:     req.Checkpoint,
		Model:          a.DefaultModel,
		BiasCategories: categories,
		BiasMode:       mode,
		Threshold:      threshold,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "evaluation failed: %v", err)
		return
	}
	writeJSON(w, outcome)
}

func (a *app) handleEvalHistory(w http.ResponseWriter, r *http.Request) {
	results, err := a.Projects.EvaluationHistory()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to read evaluation history: %v", err)
		return
	}

	limit := parseIntParam(r, "limit", 0, 0)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	writeJSON(w, map[string]any{"results": results})
}

type biasScanRequest struct {
	Categories []string `json:"categories"`
	Mode       string   `json:"mode"`
}

func (a *app) handleBiasScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req biasScanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
	}

	categories, err := bias.ParseCategories(req.Categories)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	mode, err := bias.ParseMode(req.Mode)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}

	writeJSON(w, bias.Scan(categories, mode))
}

type chatRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona"`
}

// session returns the active chat session, creating one with the given
// persona on first use. Changing persona mid-conversation resets it.
func (a *app) session(personaName string) (*simulator.Session, error) {
	persona, err := simulator.PersonaByName(personaName)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chat == nil || (personaName != "" && a.chat.Persona().Name != persona.Name) {
		modelName := a.DefaultModel
		if cfg, open := a.Projects.Current(); open {
			modelName = cfg.BaseModel
		}
		a.chat = simulator.NewSession(a.Engine, modelName, persona)
	}
	return a.chat, nil
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
		return
	}

	sess, err := a.session(req.Persona)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}

	turn, err := sess.Send(r.Context(), req.Message)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "chat failed: %v", err)
		return
	}
	writeJSON(w, turn)
}

func (a *app) handleChatReset(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	if a.chat != nil {
		a.chat.Reset()
	}
	a.mu.Unlock()
	writeJSON(w, map[string]string{"status": "reset"})
}

func (a *app) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	sess := a.chat
	a.mu.Unlock()

	if sess == nil {
		writeJSON(w, map[string]any{"turns": []simulator.Turn{}})
		return
	}
	writeJSON(w, map[string]any{"turns": sess.History()})
}

func (a *app) handleChatExport(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	sess := a.chat
	a.mu.Unlock()

	if sess == nil {
		httpError(w, http.StatusNotFound, "not_found", "no chat session to export")
		return
	}
	data, err := sess.Export()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (a *app) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.Engine.ListModels(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list models: %v", err)
		return
	}
	writeJSON(w, map[string]any{
		"models":     models,
		"frameworks": model.Frameworks(),
	})
}

func (a *app) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"personas": simulator.Personas()})
}
