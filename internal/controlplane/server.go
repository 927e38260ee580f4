package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/millworks/millrun/internal/evaluator"
	"github.com/millworks/millrun/internal/models"
)

// Server provides the HTTP API for Millrun.
type Server struct {
	service *Service
	addr    string
	logger  *zap.SugaredLogger
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string, logger *zap.SugaredLogger) *Server {
	return &Server{
		service: service,
		addr:    addr,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Subtask endpoints
	mux.HandleFunc("/subtasks", s.handleSubtasks)
	mux.HandleFunc("/subtasks/execute", s.executeSubtask)
	mux.HandleFunc("/subtasks/", s.handleSubtaskByID)

	// Evaluation endpoints
	mux.HandleFunc("/evaluations", s.handleEvaluations)
	mux.HandleFunc("/evaluations/queue", s.queueEvaluation)
	mux.HandleFunc("/evaluations/archive", s.getArchivedEvaluations)
	mux.HandleFunc("/evaluations/stats", s.getEvaluationStats)

	// Task registry endpoints
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByID)

	// Memory endpoints
	mux.HandleFunc("/memory", s.handleMemory)

	// Combined pipeline stats
	mux.HandleFunc("/stats", s.getStats)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Infow("starting millrun daemon", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// --- Subtask Handlers ---

// handleSubtasks handles POST /subtasks (queue a subtask).
func (s *Server) handleSubtasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var subtask models.Subtask
	if err := json.NewDecoder(r.Body).Decode(&subtask); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ack, err := s.service.QueueSubtask(&subtask)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, ack)
}

// executeSubtask handles POST /subtasks/execute: the direct escape hatch
// that bypasses the concurrency cap and returns the terminal result.
func (s *Server) executeSubtask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var subtask models.Subtask
	if err := json.NewDecoder(r.Body).Decode(&subtask); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := s.service.ExecuteSubtask(r.Context(), &subtask)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSubtaskByID handles /subtasks/{id}/status.
func (s *Server) handleSubtaskByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/subtasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "subtask id required", http.StatusBadRequest)
		return
	}

	subtaskID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "status" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.GetExecutionStatus(subtaskID))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Evaluation Handlers ---

type evaluateRequest struct {
	TaskID    string            `json:"task_id"`
	Artifacts []models.Artifact `json:"artifacts"`
	Priority  int               `json:"priority"`
}

// handleEvaluations handles POST /evaluations (synchronous evaluation) and
// GET /evaluations (in-memory history).
func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.evaluateTask(w, r)
	case http.MethodGet:
		s.getEvaluationHistory(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) evaluateTask(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	eval, err := s.service.EvaluateTask(r.Context(), req.TaskID, req.Artifacts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, evaluator.ErrEvaluationInProgress) {
			status = http.StatusConflict
		} else if errors.Is(err, ErrEmptyTaskID) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) queueEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.service.QueueEvaluation(req.TaskID, req.Artifacts, req.Priority); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"queued"}`))
}

func (s *Server) getEvaluationHistory(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	limit := queryInt(r, "limit")

	evals := s.service.GetEvaluationHistory(taskID, limit)
	if evals == nil {
		evals = []models.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func (s *Server) getArchivedEvaluations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := r.URL.Query().Get("task_id")
	limit := queryInt(r, "limit")

	evals, err := s.service.GetArchivedEvaluations(taskID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if evals == nil {
		evals = []models.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func (s *Server) getEvaluationStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.GetEvaluationStats())
}

// --- Task Handlers ---

// handleTasks handles POST /tasks (register a planner-supplied task).
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.service.RegisterTask(&task); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidTask) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// handleTaskByID handles GET /tasks/{id}.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if taskID == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	task, err := s.service.GetTask(taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// --- Memory Handlers ---

type addMemoryRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// handleMemory handles POST /memory and GET /memory.
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req addMemoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		item, err := s.service.AddMemory(req.Content, req.Category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case http.MethodGet:
		items, err := s.service.QueryMemory(r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []models.MemoryItem{}
		}
		writeJSON(w, http.StatusOK, items)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Stats ---

type pipelineStats struct {
	Execution  interface{} `json:"execution"`
	Evaluation interface{} `json:"evaluation"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pipelineStats{
		Execution:  s.service.GetExecutionStats(),
		Evaluation: s.service.GetEvaluationStats(),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
