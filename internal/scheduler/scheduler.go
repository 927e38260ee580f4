package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/millworks/millrun/internal/audit"
	"github.com/millworks/millrun/internal/evaluator"
	"github.com/millworks/millrun/internal/logging"
	"github.com/millworks/millrun/internal/models"
	"github.com/millworks/millrun/internal/producer"
	"github.com/millworks/millrun/internal/store"
)

// apiCallsPerArtifact is the fixed per-artifact-type lookup for the API
// call proxy in resource accounting.
var apiCallsPerArtifact = map[models.ArtifactType]int{
	models.ArtifactTypeResearchReport: 5,
	models.ArtifactTypeCode:           2,
	models.ArtifactTypeAnalysis:       3,
}

// Scheduler accepts subtasks, runs at most MaxConcurrentExecutions at a
// time, and reports progress. Terminal results are returned synchronously
// to the caller of ExecuteSubtask; the scheduler keeps no terminal state.
type Scheduler struct {
	producers *producer.Registry
	engine    *evaluator.Engine
	trail     *audit.Trail
	archive   *store.Store
	config    *Config
	logger    *zap.SugaredLogger

	mu      sync.Mutex
	pending []*models.Subtask
	active  map[string]*activeExecution

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// activeExecution tracks one in-flight subtask.
type activeExecution struct {
	subtask   *models.Subtask
	startTime time.Time
}

// New creates a new scheduler.
func New(producers *producer.Registry, engine *evaluator.Engine, cfg *Config, logger *zap.SugaredLogger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		producers: producers,
		engine:    engine,
		config:    cfg,
		logger:    logger,
		active:    make(map[string]*activeExecution),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetAudit wires the audit trail writer.
func (s *Scheduler) SetAudit(t *audit.Trail) {
	s.trail = t
}

// SetArchive wires the artifact archive store.
func (s *Scheduler) SetArchive(st *store.Store) {
	s.archive = st
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.schedulerLoop()
	s.logger.Infow("scheduler started",
		"max_concurrent", s.config.MaxConcurrentExecutions,
		"tick", s.config.TickInterval,
	)
}

// Stop gracefully stops the scheduler and waits for in-flight executions.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// schedulerLoop dequeues pending subtasks on a fixed cadence.
func (s *Scheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// QueueSubtask appends a subtask to the FIFO pending queue and returns an
// acceptance acknowledgment immediately, not a result.
func (s *Scheduler) QueueSubtask(subtask *models.Subtask) models.QueueAck {
	if subtask.ID == "" {
		subtask.ID = uuid.New().String()
	}
	subtask.Status = models.SubtaskStatusPending

	s.mu.Lock()
	s.pending = append(s.pending, subtask)
	size := len(s.pending)
	s.mu.Unlock()

	s.logger.Infow("subtask queued", "subtask_id", subtask.ID, "work_type", subtask.WorkType, "queue_size", size)

	return models.QueueAck{
		Success:   true,
		TaskID:    subtask.ID,
		Operation: "queue_subtask",
		Message:   fmt.Sprintf("subtask accepted at queue position %d", size),
		Timestamp: time.Now().UTC(),
	}
}

// Tick dequeues at most one pending subtask if capacity allows and runs it
// detached. One dequeue per tick is an explicit throttling choice, not a
// drain-to-empty loop. Exported so tests can step the loop deterministically.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if len(s.pending) == 0 || len(s.active) >= s.config.MaxConcurrentExecutions {
		s.mu.Unlock()
		return
	}
	subtask := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	// The execution runs detached with its own error boundary; a slow or
	// failing subtask never delays the next tick. The dispatch audit write
	// rides along so a slow store cannot stall the loop either.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.trail != nil {
			if err := s.trail.Record("subtask.dispatch", map[string]interface{}{
				"subtask_id": subtask.ID,
				"work_type":  subtask.WorkType,
			}, "dispatched", subtask.ID, ""); err != nil {
				s.logger.Warnw("audit write failed", "subtask_id", subtask.ID, "error", err)
			}
		}
		result := s.ExecuteSubtask(s.ctx, subtask)
		s.logger.Infow("scheduled execution finished",
			"subtask_id", subtask.ID,
			"status", result.Status,
			"error", result.Error,
		)
	}()
}

// ExecuteSubtask runs a subtask through its producer and the evaluation
// engine. It is independently callable and deliberately bypasses the
// concurrency cap; only the tick-driven dequeue enforces it.
//
// Failures never escape: producer and evaluation errors are converted into
// a failed result with the error message captured. Once started, the run
// has no cancellation or abort path and executes to completion.
func (s *Scheduler) ExecuteSubtask(ctx context.Context, subtask *models.Subtask) *models.SubtaskResult {
	executionID := uuid.New().String()
	start := time.Now().UTC()

	subtask.Status = models.SubtaskStatusInProgress
	subtask.StartTime = &start

	s.mu.Lock()
	s.active[subtask.ID] = &activeExecution{subtask: subtask, startTime: start}
	s.mu.Unlock()

	// The tracking entry is removed on every path before the call returns.
	defer func() {
		s.mu.Lock()
		delete(s.active, subtask.ID)
		s.mu.Unlock()
	}()

	p := s.producers.Dispatch(subtask.WorkType)
	s.logger.Debugw("producer dispatched", "subtask_id", subtask.ID, "producer", p.Name(), "execution_id", executionID)

	artifacts, err := p.Produce(ctx, subtask, executionID)
	if err != nil {
		return s.failResult(subtask, artifacts, start, fmt.Errorf("produce: %w", err))
	}

	completion := time.Now().UTC()
	subtask.Artifacts = artifacts
	subtask.CompletionTime = &completion
	subtask.ActualEffort = completion.Sub(start).Hours()

	s.archiveArtifacts(artifacts)

	// Inline evaluation; errors here are caught by this boundary too.
	eval, err := s.engine.EvaluateTask(ctx, subtask.ID, artifacts)
	if err != nil {
		return s.failResult(subtask, artifacts, start, fmt.Errorf("evaluate: %w", err))
	}

	subtask.QualityScore = eval.OverallScore
	subtask.Evaluations = append(subtask.Evaluations, *eval)

	if eval.OverallScore >= 70 {
		subtask.Status = models.SubtaskStatusCompleted
	} else {
		subtask.Status = models.SubtaskStatusPartial
	}

	result := &models.SubtaskResult{
		SubtaskID:      subtask.ID,
		Status:         subtask.Status,
		Artifacts:      artifacts,
		Evaluation:     eval,
		StartTime:      start,
		CompletionTime: completion,
		ActualEffort:   subtask.ActualEffort,
		Resources:      resourceUsage(subtask.ActualEffort, artifacts),
	}

	s.recordOutcome(subtask, string(subtask.Status), fmt.Sprintf("overall score %d", eval.OverallScore))
	return result
}

// failResult converts an execution error into a failed result. Artifacts
// are whatever was produced, possibly empty; the evaluation is absent.
func (s *Scheduler) failResult(subtask *models.Subtask, artifacts []models.Artifact, start time.Time, err error) *models.SubtaskResult {
	completion := time.Now().UTC()
	subtask.Status = models.SubtaskStatusFailed
	subtask.Artifacts = artifacts
	subtask.CompletionTime = &completion
	subtask.ActualEffort = completion.Sub(start).Hours()

	s.logger.Warnw("subtask failed", "subtask_id", subtask.ID, "error", err)
	s.recordOutcome(subtask, "failed", err.Error())

	return &models.SubtaskResult{
		SubtaskID:      subtask.ID,
		Status:         models.SubtaskStatusFailed,
		Artifacts:      artifacts,
		Error:          err.Error(),
		StartTime:      start,
		CompletionTime: completion,
		ActualEffort:   subtask.ActualEffort,
		Resources:      resourceUsage(subtask.ActualEffort, artifacts),
	}
}

// archiveArtifacts persists produced artifacts, best effort.
func (s *Scheduler) archiveArtifacts(artifacts []models.Artifact) {
	if s.archive == nil {
		return
	}
	for i := range artifacts {
		if err := s.archive.SaveArtifact(&artifacts[i]); err != nil {
			s.logger.Warnw("artifact archive failed", "artifact_id", artifacts[i].ID, "error", err)
		}
	}
}

// recordOutcome writes the terminal outcome to the audit trail.
func (s *Scheduler) recordOutcome(subtask *models.Subtask, outcome, details string) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Record("subtask.execute", map[string]interface{}{
		"subtask_id": subtask.ID,
		"work_type":  subtask.WorkType,
	}, outcome, subtask.ID, details); err != nil {
		s.logger.Warnw("audit write failed", "subtask_id", subtask.ID, "error", err)
	}
}

// resourceUsage derives the proxy resource accounting for a run. CPU time
// is wall time, memory is estimated from content length, API calls come
// from a fixed per-type table.
func resourceUsage(actualEffortHours float64, artifacts []models.Artifact) models.ResourceUsage {
	var memory int64
	apiCalls := 0
	for i := range artifacts {
		memory += int64(len(artifacts[i].Content))
		if calls, ok := apiCallsPerArtifact[artifacts[i].Type]; ok {
			apiCalls += calls
		} else {
			apiCalls++
		}
	}
	return models.ResourceUsage{
		CPUTimeSec:      actualEffortHours * 3600,
		MemoryUsedBytes: memory,
		APICalls:        apiCalls,
	}
}

// GetExecutionStatus reports where a subtask currently sits: executing with
// elapsed-based progress, queued with zero progress, or unknown. Progress is
// elapsed time over the effort estimate, capped at 100; a subtask with no
// estimate reports zero progress for the whole run.
func (s *Scheduler) GetExecutionStatus(subtaskID string) models.ExecutionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec, ok := s.active[subtaskID]; ok {
		progress := 0.0
		if est := exec.subtask.EstimatedEffort; est > 0 {
			elapsed := time.Since(exec.startTime).Hours()
			progress = math.Min(100, elapsed/est*100)
		}
		return models.ExecutionStatus{
			SubtaskID: subtaskID,
			State:     models.ExecutionStateExecuting,
			Progress:  progress,
		}
	}

	for _, pending := range s.pending {
		if pending.ID == subtaskID {
			return models.ExecutionStatus{
				SubtaskID: subtaskID,
				State:     models.ExecutionStateQueued,
				Progress:  0,
			}
		}
	}

	return models.ExecutionStatus{
		SubtaskID: subtaskID,
		State:     models.ExecutionStateUnknown,
		Progress:  0,
	}
}

// Stats is a read-only snapshot of the scheduler.
type Stats struct {
	ActiveExecutions int `json:"active_executions"`
	QueuedSubtasks   int `json:"queued_subtasks"`
	MaxConcurrent    int `json:"max_concurrent"`
}

// GetExecutionStats returns current scheduler statistics.
func (s *Scheduler) GetExecutionStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ActiveExecutions: len(s.active),
		QueuedSubtasks:   len(s.pending),
		MaxConcurrent:    s.config.MaxConcurrentExecutions,
	}
}
