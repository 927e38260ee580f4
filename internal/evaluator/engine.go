package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/millworks/millrun/internal/audit"
	"github.com/millworks/millrun/internal/knowledge"
	"github.com/millworks/millrun/internal/logging"
	"github.com/millworks/millrun/internal/models"
	"github.com/millworks/millrun/internal/store"
)

// ErrEvaluationInProgress is returned when an evaluation is requested for a
// task that already has one in flight. The request is rejected, not queued.
var ErrEvaluationInProgress = errors.New("evaluation already in progress for task")

// Engine turns artifact sets into scored evaluations. It owns the in-flight
// set, the bounded history, and the pending-evaluation queue.
type Engine struct {
	knowledge knowledge.Store
	lookup    knowledge.TaskLookup
	trail     *audit.Trail
	archive   *store.Store
	config    *Config
	logger    *zap.SugaredLogger

	mu       sync.Mutex
	inFlight map[string]struct{}
	history  []*models.Evaluation
	pending  []models.PendingEvaluation

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new evaluation engine. ks and lookup may be nil; the engine
// degrades to base behavior without them.
func New(ks knowledge.Store, lookup knowledge.TaskLookup, cfg *Config, logger *zap.SugaredLogger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		knowledge: ks,
		lookup:    lookup,
		config:    cfg,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetAudit wires the audit trail writer.
func (e *Engine) SetAudit(t *audit.Trail) {
	e.trail = t
}

// SetArchive wires the evaluation archive store.
func (e *Engine) SetArchive(s *store.Store) {
	e.archive = s
}

// Start begins the pending-evaluation loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.queueLoop()
	e.logger.Infow("evaluation engine started", "queue_tick", e.config.QueueTickInterval)
}

// Stop gracefully stops the engine and waits for in-flight work.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	e.logger.Info("evaluation engine stopped")
}

// queueLoop drains the pending-evaluation queue, one entry per tick.
func (e *Engine) queueLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.QueueTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick processes exactly one pending evaluation if any is queued. The
// evaluation runs detached so a slow one never delays the next tick.
// Exported so tests can step the queue deterministically.
func (e *Engine) Tick() {
	e.mu.Lock()
	if len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}

	// Highest priority first; FIFO within equal priority.
	best := 0
	for i := 1; i < len(e.pending); i++ {
		if e.pending[i].Priority > e.pending[best].Priority {
			best = i
		}
	}
	entry := e.pending[best]
	e.pending = append(e.pending[:best], e.pending[best+1:]...)
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.EvaluateTask(e.ctx, entry.TaskID, entry.Artifacts); err != nil {
			// One failing entry never halts the loop.
			e.logger.Warnw("queued evaluation failed", "task_id", entry.TaskID, "error", err)
		}
	}()
}

// QueueEvaluation enqueues an out-of-band evaluation request.
func (e *Engine) QueueEvaluation(taskID string, artifacts []models.Artifact, priority int) {
	e.mu.Lock()
	e.pending = append(e.pending, models.PendingEvaluation{
		TaskID:      taskID,
		RequestTime: time.Now().UTC(),
		Priority:    priority,
		Artifacts:   artifacts,
	})
	size := len(e.pending)
	e.mu.Unlock()

	e.logger.Debugw("evaluation queued", "task_id", taskID, "priority", priority, "queue_size", size)
}

// EvaluateTask scores a set of artifacts for a task. At most one evaluation
// may be in flight per taskId; a concurrent second request is rejected with
// ErrEvaluationInProgress.
func (e *Engine) EvaluateTask(ctx context.Context, taskID string, artifacts []models.Artifact) (*models.Evaluation, error) {
	e.mu.Lock()
	if _, busy := e.inFlight[taskID]; busy {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrEvaluationInProgress, taskID)
	}
	e.inFlight[taskID] = struct{}{}
	e.mu.Unlock()

	// The in-flight entry is removed on every path, including errors.
	defer func() {
		e.mu.Lock()
		delete(e.inFlight, taskID)
		e.mu.Unlock()
	}()

	task := e.resolveTask(ctx, taskID)
	timeSpent := timeSpentHours(artifacts)

	breakdown := models.ScoreBreakdown{
		Completeness: scoreCompleteness(task, artifacts),
		Quality:      scoreQuality(artifacts),
		Efficiency:   scoreEfficiency(task, timeSpent, e.config.ResourceScore),
		Innovation:   scoreInnovation(artifacts),
	}
	overall := overallScore(breakdown)
	report := buildFeedback(breakdown, overall, len(artifacts))

	eval := &models.Evaluation{
		ID:           uuid.New().String(),
		TaskID:       taskID,
		Timestamp:    time.Now().UTC(),
		Scores:       breakdown,
		OverallScore: overall,
		Feedback:     report.Feedback,
		Improvements: report.Improvements,
		NextActions:  report.NextActions,
		Confidence:   confidenceBucket(breakdown),
		Context: models.EvaluationContext{
			TimeSpent:     timeSpent,
			ResourcesUsed: len(artifacts),
			Challenges:    report.Challenges,
			Successes:     report.Successes,
		},
	}

	e.appendHistory(eval)

	// Best-effort, non-blocking knowledge-store write. Failures are logged,
	// never propagated.
	if e.knowledge != nil {
		go e.recordMemory(eval)
	}

	outcome := ClassifyOutcome(overall)
	if e.trail != nil {
		if err := e.trail.Record("evaluation.complete", map[string]interface{}{
			"task_id":   taskID,
			"artifacts": len(artifacts),
		}, outcome, taskID, fmt.Sprintf("overall score %d", overall)); err != nil {
			e.logger.Warnw("audit write failed", "task_id", taskID, "error", err)
		}
	}
	if e.archive != nil {
		if err := e.archive.ArchiveEvaluation(eval); err != nil {
			e.logger.Warnw("evaluation archive failed", "task_id", taskID, "error", err)
		}
	}

	e.logger.Infow("task evaluated",
		"task_id", taskID,
		"overall", overall,
		"outcome", outcome,
		"artifacts", len(artifacts),
	)

	return eval, nil
}

// resolveTask fetches the task from the lookup collaborator. Absence (the
// common case) and lookup errors both degrade to nil.
func (e *Engine) resolveTask(ctx context.Context, taskID string) *models.Task {
	if e.lookup == nil {
		return nil
	}
	task, found, err := e.lookup.TaskByID(ctx, taskID)
	if err != nil {
		e.logger.Warnw("task lookup failed", "task_id", taskID, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return task
}

// appendHistory appends an evaluation, evicting the oldest entry once the
// bounded history exceeds its limit.
func (e *Engine) appendHistory(eval *models.Evaluation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, eval)
	if len(e.history) > e.config.HistoryLimit {
		e.history = e.history[len(e.history)-e.config.HistoryLimit:]
	}
}

// recordMemory writes a human-readable evaluation summary to the knowledge
// store.
func (e *Engine) recordMemory(eval *models.Evaluation) {
	summary := fmt.Sprintf(
		"Task %s evaluated: overall %d/100 (completeness %d, quality %d, efficiency %d, innovation %d). %s",
		eval.TaskID, eval.OverallScore,
		eval.Scores.Completeness, eval.Scores.Quality, eval.Scores.Efficiency, eval.Scores.Innovation,
		eval.Feedback,
	)
	if err := e.knowledge.AddMemory(context.Background(), summary, "evaluation"); err != nil {
		e.logger.Warnw("knowledge store write failed", "task_id", eval.TaskID, "error", err)
	}
}

// GetEvaluationHistory returns past evaluations, optionally filtered by
// task, taking the last limit entries (default 10).
func (e *Engine) GetEvaluationHistory(taskID string, limit int) []models.Evaluation {
	if limit <= 0 {
		limit = 10
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var filtered []*models.Evaluation
	if taskID == "" {
		filtered = e.history
	} else {
		for _, eval := range e.history {
			if eval.TaskID == taskID {
				filtered = append(filtered, eval)
			}
		}
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	out := make([]models.Evaluation, len(filtered))
	for i, eval := range filtered {
		out[i] = *eval
	}
	return out
}

// Stats is a read-only snapshot of the engine.
type Stats struct {
	TotalEvaluations      int `json:"total_evaluations"`
	AverageScore          int `json:"average_score"`
	QueueSize             int `json:"queue_size"`
	EvaluationsInProgress int `json:"evaluations_in_progress"`
}

// GetEvaluationStats returns aggregate engine statistics.
func (e *Engine) GetEvaluationStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		TotalEvaluations:      len(e.history),
		QueueSize:             len(e.pending),
		EvaluationsInProgress: len(e.inFlight),
	}
	if len(e.history) > 0 {
		total := 0
		for _, eval := range e.history {
			total += eval.OverallScore
		}
		stats.AverageScore = (total + len(e.history)/2) / len(e.history)
	}
	return stats
}

// timeSpentHours measures the span from the earliest artifact creation to
// now, in hours. Zero when no artifact carries a timestamp.
func timeSpentHours(artifacts []models.Artifact) float64 {
	var earliest time.Time
	for _, a := range artifacts {
		if a.CreatedAt.IsZero() {
			continue
		}
		if earliest.IsZero() || a.CreatedAt.Before(earliest) {
			earliest = a.CreatedAt
		}
	}
	if earliest.IsZero() {
		return 0
	}
	return time.Since(earliest).Hours()
}
