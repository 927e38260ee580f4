// Package controlplane provides the HTTP API and service layer for Millrun.
package controlplane

import (
	"context"

	"github.com/millworks/millrun/internal/evaluator"
	"github.com/millworks/millrun/internal/models"
	"github.com/millworks/millrun/internal/scheduler"
	"github.com/millworks/millrun/internal/store"
)

// Service provides the pipeline business logic over the scheduler, the
// evaluation engine, and the store.
type Service struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	engine    *evaluator.Engine
}

// NewService creates a new control plane service.
func NewService(s *store.Store, sch *scheduler.Scheduler, eng *evaluator.Engine) *Service {
	return &Service{
		store:     s,
		scheduler: sch,
		engine:    eng,
	}
}

// --- Subtask Operations ---

// QueueSubtask accepts a subtask into the pending queue.
func (s *Service) QueueSubtask(subtask *models.Subtask) (models.QueueAck, error) {
	if subtask.Title == "" {
		return models.QueueAck{}, ErrInvalidSubtask
	}
	return s.scheduler.QueueSubtask(subtask), nil
}

// ExecuteSubtask runs a subtask immediately, bypassing the concurrency cap.
// The result is terminal; failures are reported inside it.
func (s *Service) ExecuteSubtask(ctx context.Context, subtask *models.Subtask) (*models.SubtaskResult, error) {
	if subtask.Title == "" {
		return nil, ErrInvalidSubtask
	}
	return s.scheduler.ExecuteSubtask(ctx, subtask), nil
}

// GetExecutionStatus reports a subtask's position in the pipeline.
func (s *Service) GetExecutionStatus(subtaskID string) models.ExecutionStatus {
	return s.scheduler.GetExecutionStatus(subtaskID)
}

// GetExecutionStats returns scheduler statistics.
func (s *Service) GetExecutionStats() scheduler.Stats {
	return s.scheduler.GetExecutionStats()
}

// --- Evaluation Operations ---

// EvaluateTask scores artifacts synchronously. Reentrant requests for the
// same task surface evaluator.ErrEvaluationInProgress.
func (s *Service) EvaluateTask(ctx context.Context, taskID string, artifacts []models.Artifact) (*models.Evaluation, error) {
	if taskID == "" {
		return nil, ErrEmptyTaskID
	}
	return s.engine.EvaluateTask(ctx, taskID, artifacts)
}

// QueueEvaluation enqueues an out-of-band evaluation request.
func (s *Service) QueueEvaluation(taskID string, artifacts []models.Artifact, priority int) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}
	s.engine.QueueEvaluation(taskID, artifacts, priority)
	return nil
}

// GetEvaluationHistory returns the engine's in-memory history.
func (s *Service) GetEvaluationHistory(taskID string, limit int) []models.Evaluation {
	return s.engine.GetEvaluationHistory(taskID, limit)
}

// GetArchivedEvaluations returns evaluations persisted across restarts.
func (s *Service) GetArchivedEvaluations(taskID string, limit int) ([]models.Evaluation, error) {
	return s.store.ListEvaluations(taskID, limit)
}

// GetEvaluationStats returns evaluation engine statistics.
func (s *Service) GetEvaluationStats() evaluator.Stats {
	return s.engine.GetEvaluationStats()
}

// --- Task Operations ---

// RegisterTask stores a planner-supplied task so the lookup collaborator
// can resolve its success metrics and effort estimate.
func (s *Service) RegisterTask(task *models.Task) error {
	if task.Title == "" {
		return ErrInvalidTask
	}
	return s.store.RegisterTask(task)
}

// GetTask retrieves a registered task.
func (s *Service) GetTask(id string) (*models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// --- Memory Operations ---

// AddMemory adds a knowledge-store item.
func (s *Service) AddMemory(content, category string) (*models.MemoryItem, error) {
	return s.store.AddMemory(content, category)
}

// QueryMemory searches knowledge-store items.
func (s *Service) QueryMemory(query string) ([]models.MemoryItem, error) {
	return s.store.QueryMemory(query)
}
