// Package knowledge defines the external collaborators the pipeline core
// consumes: the knowledge store and the task lookup.
package knowledge

import (
	"context"

	"github.com/millworks/millrun/internal/models"
	"github.com/millworks/millrun/internal/store"
)

// Store receives human-readable summaries after each evaluation. Writes are
// fire-and-forget; callers log failures and never propagate them.
type Store interface {
	AddMemory(ctx context.Context, text, category string) error
}

// TaskLookup resolves a task by ID so the evaluator can read its success
// metrics and effort estimate. Absence is a valid, common outcome and must
// degrade gracefully.
type TaskLookup interface {
	TaskByID(ctx context.Context, id string) (*models.Task, bool, error)
}

// SQLiteKnowledge implements both collaborators on the Millrun store.
type SQLiteKnowledge struct {
	store *store.Store
}

// NewSQLiteKnowledge wraps a store as the knowledge collaborators.
func NewSQLiteKnowledge(s *store.Store) *SQLiteKnowledge {
	return &SQLiteKnowledge{store: s}
}

// AddMemory persists a memory item.
func (k *SQLiteKnowledge) AddMemory(ctx context.Context, text, category string) error {
	_, err := k.store.AddMemory(text, category)
	return err
}

// TaskByID resolves a registered task. The second return is false when no
// task with that ID was registered.
func (k *SQLiteKnowledge) TaskByID(ctx context.Context, id string) (*models.Task, bool, error) {
	task, err := k.store.GetTask(id)
	if err != nil {
		return nil, false, err
	}
	if task == nil {
		return nil, false, nil
	}
	return task, true, nil
}
