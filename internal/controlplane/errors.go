package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrInvalidSubtask = errors.New("subtask title is required")
	ErrInvalidTask    = errors.New("task title is required")
	ErrTaskNotFound   = errors.New("task not found")
	ErrEmptyTaskID    = errors.New("task id is required")
)
