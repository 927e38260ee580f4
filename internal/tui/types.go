package tui

// EvalRow is a single evaluation rendered in the dashboard list.
type EvalRow struct {
	TaskID       string
	OverallScore int
	Completeness int
	Quality      int
	Efficiency   int
	Innovation   int
	Confidence   int
	Feedback     string
}

// PipelineStats is the combined scheduler and evaluator snapshot.
type PipelineStats struct {
	ActiveExecutions      int
	QueuedSubtasks        int
	MaxConcurrent         int
	TotalEvaluations      int
	AverageScore          int
	EvalQueueSize         int
	EvaluationsInProgress int
}
