// Package models defines the core domain types for Millrun.
package models

import "time"

// WorkType classifies a subtask and selects the producer that handles it.
type WorkType string

const (
	WorkTypeResearch      WorkType = "research"
	WorkTypeCode          WorkType = "code"
	WorkTypeAnalysis      WorkType = "analysis"
	WorkTypeCommunication WorkType = "communication"
	WorkTypeDecision      WorkType = "decision"
	// WorkTypeGeneric is the explicit fallback for unrecognized work types.
	WorkTypeGeneric WorkType = "generic"
)

// Valid returns true if the work type is a known value.
func (w WorkType) Valid() bool {
	switch w {
	case WorkTypeResearch, WorkTypeCode, WorkTypeAnalysis, WorkTypeCommunication, WorkTypeDecision, WorkTypeGeneric:
		return true
	default:
		return false
	}
}

// SubtaskStatus represents the current state of a subtask.
type SubtaskStatus string

const (
	SubtaskStatusPending    SubtaskStatus = "pending"
	SubtaskStatusInProgress SubtaskStatus = "in_progress"
	SubtaskStatusCompleted  SubtaskStatus = "completed"
	SubtaskStatusPartial    SubtaskStatus = "partial"
	SubtaskStatusFailed     SubtaskStatus = "failed"
)

// ArtifactType classifies the output object a producer created.
type ArtifactType string

const (
	ArtifactTypeCode           ArtifactType = "code"
	ArtifactTypeResearchReport ArtifactType = "research_report"
	ArtifactTypeAnalysis       ArtifactType = "analysis"
	ArtifactTypeDocument       ArtifactType = "document"
	ArtifactTypeDecision       ArtifactType = "decision"
	ArtifactTypeCommunication  ArtifactType = "communication"
)

// Valid returns true if the artifact type is a known value.
func (a ArtifactType) Valid() bool {
	switch a {
	case ArtifactTypeCode, ArtifactTypeResearchReport, ArtifactTypeAnalysis, ArtifactTypeDocument, ArtifactTypeDecision, ArtifactTypeCommunication:
		return true
	default:
		return false
	}
}

// SuccessMetric is an optional weighted criterion a task defines up front.
type SuccessMetric struct {
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Task is created by an external planner and read-only to the pipeline core.
type Task struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Subtasks       []Subtask       `json:"subtasks,omitempty"`
	SuccessMetrics []SuccessMetric `json:"success_metrics,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EstimatedHours sums the effort estimates of the task's subtasks.
// Zero means no estimate is known.
func (t *Task) EstimatedHours() float64 {
	var total float64
	for _, st := range t.Subtasks {
		total += st.EstimatedEffort
	}
	return total
}

// Subtask is an atomic, typed unit of work dispatched to exactly one producer.
// It is mutated only by the executor during its own run.
type Subtask struct {
	ID              string        `json:"id"`
	TaskID          string        `json:"task_id,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	WorkType        WorkType      `json:"work_type"`
	Status          SubtaskStatus `json:"status"`
	EstimatedEffort float64       `json:"estimated_effort"` // hours
	ActualEffort    float64       `json:"actual_effort"`    // hours, computed
	StartTime       *time.Time    `json:"start_time,omitempty"`
	CompletionTime  *time.Time    `json:"completion_time,omitempty"`
	Artifacts       []Artifact    `json:"artifacts,omitempty"`
	QualityScore    int           `json:"quality_score"`
	Evaluations     []Evaluation  `json:"evaluations,omitempty"`
}

// QualityMetrics is an artifact's self-assessed quality estimate, each 0-100.
type QualityMetrics struct {
	Accuracy     int `json:"accuracy"`
	Completeness int `json:"completeness"`
	Clarity      int `json:"clarity"`
	Usefulness   int `json:"usefulness"`
}

// Average returns the mean of the four self-assessed metrics.
func (q QualityMetrics) Average() float64 {
	return float64(q.Accuracy+q.Completeness+q.Clarity+q.Usefulness) / 4
}

// Artifact is the tangible output of a subtask. It is created once by a
// producer and immutable thereafter; versioning is additive.
type Artifact struct {
	ID               string                 `json:"id"`
	TaskID           string                 `json:"task_id"`
	Type             ArtifactType           `json:"type"`
	Content          string                 `json:"content"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	QualityMetrics   *QualityMetrics        `json:"quality_metrics,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Version          int                    `json:"version"`
	RelatedArtifacts []string               `json:"related_artifacts,omitempty"`
}

// MetaFloat reads a numeric metadata value, tolerating the types a JSON
// round-trip produces.
func (a *Artifact) MetaFloat(key string) (float64, bool) {
	v, ok := a.Metadata[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// MetaString reads a string metadata value.
func (a *Artifact) MetaString(key string) (string, bool) {
	v, ok := a.Metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MetaStrings reads a string-list metadata value.
func (a *Artifact) MetaStrings(key string) []string {
	v, ok := a.Metadata[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ScoreBreakdown holds the four dimension scores, each 0-100.
type ScoreBreakdown struct {
	Completeness int `json:"completeness"`
	Quality      int `json:"quality"`
	Efficiency   int `json:"efficiency"`
	Innovation   int `json:"innovation"`
}

// EvaluationContext captures the circumstances of an evaluation.
type EvaluationContext struct {
	TimeSpent     float64  `json:"time_spent"` // hours
	ResourcesUsed int      `json:"resources_used"`
	Challenges    []string `json:"challenges,omitempty"`
	Successes     []string `json:"successes,omitempty"`
}

// Evaluation is the scored, four-dimension judgment of a set of artifacts.
// It is created exactly once per evaluation call.
type Evaluation struct {
	ID           string            `json:"id"`
	TaskID       string            `json:"task_id"`
	Timestamp    time.Time         `json:"timestamp"`
	Scores       ScoreBreakdown    `json:"score_breakdown"`
	OverallScore int               `json:"overall_score"`
	Feedback     string            `json:"feedback"`
	Improvements []string          `json:"improvements,omitempty"`
	NextActions  []string          `json:"next_actions,omitempty"`
	Confidence   int               `json:"confidence"`
	Context      EvaluationContext `json:"evaluation_context"`
}

// PendingEvaluation is a queue entry for an out-of-band evaluation request.
// It is consumed and discarded by the evaluation processor.
type PendingEvaluation struct {
	TaskID      string                 `json:"task_id"`
	RequestTime time.Time              `json:"request_time"`
	Priority    int                    `json:"priority"`
	Artifacts   []Artifact             `json:"artifacts"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// ResourceUsage is the proxy resource accounting attached to each result.
type ResourceUsage struct {
	CPUTimeSec      float64 `json:"cpu_time_sec"`
	MemoryUsedBytes int64   `json:"memory_used_bytes"`
	APICalls        int     `json:"api_calls"`
}

// SubtaskResult is returned synchronously to the caller of ExecuteSubtask.
type SubtaskResult struct {
	SubtaskID      string        `json:"subtask_id"`
	Status         SubtaskStatus `json:"status"`
	Artifacts      []Artifact    `json:"artifacts,omitempty"`
	Evaluation     *Evaluation   `json:"evaluation,omitempty"`
	Error          string        `json:"error,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	CompletionTime time.Time     `json:"completion_time"`
	ActualEffort   float64       `json:"actual_effort"` // hours
	Resources      ResourceUsage `json:"resources"`
}

// QueueAck acknowledges acceptance of a subtask into the pending queue.
type QueueAck struct {
	Success   bool      `json:"success"`
	TaskID    string    `json:"task_id"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionState describes where a subtask currently sits in the pipeline.
type ExecutionState string

const (
	ExecutionStateQueued    ExecutionState = "queued"
	ExecutionStateExecuting ExecutionState = "executing"
	ExecutionStateUnknown   ExecutionState = "unknown"
)

// ExecutionStatus is a read-only snapshot of a subtask's progress.
type ExecutionStatus struct {
	SubtaskID string         `json:"subtask_id"`
	State     ExecutionState `json:"state"`
	Progress  float64        `json:"progress"` // 0-100
}

// MemoryItem represents a knowledge-store snippet.
type MemoryItem struct {
	ID        string    `json:"id"`
	Category  string    `json:"category,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
