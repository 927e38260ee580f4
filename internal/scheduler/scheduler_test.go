package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/millworks/millrun/internal/audit"
	"github.com/millworks/millrun/internal/evaluator"
	"github.com/millworks/millrun/internal/models"
	"github.com/millworks/millrun/internal/producer"
	"github.com/millworks/millrun/internal/store"
)

// blockingProducer parks every execution until released, so tests can hold
// subtasks in the active set.
type blockingProducer struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingProducer() *blockingProducer {
	return &blockingProducer{
		started: make(chan struct{}, 32),
		release: make(chan struct{}),
	}
}

func (p *blockingProducer) Name() string { return "blocking" }

func (p *blockingProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	p.started <- struct{}{}
	<-p.release
	return nil, nil
}

// blockingLookup holds an evaluation inside its critical window until
// released, so tests can occupy the engine's in-flight slot for a task.
type blockingLookup struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingLookup() *blockingLookup {
	return &blockingLookup{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingLookup) TaskByID(ctx context.Context, id string) (*models.Task, bool, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil, false, nil
}

// failingProducer always errors.
type failingProducer struct{}

func (p *failingProducer) Name() string { return "failing" }

func (p *failingProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	return nil, errors.New("producer exploded")
}

// richProducer emits enough strong artifacts to push the overall score past
// the completion threshold.
type richProducer struct{}

func (p *richProducer) Name() string { return "rich" }

func (p *richProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	artifacts := make([]models.Artifact, 4)
	for i := range artifacts {
		artifacts[i] = models.Artifact{
			ID:      fmt.Sprintf("artifact-%d", i),
			TaskID:  subtask.ID,
			Type:    models.ArtifactTypeDocument,
			Content: "a novel, innovative, creative, original and experimental result",
			QualityMetrics: &models.QualityMetrics{
				Accuracy: 90, Completeness: 90, Clarity: 90, Usefulness: 90,
			},
			CreatedAt: time.Now().UTC(),
			Version:   1,
		}
	}
	return artifacts, nil
}

func newTestScheduler(t *testing.T, p producer.Producer, maxConcurrent int) *Scheduler {
	t.Helper()

	registry := producer.NewRegistry(p)
	engine := evaluator.New(nil, nil, nil, nil)
	cfg := &Config{
		MaxConcurrentExecutions: maxConcurrent,
		TickInterval:            time.Hour, // tests step the loop manually
	}
	return New(registry, engine, cfg, nil)
}

func TestQueueSubtaskAck(t *testing.T) {
	sch := newTestScheduler(t, &richProducer{}, 3)

	subtask := &models.Subtask{Title: "Queued work"}
	ack := sch.QueueSubtask(subtask)

	if !ack.Success {
		t.Error("expected ack.Success")
	}
	if ack.TaskID == "" {
		t.Error("expected an assigned subtask ID")
	}
	if ack.Operation != "queue_subtask" {
		t.Errorf("ack.Operation = %q", ack.Operation)
	}
	if subtask.Status != models.SubtaskStatusPending {
		t.Errorf("queued subtask status = %s, want pending", subtask.Status)
	}

	status := sch.GetExecutionStatus(ack.TaskID)
	if status.State != models.ExecutionStateQueued {
		t.Errorf("status state = %s, want queued", status.State)
	}
	if status.Progress != 0 {
		t.Errorf("queued progress = %f, want 0", status.Progress)
	}
}

func TestTickRespectsConcurrencyCap(t *testing.T) {
	bp := newBlockingProducer()
	sch := newTestScheduler(t, bp, 2)

	for i := 0; i < 5; i++ {
		sch.QueueSubtask(&models.Subtask{Title: fmt.Sprintf("work %d", i)})
	}

	// One dequeue per tick; extra ticks past the cap must be no-ops.
	for i := 0; i < 5; i++ {
		sch.Tick()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-bp.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("execution %d never started", i)
		}
	}

	stats := sch.GetExecutionStats()
	if stats.ActiveExecutions != 2 {
		t.Errorf("active executions = %d, want 2 (cap)", stats.ActiveExecutions)
	}
	if stats.QueuedSubtasks != 3 {
		t.Errorf("queued subtasks = %d, want 3", stats.QueuedSubtasks)
	}

	close(bp.release)

	// Drain the remaining queue and wait for everything to finish.
	deadline := time.After(10 * time.Second)
	for {
		sch.Tick()
		stats = sch.GetExecutionStats()
		if stats.ActiveExecutions == 0 && stats.QueuedSubtasks == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout draining queue: %+v", stats)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestExecuteSubtaskCompleted(t *testing.T) {
	sch := newTestScheduler(t, &richProducer{}, 3)

	subtask := &models.Subtask{ID: "st-1", Title: "Strong work"}
	result := sch.ExecuteSubtask(context.Background(), subtask)

	if result.Status != models.SubtaskStatusCompleted {
		t.Errorf("result status = %s, want completed", result.Status)
	}
	if result.Evaluation == nil {
		t.Fatal("expected an evaluation on the result")
	}
	if result.Evaluation.OverallScore < 70 {
		t.Errorf("overall score = %d, expected >= 70 for rich artifacts", result.Evaluation.OverallScore)
	}
	if len(result.Artifacts) != 4 {
		t.Errorf("artifacts = %d, want 4", len(result.Artifacts))
	}
	if subtask.QualityScore != result.Evaluation.OverallScore {
		t.Errorf("subtask quality score %d != evaluation overall %d", subtask.QualityScore, result.Evaluation.OverallScore)
	}
	if subtask.CompletionTime == nil {
		t.Error("expected completion time to be set")
	}

	// Terminal subtasks leave no tracking state behind.
	if status := sch.GetExecutionStatus("st-1"); status.State != models.ExecutionStateUnknown {
		t.Errorf("post-completion state = %s, want unknown", status.State)
	}
}

func TestExecuteSubtaskPartialOnLowScore(t *testing.T) {
	bp := newBlockingProducer()
	close(bp.release) // never blocks, returns zero artifacts
	sch := newTestScheduler(t, bp, 3)

	subtask := &models.Subtask{ID: "st-low", Title: "Empty-handed work"}
	result := sch.ExecuteSubtask(context.Background(), subtask)

	if result.Status != models.SubtaskStatusPartial {
		t.Errorf("result status = %s, want partial (no artifacts scores below 70)", result.Status)
	}
	if result.Evaluation == nil {
		t.Fatal("expected an evaluation on the result")
	}
	if result.Evaluation.OverallScore >= 70 {
		t.Errorf("overall score = %d, expected < 70 for empty artifacts", result.Evaluation.OverallScore)
	}
}

func TestExecuteSubtaskProducerFailure(t *testing.T) {
	sch := newTestScheduler(t, &failingProducer{}, 3)

	subtask := &models.Subtask{ID: "st-fail", Title: "Doomed work"}
	result := sch.ExecuteSubtask(context.Background(), subtask)

	if result.Status != models.SubtaskStatusFailed {
		t.Errorf("result status = %s, want failed", result.Status)
	}
	if result.Error == "" {
		t.Error("expected the producer error captured on the result")
	}
	if result.Evaluation != nil {
		t.Error("failed runs must not carry an evaluation")
	}
	if subtask.Status != models.SubtaskStatusFailed {
		t.Errorf("subtask status = %s, want failed", subtask.Status)
	}

	// The active entry is removed even on the failure path.
	if stats := sch.GetExecutionStats(); stats.ActiveExecutions != 0 {
		t.Errorf("active executions after failure = %d, want 0", stats.ActiveExecutions)
	}
}

func TestExecuteSubtaskEvaluationFailure(t *testing.T) {
	lookup := newBlockingLookup()
	engine := evaluator.New(nil, lookup, nil, nil)
	cfg := &Config{MaxConcurrentExecutions: 3, TickInterval: time.Hour}
	sch := New(producer.NewRegistry(&richProducer{}), engine, cfg, nil)

	// Occupy the engine's in-flight slot for this subtask ID so the inline
	// evaluation is rejected.
	done := make(chan error, 1)
	go func() {
		_, err := engine.EvaluateTask(context.Background(), "st-busy", nil)
		done <- err
	}()
	select {
	case <-lookup.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("background evaluation never started")
	}

	subtask := &models.Subtask{ID: "st-busy", Title: "Contended work"}
	result := sch.ExecuteSubtask(context.Background(), subtask)

	if result.Status != models.SubtaskStatusFailed {
		t.Errorf("result status = %s, want failed", result.Status)
	}
	if result.Error == "" {
		t.Error("expected the evaluation error captured on the result")
	}
	if !strings.Contains(result.Error, evaluator.ErrEvaluationInProgress.Error()) {
		t.Errorf("result error = %q, want the in-progress rejection", result.Error)
	}
	if result.Evaluation != nil {
		t.Error("failed runs must not carry an evaluation")
	}
	if len(result.Artifacts) != 4 {
		t.Errorf("artifacts = %d, want the 4 produced before evaluation", len(result.Artifacts))
	}
	if subtask.Status != models.SubtaskStatusFailed {
		t.Errorf("subtask status = %s, want failed", subtask.Status)
	}

	// The active entry is removed even when evaluation fails.
	if stats := sch.GetExecutionStats(); stats.ActiveExecutions != 0 {
		t.Errorf("active executions after failure = %d, want 0", stats.ActiveExecutions)
	}

	close(lookup.release)
	if err := <-done; err != nil {
		t.Fatalf("background evaluation failed: %v", err)
	}
}

func TestTickRecordsDispatchAudit(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	sch := newTestScheduler(t, &richProducer{}, 3)
	sch.SetAudit(audit.NewTrail(st))

	sch.QueueSubtask(&models.Subtask{Title: "Dispatched work"})
	sch.Tick()

	// The audit write rides in the detached goroutine; poll until it lands.
	deadline := time.After(10 * time.Second)
	for {
		n, err := st.CountAudit("subtask.dispatch")
		if err != nil {
			t.Fatalf("CountAudit failed: %v", err)
		}
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("dispatch audit entries = %d, want 1", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGetExecutionStatusExecutingNoEstimate(t *testing.T) {
	bp := newBlockingProducer()
	sch := newTestScheduler(t, bp, 3)

	go sch.ExecuteSubtask(context.Background(), &models.Subtask{ID: "st-exec", Title: "Unbudgeted work"})

	select {
	case <-bp.started:
	case <-time.After(5 * time.Second):
		t.Fatal("execution never started")
	}

	status := sch.GetExecutionStatus("st-exec")
	if status.State != models.ExecutionStateExecuting {
		t.Errorf("state = %s, want executing", status.State)
	}
	// Without an effort estimate, progress stays at zero while executing.
	if status.Progress != 0 {
		t.Errorf("progress = %f, want 0 with no estimate", status.Progress)
	}

	close(bp.release)
}

func TestExecuteSubtaskArchivesAndAudits(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	sch := newTestScheduler(t, &richProducer{}, 3)
	sch.SetAudit(audit.NewTrail(st))
	sch.SetArchive(st)

	subtask := &models.Subtask{ID: "st-audit", Title: "Recorded work"}
	result := sch.ExecuteSubtask(context.Background(), subtask)
	if result.Status != models.SubtaskStatusCompleted {
		t.Fatalf("result status = %s, want completed", result.Status)
	}

	artifacts, err := st.GetArtifactsForTask("st-audit")
	if err != nil {
		t.Fatalf("GetArtifactsForTask failed: %v", err)
	}
	if len(artifacts) != 4 {
		t.Errorf("archived artifacts = %d, want 4", len(artifacts))
	}

	n, err := st.CountAudit("subtask.execute")
	if err != nil {
		t.Fatalf("CountAudit failed: %v", err)
	}
	if n != 1 {
		t.Errorf("audit entries for subtask.execute = %d, want 1", n)
	}
}

func TestResourceUsage(t *testing.T) {
	artifacts := []models.Artifact{
		{Type: models.ArtifactTypeResearchReport, Content: "0123456789"},
		{Type: models.ArtifactTypeCode, Content: "01234567890123456789"},
		{Type: models.ArtifactTypeDocument, Content: "abc"},
	}

	usage := resourceUsage(1.5, artifacts)

	if usage.CPUTimeSec != 5400 {
		t.Errorf("CPU time = %f, want 5400 (1.5h)", usage.CPUTimeSec)
	}
	if usage.MemoryUsedBytes != 33 {
		t.Errorf("memory = %d, want 33 (total content length)", usage.MemoryUsedBytes)
	}
	// research_report 5 + code 2 + default 1
	if usage.APICalls != 8 {
		t.Errorf("API calls = %d, want 8", usage.APICalls)
	}
}

func TestGetExecutionStatusUnknown(t *testing.T) {
	sch := newTestScheduler(t, &richProducer{}, 3)

	status := sch.GetExecutionStatus("nope")
	if status.State != models.ExecutionStateUnknown {
		t.Errorf("state = %s, want unknown", status.State)
	}
	if status.Progress != 0 {
		t.Errorf("progress = %f, want 0", status.Progress)
	}
}
