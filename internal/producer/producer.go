// Package producer turns subtask descriptions into artifacts. One producer
// exists per work type, with an explicit generic fallback; dispatch by work
// type never hard-errors.
package producer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/millworks/millrun/internal/models"
)

// Producer is the strategy contract: input subtask, output a non-empty list
// of artifacts, each with a best-effort quality estimate.
type Producer interface {
	// Name returns the producer identifier.
	Name() string

	// Produce generates artifacts for the subtask. executionID ties the
	// artifacts back to the run that created them.
	Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error)
}

// Registry maps work types to producers.
type Registry struct {
	producers map[models.WorkType]Producer
	fallback  Producer
}

// NewRegistry creates an empty registry with the given fallback producer.
func NewRegistry(fallback Producer) *Registry {
	return &Registry{
		producers: make(map[models.WorkType]Producer),
		fallback:  fallback,
	}
}

// NewDefaultRegistry wires all built-in producers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(&GenericProducer{})
	r.Register(models.WorkTypeResearch, &ResearchProducer{})
	r.Register(models.WorkTypeCode, &CodeProducer{})
	r.Register(models.WorkTypeAnalysis, &AnalysisProducer{})
	r.Register(models.WorkTypeCommunication, &CommunicationProducer{})
	r.Register(models.WorkTypeDecision, &DecisionProducer{})
	r.Register(models.WorkTypeGeneric, &GenericProducer{})
	return r
}

// Register binds a producer to a work type.
func (r *Registry) Register(workType models.WorkType, p Producer) {
	r.producers[workType] = p
}

// Dispatch returns the producer for a work type. Unrecognized types get the
// generic fallback.
func (r *Registry) Dispatch(workType models.WorkType) Producer {
	if p, ok := r.producers[workType]; ok {
		return p
	}
	return r.fallback
}

// newArtifact builds the common artifact shell every producer shares. Each
// artifact carries the execution id and timestamp in its metadata.
func newArtifact(subtask *models.Subtask, executionID string, artifactType models.ArtifactType, content string, metadata map[string]interface{}) models.Artifact {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["taskExecutionId"] = executionID
	metadata["executedAt"] = now.Format(time.RFC3339)

	return models.Artifact{
		ID:        uuid.New().String(),
		TaskID:    subtask.ID,
		Type:      artifactType,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}
