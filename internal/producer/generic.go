package producer

import (
	"context"
	"fmt"

	"github.com/millworks/millrun/internal/models"
)

// GenericProducer is the fallback for unrecognized work types. It always
// yields a document artifact so dispatch never hard-errors.
type GenericProducer struct{}

// Name returns the producer identifier.
func (p *GenericProducer) Name() string {
	return "generic"
}

// Produce generates a plain document describing the work performed.
func (p *GenericProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	content := fmt.Sprintf(`# %s

%s

This work item did not match a specialized producer and was handled by the
generic fallback. The description above was recorded as a document artifact
so downstream evaluation can still score the output.
`, subtask.Title, subtask.Description)

	artifact := newArtifact(subtask, executionID, models.ArtifactTypeDocument, content, map[string]interface{}{
		"fallback": true,
	})
	artifact.QualityMetrics = &models.QualityMetrics{
		Accuracy:     70,
		Completeness: 60,
		Clarity:      75,
		Usefulness:   60,
	}

	return []models.Artifact{artifact}, nil
}
