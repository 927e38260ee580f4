package producer

import (
	"context"
	"fmt"

	"github.com/millworks/millrun/internal/models"
)

// CommunicationProducer emits an outbound message for a communication
// subtask.
type CommunicationProducer struct{}

// Name returns the producer identifier.
func (p *CommunicationProducer) Name() string {
	return "communication"
}

// Produce generates a communication artifact with a professional register.
func (p *CommunicationProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	content := fmt.Sprintf(`Subject: %s

Hello,

Regarding the item "%s": %s

The work has been processed by the pipeline and the resulting artifacts are
available for review. Please let me know if anything needs clarification or
further detail.

Thank you for your time.

Best regards,
Millrun Pipeline
`, subtask.Title, subtask.Title, subtask.Description)

	artifact := newArtifact(subtask, executionID, models.ArtifactTypeCommunication, content, map[string]interface{}{
		"audience": "stakeholder",
	})
	artifact.QualityMetrics = &models.QualityMetrics{
		Accuracy:     80,
		Completeness: 70,
		Clarity:      85,
		Usefulness:   70,
	}

	return []models.Artifact{artifact}, nil
}
