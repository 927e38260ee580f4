package producer

import (
	"context"
	"fmt"

	"github.com/millworks/millrun/internal/models"
)

// DecisionProducer emits a decision record for a decision subtask.
type DecisionProducer struct{}

// Name returns the producer identifier.
func (p *DecisionProducer) Name() string {
	return "decision"
}

// Produce generates a decision artifact covering rationale, alternatives
// and risks.
func (p *DecisionProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	content := fmt.Sprintf(`# Decision Record: %s

## Context
%s

## Decision
Proceed with the primary option identified during triage.

## Rationale
Because the primary option satisfies the stated constraints with the lowest
coordination cost, it is preferred over deferring or escalating.

## Alternatives Considered
- Alternative A: defer until more information is available. Rejected: the
  cost of waiting exceeds the expected information gain.
- Alternative B: escalate to the external orchestration layer. Rejected:
  the decision falls within this pipeline's authority.

## Risks
- Risk: the chosen option may need rework if upstream requirements shift.
  Mitigation: the decision is reversible; artifacts are versioned additively.
`, subtask.Title, subtask.Description)

	artifact := newArtifact(subtask, executionID, models.ArtifactTypeDecision, content, map[string]interface{}{
		"reversible": true,
	})
	artifact.QualityMetrics = &models.QualityMetrics{
		Accuracy:     70,
		Completeness: 80,
		Clarity:      80,
		Usefulness:   75,
	}

	return []models.Artifact{artifact}, nil
}
