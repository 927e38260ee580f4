package producer

import (
	"context"
	"fmt"
	"strings"

	"github.com/millworks/millrun/internal/models"
)

// CodeProducer emits a code skeleton for a code subtask.
type CodeProducer struct{}

// Name returns the producer identifier.
func (p *CodeProducer) Name() string {
	return "code"
}

// Produce generates a code artifact annotated with language, complexity and
// test-coverage metadata.
func (p *CodeProducer) Produce(ctx context.Context, subtask *models.Subtask, executionID string) ([]models.Artifact, error) {
	funcName := identifier(subtask.Title)

	content := fmt.Sprintf(`// Generated for subtask: %s
// %s

package generated

import "fmt"

// %s implements the requested behavior.
func %s() error {
	// Step 1: validate inputs before doing any work.
	// Step 2: perform the core operation described by the subtask.
	// Step 3: report the outcome to the caller.
	fmt.Println("executing: %s")
	return nil
}

func validate%s(input string) error {
	if input == "" {
		return fmt.Errorf("input must not be empty")
	}
	return nil
}
`, subtask.Title, subtask.Description, funcName, funcName, subtask.Title, funcName)

	artifact := newArtifact(subtask, executionID, models.ArtifactTypeCode, content, map[string]interface{}{
		"language":     "go",
		"complexity":   4,
		"testCoverage": 70,
	})
	artifact.QualityMetrics = &models.QualityMetrics{
		Accuracy:     70,
		Completeness: 65,
		Clarity:      80,
		Usefulness:   70,
	}

	return []models.Artifact{artifact}, nil
}

// identifier derives an exported Go identifier from a free-text title.
func identifier(title string) string {
	var b strings.Builder
	upper := true
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				b.WriteRune(r - 'a' + 'A')
				upper = false
			} else {
				b.WriteRune(r)
			}
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
			upper = false
		case r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "Run"
	}
	return b.String()
}
