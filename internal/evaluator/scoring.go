package evaluator

import (
	"math"
	"strings"

	"github.com/millworks/millrun/internal/models"
)

// Dimension weights. They must sum to exactly 1.0.
const (
	weightCompleteness = 0.35
	weightQuality      = 0.35
	weightEfficiency   = 0.20
	weightInnovation   = 0.10
)

// analyticalVocabulary is the fixed 10-word vocabulary the analysis quality
// heuristic matches against.
var analyticalVocabulary = []string{
	"analysis", "pattern", "trend", "comparison", "correlation",
	"insight", "evaluate", "assess", "examine", "relationship",
}

// noveltyVocabulary is the fixed 10-word vocabulary the innovation
// heuristic matches against.
var noveltyVocabulary = []string{
	"novel", "innovative", "creative", "original", "experimental",
	"prototype", "unconventional", "breakthrough", "adaptive", "emergent",
}

var (
	rationaleMarkers    = []string{"rationale", "because", "reasoning"}
	alternativesMarkers = []string{"alternative", "option", "considered"}
	riskMarkers         = []string{"risk", "mitigation", "downside"}
	professionalMarkers = []string{"please", "thank you", "regards", "sincerely"}
	conclusionMarkers   = []string{"summary", "conclusion"}
)

// overallScore derives the weighted scalar from the four dimension scores.
// For inputs in [0,100] the result is always in [0,100].
func overallScore(b models.ScoreBreakdown) int {
	weighted := weightCompleteness*float64(b.Completeness) +
		weightQuality*float64(b.Quality) +
		weightEfficiency*float64(b.Efficiency) +
		weightInnovation*float64(b.Innovation)
	return int(math.Round(weighted))
}

// scoreCompleteness measures how much of the task's success criteria the
// artifacts satisfy. Without metrics it falls back to artifact count.
func scoreCompleteness(task *models.Task, artifacts []models.Artifact) int {
	if task == nil || len(task.SuccessMetrics) == 0 {
		return clampScore(math.Min(100, float64(len(artifacts))*25))
	}

	var totalWeight, achievedWeight float64
	for _, metric := range task.SuccessMetrics {
		if metric.Weight <= 0 {
			continue
		}
		totalWeight += metric.Weight

		satisfaction := metricSatisfaction(metric, artifacts)
		switch {
		case satisfaction >= 0.8:
			achievedWeight += metric.Weight
		case satisfaction >= 0.5:
			achievedWeight += 0.6 * metric.Weight
		}
	}

	if totalWeight == 0 {
		return 50
	}
	return clampScore(achievedWeight / totalWeight * 100)
}

// metricSatisfaction estimates how well the artifacts cover one success
// metric, as the fraction of the metric's keywords the artifact contents
// mention.
func metricSatisfaction(metric models.SuccessMetric, artifacts []models.Artifact) float64 {
	keywords := keywordsOf(metric.Description)
	if len(keywords) == 0 {
		if len(artifacts) > 0 {
			return 1
		}
		return 0
	}

	var combined strings.Builder
	for _, a := range artifacts {
		combined.WriteString(strings.ToLower(a.Content))
		combined.WriteString("\n")
	}
	text := combined.String()

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// keywordsOf extracts the significant lowercase words of a description.
func keywordsOf(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var keywords []string
	for _, f := range fields {
		if len(f) >= 4 {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

// scoreQuality averages a per-artifact heuristic keyed by artifact type.
// Zero when no artifacts exist.
func scoreQuality(artifacts []models.Artifact) int {
	if len(artifacts) == 0 {
		return 0
	}

	var total float64
	for i := range artifacts {
		total += artifactQuality(&artifacts[i])
	}
	return clampScore(total / float64(len(artifacts)))
}

// artifactQuality scores one artifact from a base of 70 with type-specific
// adjustments.
func artifactQuality(a *models.Artifact) float64 {
	score := 70.0
	content := strings.ToLower(a.Content)
	length := len(a.Content)

	switch a.Type {
	case models.ArtifactTypeCode:
		if coverage, ok := a.MetaFloat("testCoverage"); ok {
			if coverage > 80 {
				score += 15
			} else if coverage > 60 {
				score += 10
			}
		}
		if complexity, ok := a.MetaFloat("complexity"); ok {
			if complexity <= 5 {
				score += 5
			} else if complexity > 8 {
				score -= 5
			}
		}
		if length > 100 && length < 1000 {
			score += 5
		} else if length > 5000 {
			score -= 5
		}

	case models.ArtifactTypeResearchReport:
		if n := len(a.MetaStrings("sources")); n > 5 {
			score += 15
		} else if n > 2 {
			score += 10
		}
		if confidence, ok := a.MetaFloat("confidence"); ok && confidence > 80 {
			score += 10
		}
		if length > 1000 {
			score += 10
		}
		if len(a.MetaStrings("gaps")) > 0 {
			score += 5
		}

	case models.ArtifactTypeAnalysis:
		matched := 0
		for _, term := range analyticalVocabulary {
			if strings.Contains(content, term) {
				matched++
			}
		}
		score += math.Min(20, float64(matched)*2)
		if containsAny(content, conclusionMarkers) {
			score += 10
		}

	case models.ArtifactTypeDecision:
		if containsAny(content, rationaleMarkers) {
			score += 15
		}
		if containsAny(content, alternativesMarkers) {
			score += 10
		}
		if containsAny(content, riskMarkers) {
			score += 10
		}

	case models.ArtifactTypeCommunication:
		if length > 100 && length < 2000 {
			score += 10
		}
		// First match only.
		if containsAny(content, professionalMarkers) {
			score += 5
		}

	default:
		// Documents and anything else: trust the artifact's own estimate
		// when it carries one.
		if a.QualityMetrics != nil {
			return a.QualityMetrics.Average()
		}
		if length > 100 {
			score += 10
		}
		if length > 500 {
			score += 10
		}
	}

	return clamp(score)
}

// scoreEfficiency starts from a base of 70, adjusts by the actual/estimated
// time ratio when the task resolves with an estimate, and averages the
// result with the resource-efficiency sub-score.
func scoreEfficiency(task *models.Task, timeSpentHours, resourceScore float64) int {
	base := 70.0

	if task != nil {
		if estimated := task.EstimatedHours(); estimated > 0 && timeSpentHours > 0 {
			ratio := timeSpentHours / estimated
			switch {
			case ratio <= 0.8:
				base += 20
			case ratio <= 1.2:
				base += 10
			case ratio <= 2.0:
				base -= 10
			default:
				base -= 20
			}
		}
	}

	return clampScore((base + resourceScore) / 2)
}

// scoreInnovation averages a per-artifact novelty heuristic from a base of
// 50. Default 50 when no artifacts exist.
func scoreInnovation(artifacts []models.Artifact) int {
	if len(artifacts) == 0 {
		return 50
	}

	var total float64
	for i := range artifacts {
		a := &artifacts[i]
		score := 50.0
		content := strings.ToLower(a.Content)

		for _, term := range noveltyVocabulary {
			if strings.Contains(content, term) {
				score += 5
			}
		}
		if a.Type == models.ArtifactTypeCode {
			if history, ok := a.MetaString("evolutionHistory"); ok && history != "" {
				score += 15
			}
		}
		if complexity, ok := a.MetaFloat("complexity"); ok && complexity > 7 {
			score += 10
		}
		if len(a.RelatedArtifacts) > 2 {
			score += 10
		}
		total += clamp(score)
	}

	return clampScore(total / float64(len(artifacts)))
}

// confidenceBucket maps the mean of the four dimension scores into the
// fixed confidence buckets.
func confidenceBucket(b models.ScoreBreakdown) int {
	mean := float64(b.Completeness+b.Quality+b.Efficiency+b.Innovation) / 4
	switch {
	case mean >= 90:
		return 95
	case mean >= 80:
		return 85
	case mean >= 70:
		return 75
	case mean >= 60:
		return 65
	default:
		return 50
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// clamp bounds a raw score to the closed range [0,100].
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// clampScore clamps and rounds to the nearest integer.
func clampScore(score float64) int {
	return int(math.Round(clamp(score)))
}
