package evaluator

import (
	"strings"
	"testing"

	"github.com/millworks/millrun/internal/models"
)

func TestOverallScoreBounds(t *testing.T) {
	cases := []struct {
		name     string
		b        models.ScoreBreakdown
		expected int
	}{
		{"all zero", models.ScoreBreakdown{}, 0},
		{"all hundred", models.ScoreBreakdown{Completeness: 100, Quality: 100, Efficiency: 100, Innovation: 100}, 100},
		{"completeness only", models.ScoreBreakdown{Completeness: 100}, 35},
		{"quality only", models.ScoreBreakdown{Quality: 100}, 35},
		{"efficiency only", models.ScoreBreakdown{Efficiency: 100}, 20},
		{"innovation only", models.ScoreBreakdown{Innovation: 100}, 10},
		{"mixed", models.ScoreBreakdown{Completeness: 80, Quality: 90, Efficiency: 70, Innovation: 50}, 79},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := overallScore(tc.b)
			if got != tc.expected {
				t.Errorf("overallScore(%+v) = %d, want %d", tc.b, got, tc.expected)
			}
			if got < 0 || got > 100 {
				t.Errorf("overall score %d outside [0,100]", got)
			}
		})
	}
}

func TestScoreCompletenessWithoutMetrics(t *testing.T) {
	cases := []struct {
		artifacts int
		expected  int
	}{
		{0, 0},
		{1, 25},
		{2, 50},
		{4, 100},
		{6, 100},
	}

	for _, tc := range cases {
		artifacts := make([]models.Artifact, tc.artifacts)
		got := scoreCompleteness(nil, artifacts)
		if got != tc.expected {
			t.Errorf("scoreCompleteness(nil, %d artifacts) = %d, want %d", tc.artifacts, got, tc.expected)
		}
	}
}

func TestScoreCompletenessWeightedMetrics(t *testing.T) {
	task := &models.Task{
		SuccessMetrics: []models.SuccessMetric{
			{Description: "implement parser module", Weight: 0.5},
			{Description: "benchmark throughput numbers", Weight: 0.5},
		},
	}

	// Only the first metric's keywords appear in the artifact content.
	artifacts := []models.Artifact{
		{Content: "The parser module is implemented and wired in. implement parser module done."},
	}

	got := scoreCompleteness(task, artifacts)
	if got != 50 {
		t.Errorf("scoreCompleteness = %d, want 50 (one of two equal-weight metrics satisfied)", got)
	}
}

func TestScoreCompletenessPartialCredit(t *testing.T) {
	// Two keywords, one matched: satisfaction 0.5 earns 60% of the weight.
	task := &models.Task{
		SuccessMetrics: []models.SuccessMetric{
			{Description: "parser throughput", Weight: 1.0},
		},
	}
	artifacts := []models.Artifact{{Content: "the parser is done"}}

	got := scoreCompleteness(task, artifacts)
	if got != 60 {
		t.Errorf("scoreCompleteness = %d, want 60", got)
	}
}

func TestScoreCompletenessZeroTotalWeight(t *testing.T) {
	task := &models.Task{
		SuccessMetrics: []models.SuccessMetric{
			{Description: "anything", Weight: 0},
		},
	}
	if got := scoreCompleteness(task, nil); got != 50 {
		t.Errorf("scoreCompleteness with zero total weight = %d, want 50", got)
	}
}

func TestScoreQualityEmpty(t *testing.T) {
	if got := scoreQuality(nil); got != 0 {
		t.Errorf("scoreQuality(nil) = %d, want 0", got)
	}
}

func TestArtifactQualityCode(t *testing.T) {
	a := models.Artifact{
		Type:    models.ArtifactTypeCode,
		Content: strings.Repeat("x", 300),
		Metadata: map[string]interface{}{
			"testCoverage": 85,
			"complexity":   4,
		},
	}

	// base 70 + 15 (coverage > 80) + 5 (complexity <= 5) + 5 (length in range)
	if got := scoreQuality([]models.Artifact{a}); got != 95 {
		t.Errorf("code artifact quality = %d, want 95", got)
	}
}

func TestArtifactQualityResearchReport(t *testing.T) {
	a := models.Artifact{
		Type:    models.ArtifactTypeResearchReport,
		Content: strings.Repeat("r", 1200),
		Metadata: map[string]interface{}{
			"sources":    []string{"a", "b", "c"},
			"confidence": 90,
			"gaps":       []string{"open question"},
		},
	}

	// base 70 + 10 (3 sources) + 10 (confidence > 80) + 10 (length > 1000) + 5 (gaps)
	if got := scoreQuality([]models.Artifact{a}); got != 100 {
		t.Errorf("research artifact quality = %d, want 100", got)
	}
}

func TestArtifactQualityDocumentUsesOwnMetrics(t *testing.T) {
	a := models.Artifact{
		Type:    models.ArtifactTypeDocument,
		Content: "short",
		QualityMetrics: &models.QualityMetrics{
			Accuracy: 80, Completeness: 80, Clarity: 80, Usefulness: 80,
		},
	}

	if got := scoreQuality([]models.Artifact{a}); got != 80 {
		t.Errorf("document artifact quality = %d, want 80 (self-assessed)", got)
	}
}

func TestScoreEfficiency(t *testing.T) {
	taskWithEstimate := func(hours float64) *models.Task {
		return &models.Task{Subtasks: []models.Subtask{{EstimatedEffort: hours}}}
	}

	cases := []struct {
		name      string
		task      *models.Task
		timeSpent float64
		expected  int
	}{
		{"no task", nil, 5, 73},
		{"no time spent", taskWithEstimate(10), 0, 73},
		{"under estimate", taskWithEstimate(10), 7, 83},
		{"on estimate", taskWithEstimate(10), 10, 78},
		{"over estimate", taskWithEstimate(10), 15, 68},
		{"far over estimate", taskWithEstimate(10), 30, 63},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreEfficiency(tc.task, tc.timeSpent, 75)
			if got != tc.expected {
				t.Errorf("scoreEfficiency = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestScoreInnovation(t *testing.T) {
	if got := scoreInnovation(nil); got != 50 {
		t.Errorf("scoreInnovation(nil) = %d, want 50", got)
	}

	a := models.Artifact{
		Type:    models.ArtifactTypeDocument,
		Content: "a novel, innovative and creative approach",
	}
	if got := scoreInnovation([]models.Artifact{a}); got != 65 {
		t.Errorf("scoreInnovation with three novelty terms = %d, want 65", got)
	}

	code := models.Artifact{
		Type:    models.ArtifactTypeCode,
		Content: "plain",
		Metadata: map[string]interface{}{
			"evolutionHistory": "v1 -> v2",
			"complexity":       9,
		},
		RelatedArtifacts: []string{"a", "b", "c"},
	}
	// base 50 + 15 (evolution history) + 10 (complexity > 7) + 10 (related > 2)
	if got := scoreInnovation([]models.Artifact{code}); got != 85 {
		t.Errorf("scoreInnovation for evolved code = %d, want 85", got)
	}
}

func TestConfidenceBucket(t *testing.T) {
	cases := []struct {
		mean     int
		expected int
	}{
		{95, 95},
		{90, 95},
		{85, 85},
		{75, 75},
		{65, 65},
		{50, 50},
		{0, 50},
	}

	for _, tc := range cases {
		b := models.ScoreBreakdown{
			Completeness: tc.mean, Quality: tc.mean, Efficiency: tc.mean, Innovation: tc.mean,
		}
		if got := confidenceBucket(b); got != tc.expected {
			t.Errorf("confidenceBucket(mean %d) = %d, want %d", tc.mean, got, tc.expected)
		}
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		overall  int
		expected string
	}{
		{95, OutcomeSuccess},
		{80, OutcomeSuccess},
		{79, OutcomeAcceptable},
		{60, OutcomeAcceptable},
		{59, OutcomeNeedsImprovement},
		{0, OutcomeNeedsImprovement},
	}

	for _, tc := range cases {
		if got := ClassifyOutcome(tc.overall); got != tc.expected {
			t.Errorf("ClassifyOutcome(%d) = %q, want %q", tc.overall, got, tc.expected)
		}
	}
}

func TestBuildFeedbackBands(t *testing.T) {
	low := buildFeedback(models.ScoreBreakdown{Completeness: 40, Quality: 40, Efficiency: 40, Innovation: 40}, 40, 0)
	if len(low.Improvements) != 4 {
		t.Errorf("expected 4 improvement items for low scores, got %d", len(low.Improvements))
	}
	if len(low.NextActions) != 2 {
		t.Errorf("expected revise + follow-up next actions, got %d", len(low.NextActions))
	}
	found := false
	for _, c := range low.Challenges {
		if c == "no artifacts produced" {
			found = true
		}
	}
	if !found {
		t.Error("expected 'no artifacts produced' challenge when artifact count is zero")
	}

	high := buildFeedback(models.ScoreBreakdown{Completeness: 90, Quality: 90, Efficiency: 90, Innovation: 90}, 90, 3)
	if len(high.Improvements) != 0 {
		t.Errorf("expected no improvements for high scores, got %v", high.Improvements)
	}
	if len(high.Successes) != 4 {
		t.Errorf("expected 4 success items, got %d", len(high.Successes))
	}
	if len(high.NextActions) != 1 {
		t.Errorf("expected a single proceed action, got %v", high.NextActions)
	}
}
