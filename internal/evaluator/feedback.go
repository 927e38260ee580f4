package evaluator

import (
	"fmt"

	"github.com/millworks/millrun/internal/models"
)

// Outcome bands for the status-classification hook.
const (
	OutcomeSuccess          = "success"
	OutcomeAcceptable       = "acceptable"
	OutcomeNeedsImprovement = "needs improvement"
)

// ClassifyOutcome bands an overall score for the best-effort status hook.
// It never mutates the task itself.
func ClassifyOutcome(overall int) string {
	switch {
	case overall >= 80:
		return OutcomeSuccess
	case overall >= 60:
		return OutcomeAcceptable
	default:
		return OutcomeNeedsImprovement
	}
}

// feedbackReport holds everything the banded commentary produces.
type feedbackReport struct {
	Feedback     string
	Improvements []string
	NextActions  []string
	Challenges   []string
	Successes    []string
}

// buildFeedback generates the banded commentary for an evaluation.
func buildFeedback(b models.ScoreBreakdown, overall, artifactCount int) feedbackReport {
	var r feedbackReport

	switch {
	case overall >= 90:
		r.Feedback = fmt.Sprintf("Excellent work: overall score %d. The artifacts meet or exceed every dimension.", overall)
	case overall >= 80:
		r.Feedback = fmt.Sprintf("Very good result: overall score %d. Minor refinements would make this excellent.", overall)
	case overall >= 70:
		r.Feedback = fmt.Sprintf("Good result: overall score %d. The work is solid with clear room to improve.", overall)
	case overall >= 60:
		r.Feedback = fmt.Sprintf("Acceptable result: overall score %d. Several dimensions fall short of the bar.", overall)
	default:
		r.Feedback = fmt.Sprintf("The work needs significant improvement: overall score %d.", overall)
	}

	if b.Completeness < 80 {
		r.Improvements = append(r.Improvements, "Address the unmet success criteria to raise completeness.")
	} else {
		r.Successes = append(r.Successes, "Success criteria substantially met.")
	}
	if b.Quality < 80 {
		r.Improvements = append(r.Improvements, "Strengthen artifact quality: depth, structure, and supporting detail.")
	} else {
		r.Successes = append(r.Successes, "Artifact quality meets the bar.")
	}
	if b.Efficiency < 70 {
		r.Improvements = append(r.Improvements, "Reduce time and resource usage relative to the estimate.")
	} else {
		r.Successes = append(r.Successes, "Work completed efficiently.")
	}
	if b.Innovation < 60 {
		r.Improvements = append(r.Improvements, "Explore alternative approaches; the output follows well-worn paths.")
	} else {
		r.Successes = append(r.Successes, "Approach shows genuine novelty.")
	}

	if overall < 70 {
		r.NextActions = append(r.NextActions,
			"Revise the artifacts and request re-evaluation.",
			"Queue a follow-up subtask targeting the weakest dimension.")
	} else {
		r.NextActions = append(r.NextActions, "Proceed to the next planned subtask.")
	}

	if artifactCount == 0 {
		r.Challenges = append(r.Challenges, "no artifacts produced")
	}
	if overall < 60 {
		r.Challenges = append(r.Challenges, "overall score below the acceptable threshold")
	}

	return r
}
