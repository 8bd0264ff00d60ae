package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/khangtgr/assessly/internal/scoring"
)

// EvaluateProfilesRequest scores a batch of candidate profiles against one
// rubric in a single pass so ranks are comparable.
type EvaluateProfilesRequest struct {
	Rubric   scoring.Rubric             `json:"rubric" binding:"required"`
	Profiles []scoring.CandidateProfile `json:"profiles" binding:"required,min=1,dive"`
}

type EvaluationResponse struct {
	ID                 uuid.UUID          `json:"id"`
	BatchID            uuid.UUID          `json:"batch_id"`
	SubjectKind        string             `json:"subject_kind"`
	SubjectID          string             `json:"subject_id"`
	IsKnockout         bool               `json:"is_knockout"`
	KnockoutReasons    []string           `json:"knockout_reasons"`
	ScoreBreakdown     map[string]float64 `json:"score_breakdown"`
	ScoreTotal         float64            `json:"score_total"`
	MustHavesSatisfied []string           `json:"must_haves_satisfied"`
	MissingMustHaves   []string           `json:"missing_must_haves"`
	RedFlags           []string           `json:"red_flags"`
	YellowFlags        []string           `json:"yellow_flags"`
	Reasons            []string           `json:"reasons"`
	Rank               int                `json:"rank"`
	CreatedAt          time.Time          `json:"created_at"`
}

type EvaluationBatchResponse struct {
	BatchID     uuid.UUID            `json:"batch_id"`
	Evaluations []EvaluationResponse `json:"evaluations"`
}
