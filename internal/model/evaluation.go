package model

import (
	"time"

	"github.com/google/uuid"
)

// SubjectKind distinguishes what an evaluation was computed from.
type SubjectKind string

const (
	SubjectAttempt SubjectKind = "attempt"
	SubjectProfile SubjectKind = "profile"
)

// ScoreMap maps a category key to its 0-100 sub-score.
type ScoreMap map[string]float64

// Evaluation is the immutable output of one scoring pass over a subject.
// Re-scoring inserts a new row, never mutates an existing one.
type Evaluation struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primarykey" json:"id"`
	BatchID            uuid.UUID   `json:"batch_id" gorm:"type:uuid;index"`
	SubjectKind        SubjectKind `json:"subject_kind" gorm:"not null"`
	SubjectID          string      `json:"subject_id" gorm:"not null;index"`
	IsKnockout         bool        `json:"is_knockout"`
	KnockoutReasons    StringList  `json:"knockout_reasons" gorm:"type:jsonb"`
	ScoreBreakdown     ScoreMap    `json:"score_breakdown" gorm:"type:jsonb"`
	ScoreTotal         float64     `json:"score_total"`
	MustHavesSatisfied StringList  `json:"must_haves_satisfied" gorm:"type:jsonb"`
	MissingMustHaves   StringList  `json:"missing_must_haves" gorm:"type:jsonb"`
	RedFlags           StringList  `json:"red_flags" gorm:"type:jsonb"`
	YellowFlags        StringList  `json:"yellow_flags" gorm:"type:jsonb"`
	Reasons            StringList  `json:"reasons" gorm:"type:jsonb"`
	Rank               int         `json:"rank"`
	SubjectSubmittedAt *time.Time  `json:"subject_submitted_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}
