package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptStatus is the lifecycle state of a candidate's run through a blueprint.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// StoredResponse is one saved answer together with the client-assigned
// sequence number used for last-write-wins conflict resolution.
type StoredResponse struct {
	Seq   int64           `json:"seq"`
	Value json.RawMessage `json:"value"`
}

// ResponseMap maps item id to the candidate's latest saved response.
// Unanswered items are absent, never present as null.
type ResponseMap map[string]StoredResponse

// Attempt is one candidate's in-progress or completed run through a
// Blueprint. StartedAt is server-assigned and immutable once set.
type Attempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	BlueprintID      uuid.UUID      `json:"blueprint_id" gorm:"type:uuid;not null;index"`
	Blueprint        Blueprint      `json:"blueprint,omitempty" gorm:"foreignKey:BlueprintID"`
	CandidateID      string         `json:"candidate_id" gorm:"index"`
	StartedAt        time.Time      `json:"started_at" gorm:"not null"`
	Status           AttemptStatus  `json:"status" gorm:"default:'in_progress';index"`
	Responses        ResponseMap    `json:"responses" gorm:"type:jsonb"`
	FullscreenExits  int            `json:"fullscreen_exits" gorm:"not null;default:0"`
	TabSwitches      int            `json:"tab_switches" gorm:"not null;default:0"`
	SubmittedAt      *time.Time     `json:"submitted_at,omitempty"`
	TimeSpentSeconds *int           `json:"time_spent_seconds,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IntegrityEventType names a proctoring-relevant presentation transition.
type IntegrityEventType string

const (
	EventFullscreenExit IntegrityEventType = "fullscreen_exit"
	EventTabSwitch      IntegrityEventType = "tab_switch"
)

// IntegrityEvent is an immutable, timestamped record of a single proctoring
// signal. Delivery is fire-and-forget, so the log is loss-tolerant; the
// attempt's counters remain the authoritative totals.
type IntegrityEvent struct {
	ID         uuid.UUID          `gorm:"type:uuid;primarykey" json:"id"`
	AttemptID  uuid.UUID          `json:"attempt_id" gorm:"type:uuid;not null;index"`
	Type       IntegrityEventType `json:"type" gorm:"not null"`
	OccurredAt time.Time          `json:"occurred_at" gorm:"not null"`
	CreatedAt  time.Time          `json:"created_at"`
}
