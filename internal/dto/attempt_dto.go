package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type StartAttemptRequest struct {
	BlueprintID uuid.UUID `json:"blueprint_id" binding:"required"`
	CandidateID string    `json:"candidate_id" binding:"required"`
}

type AttemptResponse struct {
	ID               uuid.UUID  `json:"id"`
	BlueprintID      uuid.UUID  `json:"blueprint_id"`
	CandidateID      string     `json:"candidate_id"`
	StartedAt        time.Time  `json:"started_at"`
	Status           string     `json:"status"`
	DurationMinutes  int        `json:"duration_minutes"`
	RemainingSeconds int        `json:"remaining_seconds"`
	FullscreenExits  int        `json:"fullscreen_exits"`
	TabSwitches      int        `json:"tab_switches"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
}

// DeliveryItemResponse is an item as the candidate sees it: the answer key
// never leaves the server.
type DeliveryItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Format      string    `json:"format"`
	Stem        string    `json:"stem"`
	Options     []string  `json:"options,omitempty"`
	MaxPoints   int       `json:"max_points"`
	TimeSeconds *int      `json:"time_seconds,omitempty"`
	Position    int       `json:"position"`
}

type DeliverySectionResponse struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	TimeMinutes int                    `json:"time_minutes"`
	Position    int                    `json:"position"`
	Items       []DeliveryItemResponse `json:"items"`
}

// AttemptQuestionsResponse is the delivery payload: the stripped question
// set plus previously saved responses for session rehydration.
type AttemptQuestionsResponse struct {
	AttemptID uuid.UUID                 `json:"attempt_id"`
	Sections  []DeliverySectionResponse `json:"sections"`
	Responses map[string]SavedResponse  `json:"responses"`
}

type SavedResponse struct {
	Seq   int64           `json:"seq"`
	Value json.RawMessage `json:"value"`
}

// SaveResponseRequest writes one answer. Seq is the client-assigned
// monotonic sequence number used for last-write-wins ordering.
type SaveResponseRequest struct {
	Seq   int64           `json:"seq" binding:"required,min=1"`
	Value json.RawMessage `json:"value" binding:"required"`
}

type IntegrityEventRequest struct {
	Type       string    `json:"type" binding:"required,oneof=fullscreen_exit tab_switch"`
	OccurredAt time.Time `json:"occurred_at" binding:"required"`
}

type SubmitAttemptRequest struct {
	TimeSpentSeconds int `json:"time_spent_seconds" binding:"min=0"`
	FullscreenExits  int `json:"fullscreen_exits" binding:"min=0"`
	TabSwitches      int `json:"tab_switches" binding:"min=0"`
}

type SubmitAttemptResponse struct {
	AttemptID    uuid.UUID  `json:"attempt_id"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	EvaluationID uuid.UUID  `json:"evaluation_id"`
}
