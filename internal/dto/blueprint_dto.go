package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/khangtgr/assessly/internal/model"
)

// ItemRequest is one authored question inside a section.
type ItemRequest struct {
	Format        string          `json:"format" binding:"required,oneof=mcq multi_select true_false short_answer sjt_rank likert"`
	Stem          string          `json:"stem" binding:"required"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Competencies  []string        `json:"competencies" binding:"required,min=1"`
	Difficulty    string          `json:"difficulty" binding:"required,oneof=E M H"`
	MaxPoints     int             `json:"max_points" binding:"required,min=1"`
	TimeSeconds   *int            `json:"time_seconds,omitempty"`
}

type SectionRequest struct {
	Type        string        `json:"type" binding:"required,oneof=skills aptitude work_style"`
	Title       string        `json:"title" binding:"required"`
	TimeMinutes int           `json:"time_minutes" binding:"required,min=1"`
	Weight      float64       `json:"weight" binding:"required"`
	Items       []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

type WeightSetRequest struct {
	Skills    float64 `json:"skills"`
	Aptitude  float64 `json:"aptitude"`
	WorkStyle float64 `json:"work_style"`
}

type CutScoreSetRequest struct {
	Overall   float64  `json:"overall"`
	Skills    *float64 `json:"skills,omitempty"`
	Aptitude  *float64 `json:"aptitude,omitempty"`
	WorkStyle *float64 `json:"work_style,omitempty"`
}

type AntiCheatRequest struct {
	Shuffle           bool   `json:"shuffle"`
	FullscreenMonitor bool   `json:"fullscreen_monitor"`
	Webcam            string `json:"webcam" binding:"omitempty,oneof=off consent_optional required"`
	IPLogging         bool   `json:"ip_logging"`
}

// CreateBlueprintRequest carries a full test definition. Structural binding
// rules reject the obviously malformed; cross-field rules (weight sums, cut
// scores, answer keys) run in the validator.
type CreateBlueprintRequest struct {
	Title           string             `json:"title" binding:"required"`
	DurationMinutes int                `json:"duration_minutes" binding:"required"`
	Sections        []SectionRequest   `json:"sections" binding:"required,dive"`
	Weights         WeightSetRequest   `json:"weights"`
	CutScores       CutScoreSetRequest `json:"cut_scores"`
	AntiCheat       AntiCheatRequest   `json:"anti_cheat"`
}

// GenerateBlueprintRequest asks the LLM to draft a blueprint from a role
// description. The draft still passes through the validator before save.
type GenerateBlueprintRequest struct {
	Role            string   `json:"role" binding:"required"`
	Seniority       string   `json:"seniority"`
	Competencies    []string `json:"competencies"`
	DurationMinutes int      `json:"duration_minutes"`
}

type ItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	Format        string          `json:"format"`
	Stem          string          `json:"stem"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Competencies  []string        `json:"competencies"`
	Difficulty    string          `json:"difficulty"`
	MaxPoints     int             `json:"max_points"`
	TimeSeconds   *int            `json:"time_seconds,omitempty"`
	Position      int             `json:"position"`
}

type SectionResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	TimeMinutes int            `json:"time_minutes"`
	Weight      float64        `json:"weight"`
	Position    int            `json:"position"`
	Items       []ItemResponse `json:"items,omitempty"`
}

type BlueprintResponse struct {
	ID              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	Status          string                `json:"status"`
	DurationMinutes int                   `json:"duration_minutes"`
	Sections        []SectionResponse     `json:"sections,omitempty"`
	Weights         model.WeightSet       `json:"weights"`
	CutScores       model.CutScoreSet     `json:"cut_scores"`
	AntiCheat       model.AntiCheatConfig `json:"anti_cheat"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type BlueprintSummaryResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	DurationMinutes int       `json:"duration_minutes"`
	ItemCount       int       `json:"item_count"`
	CreatedAt       time.Time `json:"created_at"`
}
