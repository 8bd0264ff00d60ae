package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SectionType classifies what a section measures.
type SectionType string

const (
	SectionSkills    SectionType = "skills"
	SectionAptitude  SectionType = "aptitude"
	SectionWorkStyle SectionType = "work_style"
)

// ItemFormat is the question format of a single item.
type ItemFormat string

const (
	FormatMCQ         ItemFormat = "mcq"
	FormatMultiSelect ItemFormat = "multi_select"
	FormatTrueFalse   ItemFormat = "true_false"
	FormatShortAnswer ItemFormat = "short_answer"
	FormatSJTRank     ItemFormat = "sjt_rank"
	FormatLikert      ItemFormat = "likert"
)

// Difficulty buckets items for authoring and reporting.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "E"
	DifficultyMedium Difficulty = "M"
	DifficultyHard   Difficulty = "H"
)

// WebcamMode controls webcam proctoring for a blueprint.
type WebcamMode string

const (
	WebcamOff             WebcamMode = "off"
	WebcamConsentOptional WebcamMode = "consent_optional"
	WebcamRequired        WebcamMode = "required"
)

const (
	BlueprintStatusDraft  = "draft"
	BlueprintStatusActive = "active"
)

// WeightSet holds the per-section-type weights used for final aggregation.
// Components must sum to 1.0 within a small tolerance.
type WeightSet struct {
	Skills    float64 `json:"skills"`
	Aptitude  float64 `json:"aptitude"`
	WorkStyle float64 `json:"work_style"`
}

// Sum returns the aggregate of all components.
func (w WeightSet) Sum() float64 { return w.Skills + w.Aptitude + w.WorkStyle }

// ForSectionType returns the weight configured for a section type.
func (w WeightSet) ForSectionType(t SectionType) float64 {
	switch t {
	case SectionSkills:
		return w.Skills
	case SectionAptitude:
		return w.Aptitude
	case SectionWorkStyle:
		return w.WorkStyle
	}
	return 0
}

// CutScoreSet holds the minimum passing scores. Per-section entries are
// optional and only valid for section types actually present in the blueprint.
type CutScoreSet struct {
	Overall   float64  `json:"overall"`
	Skills    *float64 `json:"skills,omitempty"`
	Aptitude  *float64 `json:"aptitude,omitempty"`
	WorkStyle *float64 `json:"work_style,omitempty"`
}

// ForSectionType returns the per-section cut score, if configured.
func (c CutScoreSet) ForSectionType(t SectionType) *float64 {
	switch t {
	case SectionSkills:
		return c.Skills
	case SectionAptitude:
		return c.Aptitude
	case SectionWorkStyle:
		return c.WorkStyle
	}
	return nil
}

// AntiCheatConfig captures the integrity monitoring switches for a test.
type AntiCheatConfig struct {
	Shuffle           bool       `json:"shuffle"`
	FullscreenMonitor bool       `json:"fullscreen_monitor"`
	Webcam            WebcamMode `json:"webcam"`
	IPLogging         bool       `json:"ip_logging"`
}

// Blueprint is the authored definition of a test. Immutable once activated.
type Blueprint struct {
	ID              uuid.UUID       `gorm:"type:uuid;primarykey" json:"id"`
	Title           string          `json:"title" gorm:"not null"`
	Status          string          `json:"status" gorm:"default:'draft';index"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null"`
	Sections        []Section       `json:"sections,omitempty" gorm:"foreignKey:BlueprintID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Weights         WeightSet       `json:"weights" gorm:"type:jsonb"`
	CutScores       CutScoreSet     `json:"cut_scores" gorm:"type:jsonb"`
	AntiCheat       AntiCheatConfig `json:"anti_cheat" gorm:"type:jsonb"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// SectionTypes returns the set of section types present in the blueprint.
func (b *Blueprint) SectionTypes() map[SectionType]bool {
	present := make(map[SectionType]bool, len(b.Sections))
	for _, s := range b.Sections {
		present[s.Type] = true
	}
	return present
}

// ItemByID looks an item up across all sections.
func (b *Blueprint) ItemByID(itemID uuid.UUID) (*Item, bool) {
	for si := range b.Sections {
		for ii := range b.Sections[si].Items {
			if b.Sections[si].Items[ii].ID == itemID {
				return &b.Sections[si].Items[ii], true
			}
		}
	}
	return nil, false
}

// Section is an ordered, timed, weighted group of items within a blueprint.
type Section struct {
	ID          uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	BlueprintID uuid.UUID      `json:"blueprint_id" gorm:"type:uuid;not null;index"`
	Type        SectionType    `json:"type" gorm:"not null"`
	Title       string         `json:"title" gorm:"not null"`
	TimeMinutes int            `json:"time_minutes" gorm:"not null"`
	Weight      float64        `json:"weight" gorm:"not null"`
	Position    int            `json:"position" gorm:"not null"`
	Items       []Item         `json:"items,omitempty" gorm:"foreignKey:SectionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Item is a single question. CorrectAnswer is format-dependent and advisory
// (or absent) for work-style items.
type Item struct {
	ID            uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	SectionID     uuid.UUID      `json:"section_id" gorm:"type:uuid;not null;index"`
	Format        ItemFormat     `json:"format" gorm:"not null"`
	Stem          string         `json:"stem" gorm:"type:text;not null"`
	Options       StringList     `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectAnswer RawDocument    `json:"correct_answer,omitempty" gorm:"type:jsonb"`
	Competencies  StringList     `json:"competencies" gorm:"type:jsonb"`
	Difficulty    Difficulty     `json:"difficulty" gorm:"not null"`
	MaxPoints     int            `json:"max_points" gorm:"not null"`
	TimeSeconds   *int           `json:"time_seconds,omitempty"`
	Position      int            `json:"position" gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// RequiresOptions reports whether the format needs an authored option list.
// true_false has a fixed two-option domain and carries no options.
func (f ItemFormat) RequiresOptions() bool {
	switch f {
	case FormatMCQ, FormatMultiSelect, FormatSJTRank, FormatLikert:
		return true
	}
	return false
}

// AutoGraded reports whether the format is scored against an answer key.
func (f ItemFormat) AutoGraded() bool {
	switch f {
	case FormatMCQ, FormatMultiSelect, FormatTrueFalse, FormatSJTRank, FormatLikert:
		return true
	}
	return false
}
