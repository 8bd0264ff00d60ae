// Package blueprint validates candidate blueprints against the authoring
// invariants before they are persisted or activated. Validation is pure and
// collects every violation rather than stopping at the first.
package blueprint

import (
	"fmt"
	"math"
	"strings"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/model"
)

const (
	MinDurationMinutes = 5
	MaxDurationMinutes = 240

	// WeightSet components must sum to 1.0 within this tolerance.
	WeightSetTolerance = 0.01
	// Authoring-time section weights must sum to 100 within this tolerance.
	SectionWeightTolerance = 0.1
)

// Kind is a stable machine-readable identifier for a violated invariant, so a
// caller can highlight every offending field at once.
type Kind string

const (
	KindDurationOutOfRange      Kind = "duration_out_of_range"
	KindNoSections              Kind = "no_sections"
	KindSectionTypeUnknown      Kind = "section_type_unknown"
	KindSectionWeightOutOfRange Kind = "section_weight_out_of_range"
	KindSectionTimeTooShort     Kind = "section_time_too_short"
	KindSectionEmpty            Kind = "section_empty"
	KindItemFormatUnknown       Kind = "item_format_unknown"
	KindItemDifficultyUnknown   Kind = "item_difficulty_unknown"
	KindItemOptionsMissing      Kind = "item_options_missing"
	KindItemOptionsTooFew       Kind = "item_options_too_few"
	KindItemOptionBlank         Kind = "item_option_blank"
	KindItemAnswerMissing       Kind = "item_answer_missing"
	KindItemAnswerInvalid       Kind = "item_answer_invalid"
	KindItemCompetenciesMissing Kind = "item_competencies_missing"
	KindItemMaxPointsTooLow     Kind = "item_max_points_too_low"
	KindItemTimeTooShort        Kind = "item_time_too_short"
	KindWeightComponentRange    Kind = "weight_component_out_of_range"
	KindWeightSetSum            Kind = "weight_set_sum"
	KindSectionWeightSum        Kind = "section_weight_sum"
	KindCutScoreOutOfRange      Kind = "cut_score_out_of_range"
	KindCutScoreWithoutSection  Kind = "cut_score_without_section"
	KindWebcamModeUnknown       Kind = "webcam_mode_unknown"
)

// Violation is one violated invariant, addressed to the offending field.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s (%s)", v.Field, v.Message, v.Kind)
}

// Validate checks a blueprint against all authoring invariants and returns
// the full list of violations, in check order. An empty result means valid.
func Validate(bp *model.Blueprint) []Violation {
	var out []Violation
	add := func(kind Kind, field, message string, args ...interface{}) {
		out = append(out, Violation{Kind: kind, Field: field, Message: fmt.Sprintf(message, args...)})
	}

	if bp.DurationMinutes < MinDurationMinutes || bp.DurationMinutes > MaxDurationMinutes {
		add(KindDurationOutOfRange, "duration_minutes",
			"duration must be between %d and %d minutes, got %d", MinDurationMinutes, MaxDurationMinutes, bp.DurationMinutes)
	}

	if len(bp.Sections) == 0 {
		add(KindNoSections, "sections", "a blueprint requires at least one section")
	}

	for si, sec := range bp.Sections {
		field := fmt.Sprintf("sections[%d]", si)
		switch sec.Type {
		case model.SectionSkills, model.SectionAptitude, model.SectionWorkStyle:
		default:
			add(KindSectionTypeUnknown, field+".type", "unknown section type %q", sec.Type)
		}
		if sec.Weight < 0 || sec.Weight > 100 {
			add(KindSectionWeightOutOfRange, field+".weight", "section weight must be within [0,100], got %g", sec.Weight)
		}
		if sec.TimeMinutes < 1 {
			add(KindSectionTimeTooShort, field+".time_minutes", "section time must be at least 1 minute, got %d", sec.TimeMinutes)
		}
		if len(sec.Items) == 0 {
			add(KindSectionEmpty, field+".items", "each section requires at least one item")
		}
		for ii, item := range sec.Items {
			validateItem(&item, sec.Type, fmt.Sprintf("%s.items[%d]", field, ii), add)
		}
	}

	validateWeightComponent(bp.Weights.Skills, "weights.skills", add)
	validateWeightComponent(bp.Weights.Aptitude, "weights.aptitude", add)
	validateWeightComponent(bp.Weights.WorkStyle, "weights.work_style", add)
	if sum := bp.Weights.Sum(); math.Abs(sum-1.0) > WeightSetTolerance {
		add(KindWeightSetSum, "weights", "weight set must sum to 1.0 (±%g), got %g", WeightSetTolerance, sum)
	}

	if len(bp.Sections) > 0 {
		sum := 0.0
		for _, sec := range bp.Sections {
			sum += sec.Weight
		}
		if math.Abs(sum-100.0) > SectionWeightTolerance {
			add(KindSectionWeightSum, "sections", "section weights must sum to 100 (±%g), got %g", SectionWeightTolerance, sum)
		}
	}

	validateCutScores(bp, add)

	switch bp.AntiCheat.Webcam {
	case model.WebcamOff, model.WebcamConsentOptional, model.WebcamRequired, "":
	default:
		add(KindWebcamModeUnknown, "anti_cheat.webcam", "unknown webcam mode %q", bp.AntiCheat.Webcam)
	}

	return out
}

func validateItem(item *model.Item, sectionType model.SectionType, field string, add func(Kind, string, string, ...interface{})) {
	switch item.Format {
	case model.FormatMCQ, model.FormatMultiSelect, model.FormatTrueFalse,
		model.FormatShortAnswer, model.FormatSJTRank, model.FormatLikert:
	default:
		add(KindItemFormatUnknown, field+".format", "unknown item format %q", item.Format)
		return
	}

	if item.Format.RequiresOptions() {
		if len(item.Options) == 0 {
			add(KindItemOptionsMissing, field+".options", "%s items require an option list", item.Format)
		} else if len(item.Options) < 2 {
			add(KindItemOptionsTooFew, field+".options", "%s items require at least 2 options, got %d", item.Format, len(item.Options))
		}
		for oi, opt := range item.Options {
			if strings.TrimSpace(opt) == "" {
				add(KindItemOptionBlank, fmt.Sprintf("%s.options[%d]", field, oi), "options must be non-empty")
			}
		}
	}

	// Work-style answers are advisory; everything auto-graded elsewhere needs
	// a key that decodes under the item's own format.
	if item.Format.AutoGraded() && sectionType != model.SectionWorkStyle {
		if len(item.CorrectAnswer) == 0 {
			add(KindItemAnswerMissing, field+".correct_answer", "%s items require a correct answer", item.Format)
		}
	}
	if len(item.CorrectAnswer) > 0 && item.Format.AutoGraded() {
		if _, err := answer.Decode(item.Format, []byte(item.CorrectAnswer), item.Options); err != nil {
			add(KindItemAnswerInvalid, field+".correct_answer", "correct answer does not match the %s format: %v", item.Format, err)
		}
	}

	if len(item.Competencies) == 0 {
		add(KindItemCompetenciesMissing, field+".competencies", "items require at least one competency")
	}
	if item.MaxPoints < 1 {
		add(KindItemMaxPointsTooLow, field+".max_points", "max points must be at least 1, got %d", item.MaxPoints)
	}
	if item.TimeSeconds != nil && *item.TimeSeconds < 1 {
		add(KindItemTimeTooShort, field+".time_seconds", "item time must be at least 1 second, got %d", *item.TimeSeconds)
	}

	switch item.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		add(KindItemDifficultyUnknown, field+".difficulty", "unknown difficulty %q", item.Difficulty)
	}
}

func validateWeightComponent(w float64, field string, add func(Kind, string, string, ...interface{})) {
	if w < 0 || w > 1 {
		add(KindWeightComponentRange, field, "weight component must be within [0,1], got %g", w)
	}
}

func validateCutScores(bp *model.Blueprint, add func(Kind, string, string, ...interface{})) {
	cs := bp.CutScores
	if cs.Overall < 0 || cs.Overall > 100 {
		add(KindCutScoreOutOfRange, "cut_scores.overall", "cut score must be within [0,100], got %g", cs.Overall)
	}
	present := bp.SectionTypes()
	perType := []struct {
		t     model.SectionType
		score *float64
		field string
	}{
		{model.SectionSkills, cs.Skills, "cut_scores.skills"},
		{model.SectionAptitude, cs.Aptitude, "cut_scores.aptitude"},
		{model.SectionWorkStyle, cs.WorkStyle, "cut_scores.work_style"},
	}
	for _, p := range perType {
		if p.score == nil {
			continue
		}
		if *p.score < 0 || *p.score > 100 {
			add(KindCutScoreOutOfRange, p.field, "cut score must be within [0,100], got %g", *p.score)
		}
		// A cut score for an absent section type is an authoring error, not
		// something to ignore silently.
		if !present[p.t] {
			add(KindCutScoreWithoutSection, p.field, "cut score configured for section type %q but the blueprint has no such section", p.t)
		}
	}
}
