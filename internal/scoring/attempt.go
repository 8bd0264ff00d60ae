package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/model"
)

// Integrity counter thresholds for advisory flags. Flags never affect the
// score; they travel beside it for human judgment.
const (
	fullscreenExitRedThreshold = 3
	tabSwitchRedThreshold      = 5
)

// EvaluateAttempt grades a finalized attempt against its blueprint: every
// auto-gradable item is compared format-aware against the answer key,
// section sub-scores aggregate per section type, and the blueprint's
// validated WeightSet produces the total. Cut-score misses become knockout
// reasons on top of the fully computed score.
func EvaluateAttempt(att *model.Attempt, bp *model.Blueprint) *model.Evaluation {
	eval := &model.Evaluation{
		ID:                 uuid.New(),
		SubjectKind:        model.SubjectAttempt,
		SubjectID:          att.ID.String(),
		ScoreBreakdown:     model.ScoreMap{},
		KnockoutReasons:    model.StringList{},
		RedFlags:           model.StringList{},
		YellowFlags:        model.StringList{},
		Reasons:            model.StringList{},
		MustHavesSatisfied: model.StringList{},
		MissingMustHaves:   model.StringList{},
		SubjectSubmittedAt: att.SubmittedAt,
	}

	type bucket struct {
		earned   float64
		possible float64
	}
	buckets := map[model.SectionType]*bucket{}
	shortAnswerCount := 0
	totalItems := 0
	answered := 0

	for _, sec := range bp.Sections {
		b, ok := buckets[sec.Type]
		if !ok {
			b = &bucket{}
			buckets[sec.Type] = b
		}
		for _, item := range sec.Items {
			// The unanswered flag counts every item, graded or not.
			totalItems++
			if _, ok := att.Responses[item.ID.String()]; ok {
				answered++
			}
			if item.Format == model.FormatShortAnswer {
				shortAnswerCount++
				continue
			}
			earned, possible, graded := gradeItem(&item, att.Responses)
			if !graded {
				continue
			}
			b.earned += earned
			b.possible += possible
		}
	}

	weights := map[string]float64{}
	for sectionType := range bp.SectionTypes() {
		b := buckets[sectionType]
		score := 0.0
		if b != nil && b.possible > 0 {
			score = clampScore(100 * b.earned / b.possible)
		}
		key := string(sectionType)
		eval.ScoreBreakdown[key] = score
		weights[key] = bp.Weights.ForSectionType(sectionType)
		eval.Reasons = append(eval.Reasons, fmt.Sprintf("%s: %.1f/100 (weight %.2f)", key, score, weights[key]))
	}

	eval.ScoreTotal = weightedTotal(eval.ScoreBreakdown, weights)

	// Knockout pass: cut-score misses flag the attempt without suppressing
	// the computed breakdown above.
	if eval.ScoreTotal < bp.CutScores.Overall {
		eval.KnockoutReasons = append(eval.KnockoutReasons,
			fmt.Sprintf("overall score %.1f below cut score %.1f", eval.ScoreTotal, bp.CutScores.Overall))
	}
	for sectionType := range bp.SectionTypes() {
		cut := bp.CutScores.ForSectionType(sectionType)
		if cut == nil {
			continue
		}
		if score := eval.ScoreBreakdown[string(sectionType)]; score < *cut {
			eval.KnockoutReasons = append(eval.KnockoutReasons,
				fmt.Sprintf("%s score %.1f below section cut score %.1f", sectionType, score, *cut))
		}
	}
	eval.IsKnockout = len(eval.KnockoutReasons) > 0

	applyIntegrityFlags(eval, att)
	if shortAnswerCount > 0 {
		eval.YellowFlags = append(eval.YellowFlags,
			fmt.Sprintf("%d short-answer item(s) require human review", shortAnswerCount))
	}
	if unanswered := totalItems - answered; unanswered > 0 {
		eval.YellowFlags = append(eval.YellowFlags, fmt.Sprintf("%d item(s) left unanswered", unanswered))
	}

	return eval
}

func applyIntegrityFlags(eval *model.Evaluation, att *model.Attempt) {
	if att.FullscreenExits >= fullscreenExitRedThreshold {
		eval.RedFlags = append(eval.RedFlags, fmt.Sprintf("%d full-screen exits during the attempt", att.FullscreenExits))
	} else if att.FullscreenExits > 0 {
		eval.YellowFlags = append(eval.YellowFlags, fmt.Sprintf("%d full-screen exit(s) during the attempt", att.FullscreenExits))
	}
	if att.TabSwitches >= tabSwitchRedThreshold {
		eval.RedFlags = append(eval.RedFlags, fmt.Sprintf("%d tab switches during the attempt", att.TabSwitches))
	} else if att.TabSwitches > 0 {
		eval.YellowFlags = append(eval.YellowFlags, fmt.Sprintf("%d tab switch(es) during the attempt", att.TabSwitches))
	}
}

// gradeItem returns earned and possible points for one item. graded=false
// excludes the item from its section denominator (no answer key to grade
// against). A missing or malformed response earns 0 of the possible points.
func gradeItem(item *model.Item, responses model.ResponseMap) (earned, possible float64, graded bool) {
	if len(item.CorrectAnswer) == 0 {
		return 0, 0, false
	}
	key, err := answer.Decode(item.Format, json.RawMessage(item.CorrectAnswer), item.Options)
	if err != nil {
		log.Warn().Str("item_id", item.ID.String()).Err(err).Msg("answer key does not decode, excluding item from grading")
		return 0, 0, false
	}

	possible = float64(item.MaxPoints)
	stored, ok := responses[item.ID.String()]
	if !ok {
		return 0, possible, true
	}
	resp, err := answer.Decode(item.Format, stored.Value, item.Options)
	if err != nil {
		return 0, possible, true
	}

	switch item.Format {
	case model.FormatMCQ, model.FormatTrueFalse:
		if answer.Equal(resp, key) {
			earned = possible
		}
	case model.FormatMultiSelect:
		earned = possible * multiSelectCredit(resp.Choices, key.Choices)
	case model.FormatSJTRank:
		earned = possible * rankingCredit(resp.Ranking, key.Ranking)
	case model.FormatLikert:
		earned = possible * likertCredit(resp.Scale, key.Scale)
	}
	return earned, possible, true
}

// multiSelectCredit gives proportional credit: correct picks minus wrong
// picks over the size of the key set, floored at zero.
func multiSelectCredit(picks, key []string) float64 {
	if len(key) == 0 {
		return 0
	}
	keySet := make(map[string]bool, len(key))
	for _, k := range key {
		keySet[k] = true
	}
	hits, misses := 0, 0
	for _, p := range picks {
		if keySet[p] {
			hits++
		} else {
			misses++
		}
	}
	credit := float64(hits-misses) / float64(len(key))
	if credit < 0 {
		return 0
	}
	return credit
}

// rankingCredit is the fraction of positions matching the keyed order.
func rankingCredit(ranking, key []string) float64 {
	if len(key) == 0 || len(ranking) != len(key) {
		return 0
	}
	matches := 0
	for i := range key {
		if ranking[i] == key[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(key))
}

// likertCredit scales by distance from the advisory key on the 1-5 scale.
func likertCredit(value, key int) float64 {
	distance := value - key
	if distance < 0 {
		distance = -distance
	}
	credit := 1 - float64(distance)/4
	if credit < 0 {
		return 0
	}
	return credit
}
