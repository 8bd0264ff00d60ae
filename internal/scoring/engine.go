// Package scoring computes weighted multi-criteria evaluations with
// short-circuiting knockout rules. A knockout is a flag layered over the
// score, never a reason to skip computing it: reviewers always see both the
// score and the reason for exclusion.
package scoring

import (
	"sort"

	"github.com/khangtgr/assessly/internal/model"
)

// clampScore bounds a sub-score or total to [0,100], absorbing both
// floating-point rounding and adversarial out-of-range inputs.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// weightedTotal aggregates category sub-scores with their weights. Weights
// on any scale (1.0-sum or 100-sum) are normalized by their own sum; a
// zero-weight category contributes nothing but is still present in the
// breakdown for transparency.
func weightedTotal(breakdown model.ScoreMap, weights map[string]float64) float64 {
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		return 0
	}
	total := 0.0
	for key, score := range breakdown {
		if w := weights[key]; w > 0 {
			total += (w / sum) * clampScore(score)
		}
	}
	return clampScore(total)
}

// RankBatch assigns ranks across one scoring batch: score descending, ties
// broken by fewer missing must-haves, then by earliest subject submission.
func RankBatch(evals []*model.Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if a.ScoreTotal != b.ScoreTotal {
			return a.ScoreTotal > b.ScoreTotal
		}
		if len(a.MissingMustHaves) != len(b.MissingMustHaves) {
			return len(a.MissingMustHaves) < len(b.MissingMustHaves)
		}
		switch {
		case a.SubjectSubmittedAt == nil:
			return false
		case b.SubjectSubmittedAt == nil:
			return true
		default:
			return a.SubjectSubmittedAt.Before(*b.SubjectSubmittedAt)
		}
	})
	for i, e := range evals {
		e.Rank = i + 1
	}
}
