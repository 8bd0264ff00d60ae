package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khangtgr/assessly/internal/model"
)

// CandidateProfile is an externally-submitted candidate record, the
// CV-screening subject variant.
type CandidateProfile struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Skills            []string   `json:"skills"`
	YearsExperience   float64    `json:"years_experience"`
	EducationLevel    string     `json:"education_level"`
	Achievements      []string   `json:"achievements"`
	Location          string     `json:"location"`
	WorkAuthorization bool       `json:"work_authorization"`
	ExpectedSalary    float64    `json:"expected_salary"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
}

// KnockoutPolicy selects which rubric conditions disqualify a candidate.
// A triggered knockout flags the subject; the score is still fully computed.
type KnockoutPolicy struct {
	MissingMustHave     bool `json:"missing_must_have"`
	NoWorkAuthorization bool `json:"no_work_authorization"`
	SalaryAboveMax      bool `json:"salary_above_max"`
	BelowMinExperience  bool `json:"below_min_experience"`
}

// Rubric is the must-have/nice-to-have/knockout configuration a batch of
// candidate profiles is scored against.
type Rubric struct {
	MustHaveSkills           []string           `json:"must_have_skills"`
	NiceToHaveSkills         []string           `json:"nice_to_have_skills"`
	MinYearsExperience       float64            `json:"min_years_experience"`
	PreferredYearsExperience float64            `json:"preferred_years_experience"`
	RequiredEducation        string             `json:"required_education"`
	Locations                []string           `json:"locations"`
	RequireAuthorization     bool               `json:"require_authorization"`
	MaxSalary                float64            `json:"max_salary"`
	Weights                  map[string]float64 `json:"weights"`
	Knockout                 KnockoutPolicy     `json:"knockout"`
}

// Profile scoring category keys. Every category is computed for every
// subject, even at zero weight, so the breakdown stays transparent.
const (
	CategorySkills       = "skills"
	CategoryExperience   = "experience"
	CategoryAchievements = "achievements"
	CategoryEducation    = "education"
	CategoryLocation     = "location"
	CategorySalary       = "salary"
)

// categoryScorer produces a bounded 0-100 sub-score plus explanatory
// reasons. The "how" is pluggable per category.
type categoryScorer struct {
	key   string
	score func(p CandidateProfile, r Rubric) (float64, []string)
}

// ProfileScorer evaluates candidate profiles against a rubric.
type ProfileScorer struct {
	categories []categoryScorer
}

// NewProfileScorer builds the default category set.
func NewProfileScorer() *ProfileScorer {
	return &ProfileScorer{categories: []categoryScorer{
		{CategorySkills, scoreSkills},
		{CategoryExperience, scoreExperience},
		{CategoryAchievements, scoreAchievements},
		{CategoryEducation, scoreEducation},
		{CategoryLocation, scoreLocation},
		{CategorySalary, scoreSalary},
	}}
}

// Evaluate scores one profile. Rank is assigned later by the batch.
func (s *ProfileScorer) Evaluate(p CandidateProfile, r Rubric) *model.Evaluation {
	eval := &model.Evaluation{
		ID:                 uuid.New(),
		SubjectKind:        model.SubjectProfile,
		SubjectID:          p.ID,
		ScoreBreakdown:     model.ScoreMap{},
		KnockoutReasons:    model.StringList{},
		RedFlags:           model.StringList{},
		YellowFlags:        model.StringList{},
		Reasons:            model.StringList{},
		MustHavesSatisfied: model.StringList{},
		MissingMustHaves:   model.StringList{},
		SubjectSubmittedAt: p.SubmittedAt,
	}

	for _, must := range r.MustHaveSkills {
		if hasSkill(p.Skills, must) {
			eval.MustHavesSatisfied = append(eval.MustHavesSatisfied, must)
		} else {
			eval.MissingMustHaves = append(eval.MissingMustHaves, must)
		}
	}

	// Knockout pass first; scoring still runs below so reviewers always see
	// both the score and the reason for exclusion.
	s.applyKnockouts(eval, p, r)

	for _, cat := range s.categories {
		score, reasons := cat.score(p, r)
		eval.ScoreBreakdown[cat.key] = clampScore(score)
		eval.Reasons = append(eval.Reasons, reasons...)
	}
	eval.ScoreTotal = weightedTotal(eval.ScoreBreakdown, r.Weights)

	s.applyFlags(eval, p, r)
	return eval
}

// EvaluateBatch scores every profile and assigns ranks across the batch.
func (s *ProfileScorer) EvaluateBatch(profiles []CandidateProfile, r Rubric) []*model.Evaluation {
	batchID := uuid.New()
	evals := make([]*model.Evaluation, 0, len(profiles))
	for _, p := range profiles {
		eval := s.Evaluate(p, r)
		eval.BatchID = batchID
		evals = append(evals, eval)
	}
	RankBatch(evals)
	return evals
}

func (s *ProfileScorer) applyKnockouts(eval *model.Evaluation, p CandidateProfile, r Rubric) {
	if r.Knockout.MissingMustHave && len(eval.MissingMustHaves) > 0 {
		eval.KnockoutReasons = append(eval.KnockoutReasons,
			fmt.Sprintf("missing must-have skills: %s", strings.Join(eval.MissingMustHaves, ", ")))
	}
	if r.Knockout.NoWorkAuthorization && r.RequireAuthorization && !p.WorkAuthorization {
		eval.KnockoutReasons = append(eval.KnockoutReasons, "no work authorization")
	}
	if r.Knockout.SalaryAboveMax && r.MaxSalary > 0 && p.ExpectedSalary > r.MaxSalary {
		eval.KnockoutReasons = append(eval.KnockoutReasons,
			fmt.Sprintf("expected salary %.0f above maximum %.0f", p.ExpectedSalary, r.MaxSalary))
	}
	if r.Knockout.BelowMinExperience && p.YearsExperience < r.MinYearsExperience {
		eval.KnockoutReasons = append(eval.KnockoutReasons,
			fmt.Sprintf("%.1f years of experience below minimum %.1f", p.YearsExperience, r.MinYearsExperience))
	}
	eval.IsKnockout = len(eval.KnockoutReasons) > 0
}

func (s *ProfileScorer) applyFlags(eval *model.Evaluation, p CandidateProfile, r Rubric) {
	if r.RequireAuthorization && !p.WorkAuthorization {
		eval.RedFlags = append(eval.RedFlags, "candidate lacks required work authorization")
	}
	if r.MaxSalary > 0 && p.ExpectedSalary > r.MaxSalary {
		eval.RedFlags = append(eval.RedFlags, "expected salary exceeds the budget cap")
	}
	if p.YearsExperience < r.MinYearsExperience {
		eval.YellowFlags = append(eval.YellowFlags, "experience below the stated minimum")
	}
	if len(p.Skills) == 0 {
		eval.YellowFlags = append(eval.YellowFlags, "no skills listed on the profile")
	}
}

// scoreSkills combines full credit for must-have matches with half credit
// for nice-to-haves. Matching is exact-or-fuzzy on normalized names.
func scoreSkills(p CandidateProfile, r Rubric) (float64, []string) {
	weightTotal := float64(len(r.MustHaveSkills)) + 0.5*float64(len(r.NiceToHaveSkills))
	if weightTotal == 0 {
		return 100, []string{"skills: no skill requirements configured"}
	}
	got := 0.0
	matchedMust := 0
	matchedNice := 0
	for _, must := range r.MustHaveSkills {
		if hasSkill(p.Skills, must) {
			got++
			matchedMust++
		}
	}
	for _, nice := range r.NiceToHaveSkills {
		if hasSkill(p.Skills, nice) {
			got += 0.5
			matchedNice++
		}
	}
	score := 100 * got / weightTotal
	return score, []string{fmt.Sprintf("skills: matched %d/%d must-have and %d/%d nice-to-have",
		matchedMust, len(r.MustHaveSkills), matchedNice, len(r.NiceToHaveSkills))}
}

// scoreExperience is numeric proximity to the preferred years, full credit
// at or above preferred.
func scoreExperience(p CandidateProfile, r Rubric) (float64, []string) {
	target := r.PreferredYearsExperience
	if target <= 0 {
		target = r.MinYearsExperience
	}
	if target <= 0 {
		return 100, []string{"experience: no experience requirement configured"}
	}
	score := 100 * p.YearsExperience / target
	return clampScore(score), []string{fmt.Sprintf("experience: %.1f years against a target of %.1f", p.YearsExperience, target)}
}

func scoreAchievements(p CandidateProfile, _ Rubric) (float64, []string) {
	const fullCreditAt = 5
	count := len(p.Achievements)
	if count > fullCreditAt {
		count = fullCreditAt
	}
	return 100 * float64(count) / fullCreditAt,
		[]string{fmt.Sprintf("achievements: %d listed", len(p.Achievements))}
}

var educationLadder = []string{"high_school", "associate", "bachelor", "master", "phd"}

func educationRank(level string) int {
	normalized := normalizeToken(level)
	for i, l := range educationLadder {
		if normalized == l {
			return i + 1
		}
	}
	return 0
}

func scoreEducation(p CandidateProfile, r Rubric) (float64, []string) {
	required := educationRank(r.RequiredEducation)
	if required == 0 {
		return 100, []string{"education: no education requirement configured"}
	}
	candidate := educationRank(p.EducationLevel)
	if candidate >= required {
		return 100, []string{fmt.Sprintf("education: %s meets required %s", p.EducationLevel, r.RequiredEducation)}
	}
	score := 100 * float64(candidate) / float64(required)
	return score, []string{fmt.Sprintf("education: %s below required %s", p.EducationLevel, r.RequiredEducation)}
}

func scoreLocation(p CandidateProfile, r Rubric) (float64, []string) {
	if r.RequireAuthorization && !p.WorkAuthorization {
		return 0, []string{"location: missing work authorization"}
	}
	if len(r.Locations) == 0 {
		return 100, []string{"location: no location restriction configured"}
	}
	for _, loc := range r.Locations {
		if normalizeToken(loc) == normalizeToken(p.Location) {
			return 100, []string{fmt.Sprintf("location: %s is an accepted location", p.Location)}
		}
	}
	return 0, []string{fmt.Sprintf("location: %s not in the accepted list", p.Location)}
}

func scoreSalary(p CandidateProfile, r Rubric) (float64, []string) {
	if r.MaxSalary <= 0 {
		return 100, []string{"salary: no budget cap configured"}
	}
	if p.ExpectedSalary <= 0 {
		return 100, []string{"salary: no expectation stated"}
	}
	if p.ExpectedSalary <= r.MaxSalary {
		return 100, []string{fmt.Sprintf("salary: expectation %.0f within budget %.0f", p.ExpectedSalary, r.MaxSalary)}
	}
	over := (p.ExpectedSalary - r.MaxSalary) / r.MaxSalary
	score := 100 * (1 - over)
	return clampScore(score), []string{fmt.Sprintf("salary: expectation %.0f above budget %.0f", p.ExpectedSalary, r.MaxSalary)}
}

// hasSkill matches exactly on normalized names, falling back to substring
// containment so "golang" matches "Go (Golang)" and similar CV spellings.
func hasSkill(skills []string, wanted string) bool {
	w := normalizeToken(wanted)
	if w == "" {
		return false
	}
	for _, s := range skills {
		n := normalizeToken(s)
		if n == w || strings.Contains(n, w) || strings.Contains(w, n) {
			return true
		}
	}
	return false
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
