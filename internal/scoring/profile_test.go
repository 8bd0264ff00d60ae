package scoring

import (
	"strings"
	"testing"
	"time"
)

func hiringRubric() Rubric {
	return Rubric{
		MustHaveSkills:           []string{"Go", "PostgreSQL"},
		NiceToHaveSkills:         []string{"Kubernetes", "gRPC"},
		MinYearsExperience:       3,
		PreferredYearsExperience: 5,
		RequiredEducation:        "bachelor",
		Locations:                []string{"Hanoi", "Remote"},
		RequireAuthorization:     true,
		MaxSalary:                4000,
		Weights: map[string]float64{
			CategorySkills:       0.35,
			CategoryExperience:   0.25,
			CategoryAchievements: 0.10,
			CategoryEducation:    0.10,
			CategoryLocation:     0.10,
			CategorySalary:       0.10,
		},
		Knockout: KnockoutPolicy{
			MissingMustHave:     true,
			NoWorkAuthorization: true,
			SalaryAboveMax:      true,
		},
	}
}

func strongProfile() CandidateProfile {
	submitted := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	return CandidateProfile{
		ID:                "cand-1",
		Name:              "A. Tran",
		Skills:            []string{"Go (Golang)", "PostgreSQL", "Kubernetes", "gRPC"},
		YearsExperience:   6,
		EducationLevel:    "Master",
		Achievements:      []string{"led migration", "conference talk", "oss maintainer", "patent", "award"},
		Location:          "Hanoi",
		WorkAuthorization: true,
		ExpectedSalary:    3500,
		SubmittedAt:       &submitted,
	}
}

func TestEvaluateProfileStrongCandidate(t *testing.T) {
	eval := NewProfileScorer().Evaluate(strongProfile(), hiringRubric())

	if eval.IsKnockout {
		t.Fatalf("strong candidate knocked out: %v", eval.KnockoutReasons)
	}
	if eval.ScoreTotal != 100 {
		t.Fatalf("total = %.2f, want 100; breakdown %v", eval.ScoreTotal, eval.ScoreBreakdown)
	}
	if len(eval.MustHavesSatisfied) != 2 || len(eval.MissingMustHaves) != 0 {
		t.Fatalf("must-haves = %v missing %v", eval.MustHavesSatisfied, eval.MissingMustHaves)
	}
	if len(eval.ScoreBreakdown) != 6 {
		t.Fatalf("breakdown has %d categories, want all 6: %v", len(eval.ScoreBreakdown), eval.ScoreBreakdown)
	}
}

func TestEvaluateProfileFuzzySkillMatch(t *testing.T) {
	p := strongProfile()
	p.Skills = []string{"golang", "PostgreSQL 14"}
	eval := NewProfileScorer().Evaluate(p, hiringRubric())
	if len(eval.MissingMustHaves) != 0 {
		t.Fatalf("fuzzy spellings should satisfy must-haves, missing %v", eval.MissingMustHaves)
	}
}

func TestEvaluateProfileKnockoutStillScored(t *testing.T) {
	p := strongProfile()
	p.Skills = []string{"PostgreSQL", "Kubernetes"}
	p.ExpectedSalary = 5000

	eval := NewProfileScorer().Evaluate(p, hiringRubric())

	if !eval.IsKnockout {
		t.Fatal("missing must-have plus salary over cap must knock out")
	}
	if len(eval.KnockoutReasons) != 2 {
		t.Fatalf("knockout reasons = %v, want 2", eval.KnockoutReasons)
	}
	if eval.ScoreTotal <= 0 || len(eval.ScoreBreakdown) != 6 {
		t.Fatalf("knockout suppressed scoring: total %.2f breakdown %v", eval.ScoreTotal, eval.ScoreBreakdown)
	}
	if got := eval.MissingMustHaves; len(got) != 1 || got[0] != "Go" {
		t.Fatalf("missing must-haves = %v, want [Go]", got)
	}
}

func TestEvaluateProfileMissingDataScoresZero(t *testing.T) {
	p := CandidateProfile{ID: "cand-empty"}
	r := hiringRubric()
	r.Knockout = KnockoutPolicy{}

	eval := NewProfileScorer().Evaluate(p, r)

	for _, cat := range []string{CategorySkills, CategoryExperience, CategoryEducation, CategoryLocation} {
		if got := eval.ScoreBreakdown[cat]; got != 0 {
			t.Fatalf("%s = %.2f with no data, want 0", cat, got)
		}
	}
	if eval.IsKnockout {
		t.Fatal("knockouts disabled but candidate knocked out")
	}
	if !strings.Contains(strings.Join(eval.YellowFlags, "; "), "no skills") {
		t.Fatalf("yellow flags = %v, want an empty-skills flag", eval.YellowFlags)
	}
}

func TestEvaluateProfileSalaryProximity(t *testing.T) {
	p := strongProfile()
	p.ExpectedSalary = 5000
	r := hiringRubric()
	r.Knockout = KnockoutPolicy{}

	eval := NewProfileScorer().Evaluate(p, r)

	// 25% over budget leaves 75% salary credit.
	if got := eval.ScoreBreakdown[CategorySalary]; got != 75 {
		t.Fatalf("salary = %.2f, want 75", got)
	}
	if !strings.Contains(strings.Join(eval.RedFlags, "; "), "budget") {
		t.Fatalf("red flags = %v, want a budget flag", eval.RedFlags)
	}
}

func TestEvaluateBatchRanksAndShares(t *testing.T) {
	r := hiringRubric()
	weak := strongProfile()
	weak.ID = "cand-2"
	weak.Skills = []string{"Go"}
	weak.YearsExperience = 1
	weak.Achievements = nil

	evals := NewProfileScorer().EvaluateBatch([]CandidateProfile{weak, strongProfile()}, r)

	if len(evals) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(evals))
	}
	if evals[0].SubjectID != "cand-1" || evals[0].Rank != 1 {
		t.Fatalf("top rank = %s/%d, want cand-1/1", evals[0].SubjectID, evals[0].Rank)
	}
	if evals[1].Rank != 2 {
		t.Fatalf("second rank = %d, want 2", evals[1].Rank)
	}
	if evals[0].BatchID != evals[1].BatchID {
		t.Fatal("batch members carry different batch ids")
	}
}
