package blueprint_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/khangtgr/assessly/internal/blueprint"
	"github.com/khangtgr/assessly/internal/model"
)

func validBlueprint() *model.Blueprint {
	return &model.Blueprint{
		ID:              uuid.New(),
		Title:           "Backend Engineer Screen",
		DurationMinutes: 60,
		Weights:         model.WeightSet{Skills: 0.5, Aptitude: 0.3, WorkStyle: 0.2},
		CutScores:       model.CutScoreSet{Overall: 60},
		AntiCheat:       model.AntiCheatConfig{Shuffle: true, FullscreenMonitor: true, Webcam: model.WebcamOff},
		Sections: []model.Section{
			{
				Type:        model.SectionSkills,
				Title:       "Go fundamentals",
				TimeMinutes: 25,
				Weight:      50,
				Items: []model.Item{
					mcqItem("What does a nil map read return?", []string{"zero value", "panic", "error"}, "zero value"),
				},
			},
			{
				Type:        model.SectionAptitude,
				Title:       "Logical reasoning",
				TimeMinutes: 20,
				Weight:      30,
				Items: []model.Item{
					mcqItem("Next number in 2, 4, 8?", []string{"12", "16", "24"}, "16"),
				},
			},
			{
				Type:        model.SectionWorkStyle,
				Title:       "Working preferences",
				TimeMinutes: 15,
				Weight:      20,
				Items: []model.Item{
					{
						Format:       model.FormatLikert,
						Stem:         "I prefer detailed specifications over open-ended briefs.",
						Options:      model.StringList{"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree"},
						Competencies: model.StringList{"self_awareness"},
						Difficulty:   model.DifficultyEasy,
						MaxPoints:    1,
					},
				},
			},
		},
	}
}

func mcqItem(stem string, options []string, correct string) model.Item {
	return model.Item{
		Format:        model.FormatMCQ,
		Stem:          stem,
		Options:       model.StringList(options),
		CorrectAnswer: model.RawDocument(`"` + correct + `"`),
		Competencies:  model.StringList{"core"},
		Difficulty:    model.DifficultyMedium,
		MaxPoints:     2,
	}
}

func kinds(vs []blueprint.Violation) map[blueprint.Kind]int {
	m := make(map[blueprint.Kind]int)
	for _, v := range vs {
		m[v.Kind]++
	}
	return m
}

func TestValidBlueprintPasses(t *testing.T) {
	if vs := blueprint.Validate(validBlueprint()); len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
}

func TestDurationBounds(t *testing.T) {
	for _, d := range []int{4, 0, 241} {
		bp := validBlueprint()
		bp.DurationMinutes = d
		if kinds(blueprint.Validate(bp))[blueprint.KindDurationOutOfRange] != 1 {
			t.Errorf("duration %d: expected a duration violation", d)
		}
	}
	for _, d := range []int{5, 240, 60} {
		bp := validBlueprint()
		bp.DurationMinutes = d
		if kinds(blueprint.Validate(bp))[blueprint.KindDurationOutOfRange] != 0 {
			t.Errorf("duration %d: unexpected duration violation", d)
		}
	}
}

func TestWeightSetMustSumToOne(t *testing.T) {
	bp := validBlueprint()
	bp.Weights = model.WeightSet{Skills: 0.5, Aptitude: 0.3, WorkStyle: 0.1}
	if kinds(blueprint.Validate(bp))[blueprint.KindWeightSetSum] != 1 {
		t.Fatal("expected a weight set sum violation")
	}

	// Within tolerance passes.
	bp.Weights = model.WeightSet{Skills: 0.5, Aptitude: 0.3, WorkStyle: 0.205}
	if kinds(blueprint.Validate(bp))[blueprint.KindWeightSetSum] != 0 {
		t.Fatal("sum within ±0.01 should pass")
	}
}

func TestSectionWeightsMustSumToHundred(t *testing.T) {
	bp := validBlueprint()
	bp.Sections[0].Weight = 55
	vs := blueprint.Validate(bp)
	if kinds(vs)[blueprint.KindSectionWeightSum] != 1 {
		t.Fatalf("expected a section weight sum violation, got %v", vs)
	}
}

func TestCollectsAllViolations(t *testing.T) {
	bp := validBlueprint()
	bp.DurationMinutes = 2
	bp.Weights.Skills = 1.5
	bp.Sections[0].Items[0].MaxPoints = 0
	bp.Sections[1].TimeMinutes = 0

	got := kinds(blueprint.Validate(bp))
	for _, want := range []blueprint.Kind{
		blueprint.KindDurationOutOfRange,
		blueprint.KindWeightComponentRange,
		blueprint.KindWeightSetSum,
		blueprint.KindItemMaxPointsTooLow,
		blueprint.KindSectionTimeTooShort,
	} {
		if got[want] == 0 {
			t.Errorf("missing violation kind %s in %v", want, got)
		}
	}
}

func TestOptionRequirements(t *testing.T) {
	bp := validBlueprint()
	bp.Sections[0].Items[0].Options = nil
	bp.Sections[0].Items[0].CorrectAnswer = nil
	got := kinds(blueprint.Validate(bp))
	if got[blueprint.KindItemOptionsMissing] != 1 {
		t.Error("expected an options missing violation")
	}
	if got[blueprint.KindItemAnswerMissing] != 1 {
		t.Error("expected an answer missing violation")
	}

	bp = validBlueprint()
	bp.Sections[0].Items[0].Options = model.StringList{"only one"}
	bp.Sections[0].Items[0].CorrectAnswer = model.RawDocument(`"only one"`)
	if kinds(blueprint.Validate(bp))[blueprint.KindItemOptionsTooFew] != 1 {
		t.Error("expected an options too few violation")
	}

	bp = validBlueprint()
	bp.Sections[0].Items[0].Options = model.StringList{"zero value", "  "}
	if kinds(blueprint.Validate(bp))[blueprint.KindItemOptionBlank] != 1 {
		t.Error("expected a blank option violation")
	}
}

func TestCorrectAnswerMustDecode(t *testing.T) {
	bp := validBlueprint()
	bp.Sections[0].Items[0].CorrectAnswer = model.RawDocument(`"not an option"`)
	if kinds(blueprint.Validate(bp))[blueprint.KindItemAnswerInvalid] != 1 {
		t.Fatal("expected an answer invalid violation")
	}
}

// Scenario from the scoring design review: two sections, weights summing
// correctly, but a work_style cut score with no work_style section.
func TestCutScoreForAbsentSectionTypeRejected(t *testing.T) {
	bp := validBlueprint()
	bp.Weights = model.WeightSet{Skills: 0.5, Aptitude: 0.3, WorkStyle: 0.2}
	bp.Sections = bp.Sections[:2] // skills + aptitude only
	bp.Sections[0].Weight = 60
	bp.Sections[1].Weight = 40
	ws := 50.0
	bp.CutScores.WorkStyle = &ws

	vs := blueprint.Validate(bp)
	got := kinds(vs)
	if got[blueprint.KindSectionWeightSum] != 0 {
		t.Fatalf("section weights 60+40 should pass, got %v", vs)
	}
	if got[blueprint.KindWeightSetSum] != 0 {
		t.Fatalf("weight set 0.5+0.3+0.2 should pass, got %v", vs)
	}
	if got[blueprint.KindCutScoreWithoutSection] != 1 {
		t.Fatalf("expected a cut score without section violation, got %v", vs)
	}
}

func TestCutScoreBounds(t *testing.T) {
	bp := validBlueprint()
	bp.CutScores.Overall = 101
	bad := -1.0
	bp.CutScores.Skills = &bad
	if kinds(blueprint.Validate(bp))[blueprint.KindCutScoreOutOfRange] != 2 {
		t.Fatal("expected two cut score range violations")
	}
}

func TestEmptySection(t *testing.T) {
	bp := validBlueprint()
	bp.Sections[2].Items = nil
	if kinds(blueprint.Validate(bp))[blueprint.KindSectionEmpty] != 1 {
		t.Fatal("expected an empty section violation")
	}
}

func TestNoSections(t *testing.T) {
	bp := validBlueprint()
	bp.Sections = nil
	got := kinds(blueprint.Validate(bp))
	if got[blueprint.KindNoSections] != 1 {
		t.Fatal("expected a no sections violation")
	}
	// With zero sections the 100-sum rule does not apply.
	if got[blueprint.KindSectionWeightSum] != 0 {
		t.Fatal("section weight sum should not be checked with no sections")
	}
}
