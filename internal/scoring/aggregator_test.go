package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/models"
)

func ptr[T any](v T) *T { return &v }

func level() models.Qualifier {
	return models.Qualifier{
		ID:   "q-level",
		Type: models.QualifierSingleChoice,
		Options: []models.QualifierOption{
			{ID: "o-none", QualifierID: "q-level", Value: 0},
			{ID: "o-basic", QualifierID: "q-level", Value: 1},
			{ID: "o-good", QualifierID: "q-level", Value: 2},
			{ID: "o-expert", QualifierID: "q-level", Value: 4},
		},
	}
}

func tools() models.Qualifier {
	return models.Qualifier{
		ID:   "q-tools",
		Type: models.QualifierMultipleChoice,
		Options: []models.QualifierOption{
			{ID: "t-a", QualifierID: "q-tools", Value: 1},
			{ID: "t-b", QualifierID: "q-tools", Value: 1},
			{ID: "t-c", QualifierID: "q-tools", Value: 2},
		},
	}
}

func baseInput() Input {
	return Input{
		Modules: []models.Module{
			{ID: "m-safety", Name: "Sécurité", SortOrder: 1},
			{ID: "m-tech", Name: "Technique", SortOrder: 2},
			{ID: "m-weld", Name: "Soudure", ParentID: ptr("m-tech"), SortOrder: 3},
		},
		Competencies: []models.Competency{
			{ID: "c-ppe", ModuleID: "m-safety"},
			{ID: "c-lockout", ModuleID: "m-safety"},
			{ID: "c-read", ModuleID: "m-tech"},
			{ID: "c-tig", ModuleID: "m-weld"},
		},
		Qualifiers: []models.Qualifier{level(), tools()},
	}
}

func byModule(scores []models.ModuleScore) map[string]models.ModuleScore {
	out := map[string]models.ModuleScore{}
	for _, s := range scores {
		out[s.ModuleID] = s
	}
	return out
}

func TestModuleScoresSingleChoice(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-expert"},
		{CompetencyID: "c-lockout", QualifierID: "q-level", OptionID: "o-basic"},
	}

	got := byModule(ModuleScores(in))
	require.Contains(t, got, "m-safety")
	// (4 + 1) / (4 + 4)
	assert.Equal(t, 62.5, got["m-safety"].Score)
	assert.Equal(t, 2, got["m-safety"].Answered)
	assert.Equal(t, 2, got["m-safety"].Total)
}

func TestModuleScoresUnansweredModuleIsZero(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-good"}}

	got := byModule(ModuleScores(in))
	tech := got["m-tech"]
	assert.Equal(t, 0.0, tech.Score)
	assert.False(t, math.IsNaN(tech.Score))
	assert.Equal(t, 0, tech.Answered)
	assert.Equal(t, 0.0, got["m-weld"].Score)
}

func TestModuleScoresMultipleChoiceAndRollup(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		{CompetencyID: "c-tig", QualifierID: "q-tools", OptionID: "t-a"},
		{CompetencyID: "c-tig", QualifierID: "q-tools", OptionID: "t-c"},
		{CompetencyID: "c-read", QualifierID: "q-level", OptionID: "o-expert"},
	}

	got := byModule(ModuleScores(in))
	// weld: 3 of 4
	assert.Equal(t, 75.0, got["m-weld"].Score)
	// tech = read (4/4) + weld (3/4) => 7/8
	assert.Equal(t, 87.5, got["m-tech"].Score)
	assert.Equal(t, 2, got["m-tech"].Total)
	require.NotNil(t, got["m-weld"].ParentID)
}

func TestModuleScoresIgnoresForeignOptions(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		// option belongs to q-tools, keyed under q-level
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "t-c"},
	}
	got := byModule(ModuleScores(in))
	assert.Equal(t, 0.0, got["m-safety"].Score)
	assert.Equal(t, 0, got["m-safety"].Answered)
}

func TestModuleScoresExpectations(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-expert"}}
	in.Expectations = &Expectations{
		Default: DefaultExpected,
		Modules: map[string]*float64{
			"m-safety": nil,
			"m-tech":   ptr(50.0),
		},
	}

	got := byModule(ModuleScores(in))
	assert.Equal(t, 70.0, got["m-safety"].Expected)
	assert.Equal(t, 50.0, got["m-tech"].Expected)
	// m-weld is not configured: no bar to clear
	assert.Equal(t, 0.0, got["m-weld"].Expected)
	assert.True(t, got["m-weld"].Meets)
	assert.False(t, got["m-tech"].Meets)
	assert.Equal(t, -50.0, got["m-tech"].Gap)
}

func TestModuleScoresCompetencyOverrides(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-expert"},
		{CompetencyID: "c-lockout", QualifierID: "q-level", OptionID: "o-none"},
	}
	in.Expectations = &Expectations{
		Default: DefaultExpected,
		Modules: map[string]*float64{"m-safety": ptr(60.0)},
		Competencies: map[string]models.JobProfileCompetency{
			"c-ppe":     {CompetencyID: "c-ppe", Weight: ptr(3.0), ExpectedScore: ptr(100.0)},
			"c-lockout": {CompetencyID: "c-lockout"},
		},
	}

	got := byModule(ModuleScores(in))
	// points: 3*4 + 1*0 = 12 of 3*4 + 1*4 = 16
	assert.Equal(t, 75.0, got["m-safety"].Score)
	// expected: (3*100 + 1*60) / 4
	assert.Equal(t, 90.0, got["m-safety"].Expected)
}

func TestModuleScoresZeroWeightExcludes(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-none"},
		{CompetencyID: "c-lockout", QualifierID: "q-level", OptionID: "o-expert"},
	}
	in.Expectations = &Expectations{
		Modules:      map[string]*float64{},
		Competencies: map[string]models.JobProfileCompetency{"c-ppe": {Weight: ptr(0.0)}},
	}
	got := byModule(ModuleScores(in))
	assert.Equal(t, 100.0, got["m-safety"].Score)
	assert.Equal(t, 1, got["m-safety"].Total)
}

func TestModuleScoresAllowedQualifiers(t *testing.T) {
	in := baseInput()
	in.AllowedQualifiers = map[string]bool{"q-tools": true}
	in.Answers = []Answer{
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-expert"},
		{CompetencyID: "c-ppe", QualifierID: "q-tools", OptionID: "t-c"},
	}
	got := byModule(ModuleScores(in))
	assert.Equal(t, 50.0, got["m-safety"].Score)
}

func TestModuleScoresRoundsToOneDecimal(t *testing.T) {
	in := baseInput()
	in.Competencies = in.Competencies[:1]
	in.Qualifiers = []models.Qualifier{{
		ID:   "q3",
		Type: models.QualifierSingleChoice,
		Options: []models.QualifierOption{
			{ID: "a", QualifierID: "q3", Value: 1},
			{ID: "b", QualifierID: "q3", Value: 3},
		},
	}}
	in.Answers = []Answer{{CompetencyID: "c-ppe", QualifierID: "q3", OptionID: "a"}}
	got := ModuleScores(in)
	require.Len(t, got, 1)
	assert.Equal(t, 33.3, got[0].Score)
}

func TestModuleScoresOrder(t *testing.T) {
	got := ModuleScores(baseInput())
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m-safety", "m-tech", "m-weld"},
		[]string{got[0].ModuleID, got[1].ModuleID, got[2].ModuleID})
}

func TestOverall(t *testing.T) {
	in := baseInput()
	in.Answers = []Answer{
		{CompetencyID: "c-ppe", QualifierID: "q-level", OptionID: "o-expert"},
		{CompetencyID: "c-read", QualifierID: "q-level", OptionID: "o-none"},
	}
	// top level: safety 4/4, tech 0/4
	assert.Equal(t, 50.0, Overall(ModuleScores(in)))
	assert.Equal(t, 0.0, Overall(nil))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(1, 0))
	assert.Equal(t, 100.0, Percent(5, 4))
	assert.Equal(t, 66.7, Percent(2, 3))
}
