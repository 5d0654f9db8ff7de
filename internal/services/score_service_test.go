package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/cache"
	"github.com/yoockh/skillradar/internal/models"
)

func answered(id string, jp *string, comp, qual, opt string) models.Evaluation {
	return models.Evaluation{
		ID: id, WorkerID: "w1", JobProfileID: jp, Status: models.StatusInProgress,
		Results: []models.EvaluationResult{{
			ID: id + "-r", EvaluationID: id, CompetencyID: comp,
			Qualifiers: []models.EvaluationResultQualifier{{QualifierID: qual, OptionID: opt}},
		}},
	}
}

func TestComputeWithoutJobProfile(t *testing.T) {
	w := newEvalWorld(answered("e-free", nil, "c-other", "q-level", "o-basic"))

	sc, err := w.scores.Compute(context.Background(), "e-free")
	require.NoError(t, err)
	require.Len(t, sc.Modules, 1)
	assert.Equal(t, "m-hr", sc.Modules[0].ModuleID)
	assert.Equal(t, 25.0, sc.Modules[0].Score)
	assert.Equal(t, 0.0, sc.Modules[0].Expected)
}

func TestComputeMissingJobProfileIsEmpty(t *testing.T) {
	w := newEvalWorld(answered("e-lost", ptr("jp-deleted"), "c-ppe", "q-level", "o-basic"))

	sc, err := w.scores.Compute(context.Background(), "e-lost")
	require.NoError(t, err)
	assert.Empty(t, sc.Modules)
	assert.Equal(t, 0.0, sc.Overall)
}

func TestComputeRespectsAllowedQualifiers(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"))
	w.jobProfiles.rows["jp-weld"].Qualifiers = []models.JobProfileQualifier{{JobProfileID: "jp-weld", QualifierID: "q-tools"}}

	sc, err := w.scores.Compute(context.Background(), "e1")
	require.NoError(t, err)
	for _, m := range sc.Modules {
		assert.Equal(t, 0.0, m.Score, m.ModuleID)
	}
}

func TestModuleScoresServesCache(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"))
	ctx := context.Background()

	first, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	require.Contains(t, w.cache.data, cache.ScoresKey(0, "e1"))

	// the cached copy wins until invalidated
	w.evaluations.rows["e1"].Results = nil
	again, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, first.Overall, again.Overall)

	w.scores.Invalidate(ctx, "e1")
	fresh, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, fresh.Overall)
}

func TestBatchModuleScores(t *testing.T) {
	w := newEvalWorld(
		answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"),
		answered("e2", nil, "c-other", "q-level", "o-basic"),
	)
	out, err := w.scores.BatchModuleScores(context.Background(), []string{"e1", "e2", "e1", "missing"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 100.0, out["e1"].Overall)
	assert.Equal(t, 25.0, out["e2"].Overall)
	assert.Empty(t, out["missing"].Modules)
}

func moduleScore(t *testing.T, sc *models.EvaluationScores, id string) models.ModuleScore {
	t.Helper()
	for _, m := range sc.Modules {
		if m.ModuleID == id {
			return m
		}
	}
	require.Failf(t, "module not scored", "%s", id)
	return models.ModuleScore{}
}

func TestComputeScopesAnsweredModulesOutsideJobProfile(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-other", "q-level", "o-expert"))

	sc, err := w.scores.Compute(context.Background(), "e1")
	require.NoError(t, err)

	hr := moduleScore(t, sc, "m-hr")
	assert.Equal(t, 100.0, hr.Score)
	assert.Equal(t, 0.0, hr.Expected)
	assert.True(t, hr.Meets)
	assert.Equal(t, 1, hr.Answered)

	// job profile modules stay in scope even when unanswered
	tech := moduleScore(t, sc, "m-tech")
	assert.Equal(t, 80.0, tech.Expected)
	assert.Equal(t, 0, tech.Answered)
	moduleScore(t, sc, "m-weld")
	moduleScore(t, sc, "m-safety")
}

func TestComputeScopesJobProfileCompetencyModules(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"))
	w.jobProfiles.rows["jp-weld"].Competencies = []models.JobProfileCompetency{
		{JobProfileID: "jp-weld", CompetencyID: "c-other"},
	}

	sc, err := w.scores.Compute(context.Background(), "e1")
	require.NoError(t, err)

	hr := moduleScore(t, sc, "m-hr")
	assert.Equal(t, 1, hr.Total)
	assert.Equal(t, 0, hr.Answered)
	assert.Equal(t, 0.0, hr.Score)
}

func TestJobProfileChangeRetiresCachedScores(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"))
	ctx := context.Background()

	before, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, moduleScore(t, before, "m-tech").Expected)

	jps := NewJobProfileService(w.jobProfiles, w.taxonomy, w.qualifiers, w.scores)
	_, err = jps.SetModules(ctx, master, "jp-weld", []ModuleLinkInput{
		{ModuleID: "m-safety"},
		{ModuleID: "m-tech", ExpectedScore: ptr(50.0)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.cache.counters[cache.ScoresGenKey])

	after, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, moduleScore(t, after, "m-tech").Expected)
	assert.Contains(t, w.cache.data, cache.ScoresKey(1, "e1"))
}

func TestInvalidateAllBumpsGeneration(t *testing.T) {
	w := newEvalWorld(answered("e1", ptr("jp-weld"), "c-ppe", "q-level", "o-expert"))
	ctx := context.Background()

	w.scores.InvalidateAll(ctx)
	w.scores.InvalidateAll(ctx)
	assert.Equal(t, int64(2), w.cache.counters[cache.ScoresGenKey])

	_, err := w.scores.ModuleScores(ctx, "e1")
	require.NoError(t, err)
	assert.Contains(t, w.cache.data, cache.ScoresKey(2, "e1"))
	assert.NotContains(t, w.cache.data, cache.ScoresKey(0, "e1"))
}
