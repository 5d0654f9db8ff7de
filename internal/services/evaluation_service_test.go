package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/cache"
	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type evalWorld struct {
	profiles    *stubProfiles
	taxonomy    *stubTaxonomy
	qualifiers  *stubQualifiers
	jobProfiles *stubJobProfiles
	evaluations *stubEvaluations
	cache       *stubCache
	events      *stubEvents

	scores ScoreService
	svc    *evaluationService
}

func newEvalWorld(evals ...models.Evaluation) *evalWorld {
	w := &evalWorld{
		profiles: newStubProfiles(
			models.Profile{ID: "admin", Role: models.RoleSuperAdmin, IsActive: true},
			models.Profile{ID: "mgr", Role: models.RoleManager, IsActive: true},
			models.Profile{ID: "w1", FirstName: "Jean", LastName: "Dupont", Role: models.RoleWorker, ManagerID: ptr("mgr"), JobProfileID: ptr("jp-weld"), IsActive: true},
			models.Profile{ID: "w2", Role: models.RoleWorker, ManagerID: ptr("someone-else"), IsActive: true},
		),
		taxonomy: &stubTaxonomy{
			modules: []models.Module{
				{ID: "m-safety", Name: "Sécurité", SortOrder: 1},
				{ID: "m-tech", Name: "Technique", SortOrder: 2},
				{ID: "m-weld", Name: "Soudure", ParentID: ptr("m-tech"), SortOrder: 3},
				{ID: "m-hr", Name: "RH", SortOrder: 4},
			},
			competencies: []models.Competency{
				{ID: "c-ppe", ModuleID: "m-safety"},
				{ID: "c-read", ModuleID: "m-tech"},
				{ID: "c-tig", ModuleID: "m-weld"},
				{ID: "c-other", ModuleID: "m-hr"},
			},
		},
		qualifiers: &stubQualifiers{rows: []models.Qualifier{
			{ID: "q-level", Name: "Niveau", Type: models.QualifierSingleChoice, Options: []models.QualifierOption{
				{ID: "o-none", QualifierID: "q-level", Value: 0},
				{ID: "o-basic", QualifierID: "q-level", Value: 1},
				{ID: "o-expert", QualifierID: "q-level", Value: 4},
			}},
			{ID: "q-tools", Name: "Outils", Type: models.QualifierMultipleChoice, Options: []models.QualifierOption{
				{ID: "t-a", QualifierID: "q-tools", Value: 1},
				{ID: "t-b", QualifierID: "q-tools", Value: 1},
			}},
		}},
		jobProfiles: &stubJobProfiles{rows: map[string]*models.JobProfile{
			"jp-weld": {ID: "jp-weld", Name: "Soudeur", Modules: []models.JobProfileModule{
				{JobProfileID: "jp-weld", ModuleID: "m-safety"},
				{JobProfileID: "jp-weld", ModuleID: "m-tech", ExpectedScore: ptr(80.0)},
			}},
		}},
		evaluations: newStubEvaluations(evals...),
		cache:       newStubCache(),
		events:      &stubEvents{},
	}
	w.scores = NewScoreService(ScoreConfig{}, w.evaluations, w.taxonomy, w.qualifiers, w.jobProfiles, w.cache, quietLog())
	svc := NewEvaluationService(EvaluationDeps{
		Evaluations: w.evaluations,
		Profiles:    w.profiles,
		Taxonomy:    w.taxonomy,
		Qualifiers:  w.qualifiers,
		JobProfiles: w.jobProfiles,
		Scores:      w.scores,
		Events:      w.events,
		Log:         quietLog(),
	}).(*evaluationService)
	n := 0
	svc.idGen = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	w.svc = svc
	return w
}

func draftEval() models.Evaluation {
	return models.Evaluation{ID: "e1", WorkerID: "w1", EvaluatorID: "mgr", JobProfileID: ptr("jp-weld"), Status: models.StatusDraft}
}

func ppeExpert() SaveResultInput {
	return SaveResultInput{
		CompetencyID: "c-ppe",
		Answers:      []AnswerInput{{QualifierID: "q-level", OptionIDs: []string{"o-expert"}}},
	}
}

func TestSaveResultMovesDraftToInProgress(t *testing.T) {
	w := newEvalWorld(draftEval())
	w.cache.data[cache.ScoresKey(0, "e1")] = []byte(`{}`)

	res, err := w.svc.SaveResult(context.Background(), manager, "e1", ppeExpert())
	require.NoError(t, err)

	require.Len(t, res.Qualifiers, 1)
	assert.Equal(t, "o-expert", res.Qualifiers[0].OptionID)
	assert.Equal(t, res.ID, res.Qualifiers[0].ResultID)
	assert.Equal(t, models.StatusInProgress, w.evaluations.rows["e1"].Status)
	assert.Contains(t, w.cache.deleted, cache.ScoresKey(0, "e1"))
	assert.Equal(t, []recordedEvent{{"e1", "mgr"}}, w.events.calls)
}

func TestSaveResultReplacesPreviousAnswers(t *testing.T) {
	w := newEvalWorld(draftEval())
	ctx := context.Background()

	_, err := w.svc.SaveResult(ctx, manager, "e1", ppeExpert())
	require.NoError(t, err)
	in := ppeExpert()
	in.Answers[0].OptionIDs = []string{"o-basic"}
	_, err = w.svc.SaveResult(ctx, manager, "e1", in)
	require.NoError(t, err)

	e, err := w.svc.Get(ctx, manager, "e1")
	require.NoError(t, err)
	require.Len(t, e.Results, 1)
	assert.Equal(t, "o-basic", e.Results[0].Qualifiers[0].OptionID)
}

func TestSaveResultValidation(t *testing.T) {
	cases := map[string]SaveResultInput{
		"foreign option": {CompetencyID: "c-ppe", Answers: []AnswerInput{{QualifierID: "q-level", OptionIDs: []string{"t-a"}}}},
		"two single":     {CompetencyID: "c-ppe", Answers: []AnswerInput{{QualifierID: "q-level", OptionIDs: []string{"o-basic", "o-expert"}}}},
		"unknown qual":   {CompetencyID: "c-ppe", Answers: []AnswerInput{{QualifierID: "q-x", OptionIDs: []string{"o-basic"}}}},
		"repeated qual": {CompetencyID: "c-ppe", Answers: []AnswerInput{
			{QualifierID: "q-tools", OptionIDs: []string{"t-a"}},
			{QualifierID: "q-tools", OptionIDs: []string{"t-b"}},
		}},
		"unknown competency": {CompetencyID: "c-x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			w := newEvalWorld(draftEval())
			_, err := w.svc.SaveResult(context.Background(), manager, "e1", in)
			require.Error(t, err)
			assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), err.Error())
			assert.Empty(t, w.evaluations.replaced)
			assert.Equal(t, models.StatusDraft, w.evaluations.rows["e1"].Status)
		})
	}
}

func TestSaveResultMultipleChoiceDedupes(t *testing.T) {
	w := newEvalWorld(draftEval())
	res, err := w.svc.SaveResult(context.Background(), manager, "e1", SaveResultInput{
		CompetencyID: "c-tig",
		Answers:      []AnswerInput{{QualifierID: "q-tools", OptionIDs: []string{"t-b", "t-a", "t-b"}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Qualifiers, 2)
	assert.Equal(t, "t-b", res.Qualifiers[0].OptionID)
	assert.Equal(t, "t-a", res.Qualifiers[1].OptionID)
}

func TestSaveResultCompletedIsReadOnly(t *testing.T) {
	e := draftEval()
	e.Status = models.StatusCompleted
	w := newEvalWorld(e)

	_, err := w.svc.SaveResult(context.Background(), manager, "e1", ppeExpert())
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
	assert.Empty(t, w.events.calls)
}

func TestSaveResultLosesRaceWithComplete(t *testing.T) {
	e := draftEval()
	e.Status = models.StatusInProgress
	w := newEvalWorld(e)
	w.evaluations.beforeWrite = func(e *models.Evaluation) { e.Status = models.StatusCompleted }

	_, err := w.svc.SaveResult(context.Background(), manager, "e1", ppeExpert())
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
	assert.Empty(t, w.evaluations.replaced)
	assert.Empty(t, w.events.calls)
	assert.Equal(t, models.StatusCompleted, w.evaluations.rows["e1"].Status)
}

func TestSaveResultScoping(t *testing.T) {
	other := models.Evaluation{ID: "e2", WorkerID: "w2", Status: models.StatusDraft}
	w := newEvalWorld(draftEval(), other)
	ctx := context.Background()

	_, err := w.svc.SaveResult(ctx, manager, "e2", ppeExpert())
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, err = w.svc.SaveResult(ctx, worker, "e1", ppeExpert())
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	// workers still read their own evaluation
	_, err = w.svc.Get(ctx, worker, "e1")
	assert.NoError(t, err)
	_, err = w.svc.Get(ctx, manager, "e2")
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, err = w.svc.SaveResult(ctx, master, "e2", ppeExpert())
	assert.NoError(t, err)
}

func TestCreateContinuousReturnsExisting(t *testing.T) {
	w := newEvalWorld()
	ctx := context.Background()
	in := CreateEvaluationInput{WorkerID: "w1", IsContinuous: true}

	first, created, err := w.svc.Create(ctx, manager, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first.JobProfileID)
	assert.Equal(t, "jp-weld", *first.JobProfileID, "defaults to the primary job profile")
	assert.Equal(t, models.StatusDraft, first.Status)

	second, created, err := w.svc.Create(ctx, manager, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	third, created, err := w.svc.Create(ctx, manager, CreateEvaluationInput{WorkerID: "w1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateChecks(t *testing.T) {
	w := newEvalWorld()
	ctx := context.Background()

	_, _, err := w.svc.Create(ctx, worker, CreateEvaluationInput{WorkerID: "w1"})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, _, err = w.svc.Create(ctx, manager, CreateEvaluationInput{WorkerID: "w2"})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, _, err = w.svc.Create(ctx, manager, CreateEvaluationInput{WorkerID: "w1", JobProfileID: ptr("jp-missing")})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, _, err = w.svc.Create(ctx, admin, CreateEvaluationInput{WorkerID: "ghost"})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestCompleteTransitions(t *testing.T) {
	cont := draftEval()
	cont.ID = "e-cont"
	cont.IsContinuous = true
	cont.Status = models.StatusInProgress
	w := newEvalWorld(draftEval(), cont)
	ctx := context.Background()

	_, err := w.svc.Complete(ctx, manager, "e1")
	assert.True(t, utils.IsCode(err, utils.CodeConflict), "draft cannot complete")

	_, err = w.svc.Complete(ctx, manager, "e-cont")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = w.svc.SaveResult(ctx, manager, "e1", ppeExpert())
	require.NoError(t, err)
	e, err := w.svc.Complete(ctx, manager, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, models.StatusCompleted, w.evaluations.rows["e1"].Status)
	assert.Len(t, w.events.calls, 2)

	_, err = w.svc.Complete(ctx, manager, "e1")
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
}

func TestScoresRoundTrip(t *testing.T) {
	w := newEvalWorld(draftEval())
	ctx := context.Background()

	_, err := w.svc.SaveResult(ctx, manager, "e1", ppeExpert())
	require.NoError(t, err)
	_, err = w.svc.SaveResult(ctx, manager, "e1", SaveResultInput{
		CompetencyID: "c-tig",
		Answers:      []AnswerInput{{QualifierID: "q-tools", OptionIDs: []string{"t-a"}}},
	})
	require.NoError(t, err)

	sc, err := w.svc.Scores(ctx, worker, "e1")
	require.NoError(t, err)

	got := map[string]models.ModuleScore{}
	for _, m := range sc.Modules {
		got[m.ModuleID] = m
	}
	assert.NotContains(t, got, "m-hr", "modules outside the job profile are not reported")
	assert.Equal(t, 100.0, got["m-safety"].Score)
	assert.Equal(t, 70.0, got["m-safety"].Expected)
	assert.Equal(t, 50.0, got["m-weld"].Score)
	assert.Equal(t, 0.0, got["m-weld"].Expected)
	assert.Equal(t, 50.0, got["m-tech"].Score)
	assert.Equal(t, 80.0, got["m-tech"].Expected)
	assert.False(t, got["m-tech"].Meets)
	assert.Equal(t, 1, got["m-tech"].Answered)
	assert.Equal(t, 2, got["m-tech"].Total)
	// (4 + 1) / (4 + 2)
	assert.Equal(t, 83.3, sc.Overall)
}

func TestScoresUnknownEvaluationIsEmpty(t *testing.T) {
	w := newEvalWorld()
	sc, err := w.svc.Scores(context.Background(), admin, "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", sc.EvaluationID)
	assert.Empty(t, sc.Modules)
}

func TestSummaryUnavailableWithoutProvider(t *testing.T) {
	w := newEvalWorld(draftEval())
	_, err := w.svc.Summary(context.Background(), manager, "e1")
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

type promptRecorder struct {
	prompt string
}

func (p *promptRecorder) StreamAnswer(_ context.Context, prompt string) (<-chan string, <-chan error) {
	p.prompt = prompt
	out := make(chan string, 1)
	errs := make(chan error)
	out <- "Bonne maîtrise de la sécurité."
	close(out)
	close(errs)
	return out, errs
}

func (p *promptRecorder) Close() error { return nil }

func TestSummaryUsesScores(t *testing.T) {
	w := newEvalWorld(draftEval())
	rec := &promptRecorder{}
	w.svc.llm = rec
	ctx := context.Background()

	_, err := w.svc.SaveResult(ctx, manager, "e1", ppeExpert())
	require.NoError(t, err)
	text, err := w.svc.Summary(ctx, manager, "e1")
	require.NoError(t, err)

	assert.Equal(t, "Bonne maîtrise de la sécurité.", text)
	assert.Contains(t, rec.prompt, "Jean Dupont")
	assert.Contains(t, rec.prompt, "Profil métier : Soudeur")
	assert.True(t, strings.Contains(rec.prompt, "Sécurité : 100.0% / 70.0%"), rec.prompt)
}
