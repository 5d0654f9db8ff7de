package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/providers/llm"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

const (
	msgReadOnly          = "Évaluation terminée : lecture seule"
	msgContinuousNoClose = "Une évaluation continue ne peut pas être clôturée"
	msgBadTransition     = "Transition de statut invalide"
	summaryTimeout       = 30 * time.Second
)

type CreateEvaluationInput struct {
	WorkerID     string
	JobProfileID *string
	IsContinuous bool
	Comment      string
}

type AnswerInput struct {
	QualifierID string
	OptionIDs   []string
}

type SaveResultInput struct {
	CompetencyID string
	Comment      string
	Answers      []AnswerInput
}

type EvaluationService interface {
	// Create returns the existing continuous evaluation for the same worker
	// and job profile instead of opening a second one; created reports which.
	Create(ctx context.Context, caller Caller, in CreateEvaluationInput) (e *models.Evaluation, created bool, err error)
	Get(ctx context.Context, caller Caller, id string) (*models.Evaluation, error)
	ListForWorker(ctx context.Context, caller Caller, workerID string) ([]models.Evaluation, error)
	SaveResult(ctx context.Context, caller Caller, evaluationID string, in SaveResultInput) (*models.EvaluationResult, error)
	Complete(ctx context.Context, caller Caller, id string) (*models.Evaluation, error)

	Scores(ctx context.Context, caller Caller, id string) (*models.EvaluationScores, error)
	BatchScores(ctx context.Context, caller Caller, ids []string) (map[string]*models.EvaluationScores, error)
	Summary(ctx context.Context, caller Caller, id string) (string, error)
}

type evaluationService struct {
	repo        pgrepo.EvaluationRepository
	profiles    pgrepo.ProfileRepository
	taxonomy    pgrepo.TaxonomyRepository
	qualifiers  pgrepo.QualifierRepository
	jobProfiles pgrepo.JobProfileRepository
	scores      ScoreService
	events      EvaluationEvents
	llm         llm.Provider
	log         *logrus.Logger

	now   func() time.Time
	idGen func() string
}

type EvaluationDeps struct {
	Evaluations pgrepo.EvaluationRepository
	Profiles    pgrepo.ProfileRepository
	Taxonomy    pgrepo.TaxonomyRepository
	Qualifiers  pgrepo.QualifierRepository
	JobProfiles pgrepo.JobProfileRepository
	Scores      ScoreService
	Events      EvaluationEvents
	// LLM is optional; without it Summary reports UNAVAILABLE.
	LLM llm.Provider
	Log *logrus.Logger
}

func NewEvaluationService(d EvaluationDeps) EvaluationService {
	return &evaluationService{
		repo:        d.Evaluations,
		profiles:    d.Profiles,
		taxonomy:    d.Taxonomy,
		qualifiers:  d.Qualifiers,
		jobProfiles: d.JobProfiles,
		scores:      d.Scores,
		events:      d.Events,
		llm:         d.LLM,
		log:         d.Log,
		now:         func() time.Time { return time.Now().UTC() },
		idGen:       uuid.NewString,
	}
}

func (s *evaluationService) worker(ctx context.Context, op, id string) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load worker", "", err)
	}
	return p, nil
}

// load returns the evaluation and its worker after checking that caller may
// read it, or edit it when write is set.
func (s *evaluationService) load(ctx context.Context, op string, caller Caller, id string, write bool) (*models.Evaluation, *models.Profile, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, utils.DB(op, "failed to load evaluation", "", err)
	}
	w, err := s.worker(ctx, op, e.WorkerID)
	if err != nil {
		return nil, nil, err
	}
	allowed := caller.CanView(w)
	if write {
		allowed = caller.Role.CanEvaluate() && caller.CanManage(w)
	}
	if !allowed {
		return nil, nil, forbidden(op)
	}
	return e, w, nil
}

func (s *evaluationService) Create(ctx context.Context, caller Caller, in CreateEvaluationInput) (*models.Evaluation, bool, error) {
	const op = "EvaluationService.Create"

	if !caller.Role.CanEvaluate() {
		return nil, false, forbidden(op)
	}
	if in.WorkerID == "" {
		return nil, false, invalid(op, "worker_id requis")
	}
	w, err := s.worker(ctx, op, in.WorkerID)
	if err != nil {
		return nil, false, err
	}
	if !caller.CanManage(w) {
		return nil, false, forbidden(op)
	}
	if !w.IsActive {
		return nil, false, invalid(op, "Collaborateur désactivé")
	}

	jpID := in.JobProfileID
	if deref(jpID) == "" {
		jpID = w.JobProfileID
	}
	if jpID != nil {
		if _, err := s.jobProfiles.Get(ctx, *jpID); err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, false, invalid(op, "Profil métier introuvable")
			}
			return nil, false, utils.E(utils.CodeInternal, op, "failed to load job profile", err)
		}
	}

	if in.IsContinuous {
		existing, err := s.repo.FindContinuous(ctx, w.ID, jpID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, false, utils.E(utils.CodeInternal, op, "failed to look up continuous evaluation", err)
		}
	}

	now := s.now()
	e := &models.Evaluation{
		ID:           s.idGen(),
		WorkerID:     w.ID,
		EvaluatorID:  caller.ID,
		JobProfileID: jpID,
		Status:       models.StatusDraft,
		IsContinuous: in.IsContinuous,
		Comment:      strings.TrimSpace(in.Comment),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		// lost a race on the continuous unique index
		if in.IsContinuous && utils.IsCode(utils.DB(op, "", "", err), utils.CodeConflict) {
			if existing, ferr := s.repo.FindContinuous(ctx, w.ID, jpID); ferr == nil {
				return existing, false, nil
			}
		}
		return nil, false, utils.DB(op, "failed to create evaluation", "", err)
	}
	return e, true, nil
}

func (s *evaluationService) Get(ctx context.Context, caller Caller, id string) (*models.Evaluation, error) {
	const op = "EvaluationService.Get"

	if _, _, err := s.load(ctx, op, caller, id, false); err != nil {
		return nil, err
	}
	e, err := s.repo.GetWithResults(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load evaluation", "", err)
	}
	return e, nil
}

func (s *evaluationService) ListForWorker(ctx context.Context, caller Caller, workerID string) ([]models.Evaluation, error) {
	const op = "EvaluationService.ListForWorker"

	w, err := s.worker(ctx, op, workerID)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(w) {
		return nil, forbidden(op)
	}
	rows, err := s.repo.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list evaluations", err)
	}
	if rows == nil {
		rows = []models.Evaluation{}
	}
	return rows, nil
}

func (s *evaluationService) SaveResult(ctx context.Context, caller Caller, evaluationID string, in SaveResultInput) (*models.EvaluationResult, error) {
	const op = "EvaluationService.SaveResult"

	e, _, err := s.load(ctx, op, caller, evaluationID, true)
	if err != nil {
		return nil, err
	}
	if e.Status == models.StatusCompleted {
		return nil, utils.E(utils.CodeConflict, op, msgReadOnly, nil)
	}
	if in.CompetencyID == "" {
		return nil, invalid(op, "competency_id requis")
	}
	if _, err := s.taxonomy.GetCompetency(ctx, in.CompetencyID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, invalid(op, "Compétence introuvable")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load competency", err)
	}

	qualifiers, err := s.qualifiers.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load qualifiers", err)
	}
	now := s.now()
	res := &models.EvaluationResult{
		ID:           s.idGen(),
		EvaluationID: e.ID,
		CompetencyID: in.CompetencyID,
		EvaluatorID:  caller.ID,
		Comment:      strings.TrimSpace(in.Comment),
		UpdatedAt:    now,
	}
	res.Qualifiers, err = buildAnswers(op, res.ID, qualifiers, in.Answers, s.idGen)
	if err != nil {
		return nil, err
	}

	status := e.Status
	if status == models.StatusDraft {
		status = models.StatusInProgress
	}
	if err := s.repo.ReplaceResult(ctx, res, status); err != nil {
		return nil, utils.DB(op, "failed to save result", msgReadOnly, err)
	}

	s.scores.Invalidate(ctx, e.ID)
	s.notify(ctx, e.ID, caller.ID)
	return res, nil
}

// buildAnswers checks that every option belongs to the qualifier it is sent
// under and that single-choice qualifiers carry at most one option.
func buildAnswers(op, resultID string, qualifiers []models.Qualifier, answers []AnswerInput, idGen func() string) ([]models.EvaluationResultQualifier, error) {
	byID := make(map[string]models.Qualifier, len(qualifiers))
	for _, q := range qualifiers {
		byID[q.ID] = q
	}

	out := []models.EvaluationResultQualifier{}
	seenQual := map[string]bool{}
	for _, a := range answers {
		q, ok := byID[a.QualifierID]
		if !ok {
			return nil, invalid(op, "Qualificatif introuvable : "+a.QualifierID)
		}
		if seenQual[q.ID] {
			return nil, invalid(op, "Qualificatif en double : "+q.Name)
		}
		seenQual[q.ID] = true

		owned := map[string]bool{}
		for _, o := range q.Options {
			owned[o.ID] = true
		}
		picked := map[string]bool{}
		for _, oid := range a.OptionIDs {
			if !owned[oid] {
				return nil, invalid(op, fmt.Sprintf("Option invalide pour le qualificatif %s", q.Name))
			}
			picked[oid] = true
		}
		if q.Type == models.QualifierSingleChoice && len(picked) > 1 {
			return nil, invalid(op, "Un seul choix possible pour "+q.Name)
		}
		// keep the request order, without repeats
		done := map[string]bool{}
		for _, oid := range a.OptionIDs {
			if done[oid] {
				continue
			}
			done[oid] = true
			out = append(out, models.EvaluationResultQualifier{
				ID:          idGen(),
				ResultID:    resultID,
				QualifierID: q.ID,
				OptionID:    oid,
			})
		}
	}
	return out, nil
}

func (s *evaluationService) notify(ctx context.Context, evaluationID, actorID string) {
	if s.events == nil {
		return
	}
	if err := s.events.EvaluationSaved(ctx, evaluationID, actorID); err != nil {
		s.log.WithError(err).WithField("evaluation_id", evaluationID).Warn("evaluation event not published")
	}
}

func (s *evaluationService) Complete(ctx context.Context, caller Caller, id string) (*models.Evaluation, error) {
	const op = "EvaluationService.Complete"

	e, _, err := s.load(ctx, op, caller, id, true)
	if err != nil {
		return nil, err
	}
	if e.IsContinuous {
		return nil, invalid(op, msgContinuousNoClose)
	}
	if e.Status != models.StatusInProgress || !e.Status.CanTransition(models.StatusCompleted) {
		return nil, utils.E(utils.CodeConflict, op, msgBadTransition, nil)
	}

	now := s.now()
	if err := s.repo.Complete(ctx, id, now); err != nil {
		return nil, utils.DB(op, "failed to complete evaluation", "", err)
	}
	e.Status = models.StatusCompleted
	e.CompletedAt = &now
	e.UpdatedAt = now

	s.notify(ctx, e.ID, caller.ID)
	return e, nil
}

func (s *evaluationService) Scores(ctx context.Context, caller Caller, id string) (*models.EvaluationScores, error) {
	const op = "EvaluationService.Scores"

	if _, _, err := s.load(ctx, op, caller, id, false); err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			return emptyScores(id), nil
		}
		return nil, err
	}
	return s.scores.ModuleScores(ctx, id)
}

func (s *evaluationService) BatchScores(ctx context.Context, caller Caller, ids []string) (map[string]*models.EvaluationScores, error) {
	const op = "EvaluationService.BatchScores"

	if len(ids) == 0 {
		return map[string]*models.EvaluationScores{}, nil
	}
	if len(ids) > 200 {
		return nil, invalid(op, "200 évaluations maximum par requête")
	}
	allowed := make([]string, 0, len(ids))
	for _, id := range ids {
		_, _, err := s.load(ctx, op, caller, id, false)
		switch {
		case err == nil:
			allowed = append(allowed, id)
		case utils.IsCode(err, utils.CodeNotFound):
			// reported as empty below
		default:
			return nil, err
		}
	}

	out, err := s.scores.BatchModuleScores(ctx, allowed)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to compute scores", err)
	}
	for _, id := range ids {
		if out[id] == nil {
			out[id] = emptyScores(id)
		}
	}
	return out, nil
}

func (s *evaluationService) Summary(ctx context.Context, caller Caller, id string) (string, error) {
	const op = "EvaluationService.Summary"

	if s.llm == nil {
		return "", utils.E(utils.CodeUnavailable, op, "Synthèse indisponible", nil)
	}
	e, w, err := s.load(ctx, op, caller, id, false)
	if err != nil {
		return "", err
	}
	sc, err := s.scores.ModuleScores(ctx, id)
	if err != nil {
		return "", err
	}
	jobName := ""
	if e.JobProfileID != nil {
		if jp, err := s.jobProfiles.Get(ctx, *e.JobProfileID); err == nil {
			jobName = jp.Name
		}
	}

	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()
	text, err := llm.Collect(ctx, s.llm, summaryPrompt(w, jobName, sc))
	if errors.Is(err, context.DeadlineExceeded) {
		return "", utils.E(utils.CodeTimeout, op, "La synthèse a expiré", err)
	}
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "Synthèse indisponible", err)
	}
	return text, nil
}

func summaryPrompt(w *models.Profile, jobName string, sc *models.EvaluationScores) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Collaborateur : %s", w.FullName())
	if w.JobTitle != "" {
		fmt.Fprintf(&b, " (%s)", w.JobTitle)
	}
	b.WriteString("\n")
	if jobName != "" {
		fmt.Fprintf(&b, "Profil métier : %s\n", jobName)
	}
	fmt.Fprintf(&b, "Score global : %.1f%%\n\nModules (score / attendu) :\n", sc.Overall)
	for _, m := range sc.Modules {
		indent := "- "
		if m.ParentID != nil {
			indent = "  - "
		}
		fmt.Fprintf(&b, "%s%s : %.1f%% / %.1f%% (%d/%d compétences évaluées)\n",
			indent, m.ModuleName, m.Score, m.Expected, m.Answered, m.Total)
	}
	b.WriteString("\nRédige une synthèse de 5 phrases maximum : points forts, écarts principaux par rapport aux attentes, et deux axes de progression concrets.")
	return b.String()
}
