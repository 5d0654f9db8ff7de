package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/skillradar/internal/cache"
	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/scoring"
	"github.com/yoockh/skillradar/internal/utils"
)

const batchScoreConcurrency = 8

// ScoreInvalidator retires every cached score. Taxonomy, qualifier and
// job-profile writes call it since they change how scores are computed.
type ScoreInvalidator interface {
	InvalidateAll(ctx context.Context)
}

type ScoreService interface {
	ScoreInvalidator
	// ModuleScores serves from cache when possible. A missing evaluation or
	// job profile yields an empty result, not an error.
	ModuleScores(ctx context.Context, evaluationID string) (*models.EvaluationScores, error)
	// Compute always reads the database and refreshes the cache.
	Compute(ctx context.Context, evaluationID string) (*models.EvaluationScores, error)
	BatchModuleScores(ctx context.Context, evaluationIDs []string) (map[string]*models.EvaluationScores, error)
	Invalidate(ctx context.Context, evaluationID string)
}

type ScoreConfig struct {
	DefaultExpected float64
	CacheTTL        time.Duration
}

type scoreService struct {
	cfg         ScoreConfig
	evaluations pgrepo.EvaluationRepository
	taxonomy    pgrepo.TaxonomyRepository
	qualifiers  pgrepo.QualifierRepository
	jobProfiles pgrepo.JobProfileRepository
	cache       cache.Cache
	log         *logrus.Logger
}

func NewScoreService(cfg ScoreConfig, evaluations pgrepo.EvaluationRepository, taxonomy pgrepo.TaxonomyRepository, qualifiers pgrepo.QualifierRepository, jobProfiles pgrepo.JobProfileRepository, c cache.Cache, log *logrus.Logger) ScoreService {
	if cfg.DefaultExpected <= 0 {
		cfg.DefaultExpected = scoring.DefaultExpected
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &scoreService{
		cfg:         cfg,
		evaluations: evaluations,
		taxonomy:    taxonomy,
		qualifiers:  qualifiers,
		jobProfiles: jobProfiles,
		cache:       c,
		log:         log,
	}
}

func emptyScores(id string) *models.EvaluationScores {
	return &models.EvaluationScores{EvaluationID: id, Modules: []models.ModuleScore{}}
}

// generation returns the current score generation. ok is false when it
// cannot be read, in which case the cache is bypassed entirely.
func (s *scoreService) generation(ctx context.Context) (int64, bool) {
	gen, err := s.cache.Counter(ctx, cache.ScoresGenKey)
	if err != nil {
		s.log.WithError(err).Debug("score generation read failed")
		return 0, false
	}
	return gen, true
}

func (s *scoreService) ModuleScores(ctx context.Context, evaluationID string) (*models.EvaluationScores, error) {
	if gen, ok := s.generation(ctx); ok {
		var cached models.EvaluationScores
		hit, err := s.cache.GetJSON(ctx, cache.ScoresKey(gen, evaluationID), &cached)
		if err != nil {
			s.log.WithError(err).Debug("score cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}
	return s.Compute(ctx, evaluationID)
}

func (s *scoreService) Compute(ctx context.Context, evaluationID string) (*models.EvaluationScores, error) {
	const op = "ScoreService.Compute"

	// read before loading so a concurrent bump leaves this result unreachable
	gen, cacheable := s.generation(ctx)

	e, err := s.evaluations.GetWithResults(ctx, evaluationID)
	if errors.Is(err, utils.ErrNotFound) {
		return emptyScores(evaluationID), nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load evaluation", err)
	}

	in, ok, err := s.input(ctx, e)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load taxonomy", err)
	}
	if !ok {
		return emptyScores(evaluationID), nil
	}

	modules := scoring.ModuleScores(in)
	out := &models.EvaluationScores{
		EvaluationID: evaluationID,
		Overall:      scoring.Overall(modules),
		Modules:      modules,
	}
	if cacheable {
		if err := s.cache.SetJSON(ctx, cache.ScoresKey(gen, evaluationID), out, s.cfg.CacheTTL); err != nil {
			s.log.WithError(err).Debug("score cache write failed")
		}
	}
	return out, nil
}

// input gathers everything the aggregator needs. ok is false when the
// evaluation references a job profile that no longer exists.
//
// The scored modules are the job profile's linked modules and their
// children, the modules of its competency overrides, and every module the
// evaluation has answers in. Modules outside the links report expected 0.
func (s *scoreService) input(ctx context.Context, e *models.Evaluation) (scoring.Input, bool, error) {
	var in scoring.Input

	modules, err := s.taxonomy.ListModules(ctx)
	if err != nil {
		return in, false, err
	}
	qualifiers, err := s.qualifiers.List(ctx)
	if err != nil {
		return in, false, err
	}
	in.Modules = modules
	in.Qualifiers = qualifiers

	var answered []string
	seen := map[string]bool{}
	for _, r := range e.Results {
		for _, q := range r.Qualifiers {
			if !seen[r.CompetencyID] {
				seen[r.CompetencyID] = true
				answered = append(answered, r.CompetencyID)
			}
			in.Answers = append(in.Answers, scoring.Answer{
				CompetencyID: r.CompetencyID,
				QualifierID:  q.QualifierID,
				OptionID:     q.OptionID,
			})
		}
	}

	if e.JobProfileID == nil {
		in.Competencies, err = s.taxonomy.CompetenciesByID(ctx, answered)
		return in, true, err
	}

	jp, err := s.jobProfiles.Get(ctx, *e.JobProfileID)
	if errors.Is(err, utils.ErrNotFound) {
		return in, false, nil
	}
	if err != nil {
		return in, false, err
	}

	exp := &scoring.Expectations{
		Modules:      map[string]*float64{},
		Competencies: map[string]models.JobProfileCompetency{},
		Default:      s.cfg.DefaultExpected,
	}
	scope := map[string]bool{}
	for _, l := range jp.Modules {
		exp.Modules[l.ModuleID] = l.ExpectedScore
		scope[l.ModuleID] = true
	}

	extra := append([]string(nil), answered...)
	for _, l := range jp.Competencies {
		exp.Competencies[l.CompetencyID] = l
		if !seen[l.CompetencyID] {
			extra = append(extra, l.CompetencyID)
		}
	}
	if len(extra) > 0 {
		found, err := s.taxonomy.CompetenciesByID(ctx, extra)
		if err != nil {
			return in, false, err
		}
		for _, c := range found {
			scope[c.ModuleID] = true
		}
	}

	// children of a scored module are scored too, and a scored child brings
	// its parent so the rollup covers the parent's own competencies
	parents := map[string]bool{}
	for _, m := range modules {
		if m.ParentID != nil && scope[m.ID] {
			parents[*m.ParentID] = true
		}
	}
	for id := range parents {
		scope[id] = true
	}
	for _, m := range modules {
		if m.ParentID != nil && scope[*m.ParentID] {
			scope[m.ID] = true
		}
	}

	if len(jp.Qualifiers) > 0 {
		in.AllowedQualifiers = map[string]bool{}
		for _, l := range jp.Qualifiers {
			in.AllowedQualifiers[l.QualifierID] = true
		}
	}

	ids := make([]string, 0, len(scope))
	for _, m := range modules {
		if scope[m.ID] {
			ids = append(ids, m.ID)
		}
	}
	in.Expectations = exp
	in.Competencies, err = s.taxonomy.CompetenciesInModules(ctx, ids)
	return in, true, err
}

func (s *scoreService) BatchModuleScores(ctx context.Context, evaluationIDs []string) (map[string]*models.EvaluationScores, error) {
	out := make(map[string]*models.EvaluationScores, len(evaluationIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchScoreConcurrency)
	for _, id := range evaluationIDs {
		mu.Lock()
		_, dup := out[id]
		out[id] = nil
		mu.Unlock()
		if dup {
			continue
		}

		g.Go(func() error {
			res, err := s.ModuleScores(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *scoreService) Invalidate(ctx context.Context, evaluationID string) {
	gen, ok := s.generation(ctx)
	if !ok {
		return
	}
	if err := s.cache.Del(ctx, cache.ScoresKey(gen, evaluationID)); err != nil {
		s.log.WithError(err).WithField("evaluation_id", evaluationID).Warn("score cache invalidation failed")
	}
}

func (s *scoreService) InvalidateAll(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, cache.ScoresGenKey); err != nil {
		s.log.WithError(err).Warn("score generation bump failed")
	}
}

// retireScores is a nil-safe InvalidateAll for services built without a
// score service, such as the admin CLI.
func retireScores(ctx context.Context, inv ScoreInvalidator) {
	if inv != nil {
		inv.InvalidateAll(ctx)
	}
}
