package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

const msgJobProfileExists = "Profil métier déjà existant"

type ModuleLinkInput struct {
	ModuleID      string
	ExpectedScore *float64
}

type CompetencyLinkInput struct {
	CompetencyID  string
	Weight        *float64
	ExpectedScore *float64
}

type JobProfileService interface {
	List(ctx context.Context) ([]models.JobProfile, error)
	Get(ctx context.Context, id string) (*models.JobProfile, error)
	Create(ctx context.Context, caller Caller, name, description string) (*models.JobProfile, error)
	Update(ctx context.Context, caller Caller, id, name, description string) (*models.JobProfile, error)
	Delete(ctx context.Context, caller Caller, id string) error

	SetModules(ctx context.Context, caller Caller, id string, links []ModuleLinkInput) (*models.JobProfile, error)
	SetQualifiers(ctx context.Context, caller Caller, id string, qualifierIDs []string) (*models.JobProfile, error)
	SetCompetencies(ctx context.Context, caller Caller, id string, links []CompetencyLinkInput) (*models.JobProfile, error)
}

type jobProfileService struct {
	repo       pgrepo.JobProfileRepository
	taxonomy   pgrepo.TaxonomyRepository
	qualifiers pgrepo.QualifierRepository
	scores     ScoreInvalidator
	now        func() time.Time
}

// NewJobProfileService takes an optional score invalidator; link changes
// retire every cached score through it.
func NewJobProfileService(repo pgrepo.JobProfileRepository, taxonomy pgrepo.TaxonomyRepository, qualifiers pgrepo.QualifierRepository, scores ScoreInvalidator) JobProfileService {
	return &jobProfileService{
		repo:       repo,
		taxonomy:   taxonomy,
		qualifiers: qualifiers,
		scores:     scores,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *jobProfileService) List(ctx context.Context) ([]models.JobProfile, error) {
	const op = "JobProfileService.List"

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list job profiles", err)
	}
	if rows == nil {
		rows = []models.JobProfile{}
	}
	return rows, nil
}

func (s *jobProfileService) Get(ctx context.Context, id string) (*models.JobProfile, error) {
	const op = "JobProfileService.Get"

	jp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load job profile", "", err)
	}
	return jp, nil
}

func (s *jobProfileService) Create(ctx context.Context, caller Caller, name, description string) (*models.JobProfile, error) {
	const op = "JobProfileService.Create"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid(op, "Nom du profil métier requis")
	}
	now := s.now()
	jp := &models.JobProfile{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, jp); err != nil {
		return nil, utils.DB(op, "failed to create job profile", msgJobProfileExists, err)
	}
	return jp, nil
}

func (s *jobProfileService) Update(ctx context.Context, caller Caller, id, name, description string) (*models.JobProfile, error) {
	const op = "JobProfileService.Update"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid(op, "Nom du profil métier requis")
	}
	err := s.repo.Update(ctx, id, map[string]any{
		"name":        name,
		"description": strings.TrimSpace(description),
		"updated_at":  s.now(),
	})
	if err != nil {
		return nil, utils.DB(op, "failed to update job profile", msgJobProfileExists, err)
	}
	return s.Get(ctx, id)
}

func (s *jobProfileService) Delete(ctx context.Context, caller Caller, id string) error {
	const op = "JobProfileService.Delete"

	if !canEditTaxonomy(caller) {
		return forbidden(op)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return utils.DB(op, "failed to delete job profile", "", err)
	}
	retireScores(ctx, s.scores)
	return nil
}

func validScore(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

func (s *jobProfileService) SetModules(ctx context.Context, caller Caller, id string, links []ModuleLinkInput) (*models.JobProfile, error) {
	const op = "JobProfileService.SetModules"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	modules, err := s.taxonomy.ListModules(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list modules", err)
	}
	known := map[string]bool{}
	for _, m := range modules {
		known[m.ID] = true
	}

	rows := make([]models.JobProfileModule, 0, len(links))
	seen := map[string]bool{}
	for _, l := range links {
		if !known[l.ModuleID] {
			return nil, invalid(op, "Module introuvable : "+l.ModuleID)
		}
		if !validScore(l.ExpectedScore) {
			return nil, invalid(op, "Le score attendu doit être compris entre 0 et 100")
		}
		if seen[l.ModuleID] {
			continue
		}
		seen[l.ModuleID] = true
		rows = append(rows, models.JobProfileModule{JobProfileID: id, ModuleID: l.ModuleID, ExpectedScore: l.ExpectedScore})
	}
	if err := s.repo.ReplaceModules(ctx, id, rows); err != nil {
		return nil, utils.DB(op, "failed to store modules", "", err)
	}
	retireScores(ctx, s.scores)
	return s.Get(ctx, id)
}

func (s *jobProfileService) SetQualifiers(ctx context.Context, caller Caller, id string, qualifierIDs []string) (*models.JobProfile, error) {
	const op = "JobProfileService.SetQualifiers"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	all, err := s.qualifiers.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list qualifiers", err)
	}
	known := map[string]bool{}
	for _, q := range all {
		known[q.ID] = true
	}

	rows := make([]models.JobProfileQualifier, 0, len(qualifierIDs))
	seen := map[string]bool{}
	for _, qid := range qualifierIDs {
		if !known[qid] {
			return nil, invalid(op, "Qualificatif introuvable : "+qid)
		}
		if seen[qid] {
			continue
		}
		seen[qid] = true
		rows = append(rows, models.JobProfileQualifier{JobProfileID: id, QualifierID: qid})
	}
	if err := s.repo.ReplaceQualifiers(ctx, id, rows); err != nil {
		return nil, utils.DB(op, "failed to store qualifiers", "", err)
	}
	retireScores(ctx, s.scores)
	return s.Get(ctx, id)
}

func (s *jobProfileService) SetCompetencies(ctx context.Context, caller Caller, id string, links []CompetencyLinkInput) (*models.JobProfile, error) {
	const op = "JobProfileService.SetCompetencies"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.CompetencyID)
	}
	found, err := s.taxonomy.CompetenciesByID(ctx, ids)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load competencies", err)
	}
	known := map[string]bool{}
	for _, c := range found {
		known[c.ID] = true
	}

	rows := make([]models.JobProfileCompetency, 0, len(links))
	seen := map[string]bool{}
	for _, l := range links {
		if !known[l.CompetencyID] {
			return nil, invalid(op, "Compétence introuvable : "+l.CompetencyID)
		}
		if l.Weight != nil && *l.Weight < 0 {
			return nil, invalid(op, "Le poids doit être positif")
		}
		if !validScore(l.ExpectedScore) {
			return nil, invalid(op, "Le score attendu doit être compris entre 0 et 100")
		}
		if seen[l.CompetencyID] {
			continue
		}
		seen[l.CompetencyID] = true
		rows = append(rows, models.JobProfileCompetency{
			JobProfileID:  id,
			CompetencyID:  l.CompetencyID,
			Weight:        l.Weight,
			ExpectedScore: l.ExpectedScore,
		})
	}
	if err := s.repo.ReplaceCompetencies(ctx, id, rows); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "profil métier introuvable", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to store competencies", err)
	}
	retireScores(ctx, s.scores)
	return s.Get(ctx, id)
}
