package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

const msgModuleDepth = "Un module ne peut avoir qu'un seul niveau de sous-modules"

type ModuleInput struct {
	Name        string
	Description string
	ParentID    *string
	Icon        string
	Color       string
	SortOrder   int
}

type CompetencyInput struct {
	ModuleID    string
	Name        string
	Description string
	Keywords    []string
	SortOrder   int
}

type TaxonomyService interface {
	// ModuleTree returns top-level modules with their children attached.
	ModuleTree(ctx context.Context) ([]models.Module, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
	CreateModule(ctx context.Context, caller Caller, in ModuleInput) (*models.Module, error)
	UpdateModule(ctx context.Context, caller Caller, id string, in ModuleInput) (*models.Module, error)
	DeleteModule(ctx context.Context, caller Caller, id string) error

	ListCompetencies(ctx context.Context, f pgrepo.CompetencyFilter) ([]models.Competency, error)
	CreateCompetency(ctx context.Context, caller Caller, in CompetencyInput) (*models.Competency, error)
	UpdateCompetency(ctx context.Context, caller Caller, id string, in CompetencyInput) (*models.Competency, error)
	DeleteCompetency(ctx context.Context, caller Caller, id string) error
}

type taxonomyService struct {
	repo   pgrepo.TaxonomyRepository
	scores ScoreInvalidator
	now    func() time.Time
}

func NewTaxonomyService(repo pgrepo.TaxonomyRepository, scores ScoreInvalidator) TaxonomyService {
	return &taxonomyService{repo: repo, scores: scores, now: func() time.Time { return time.Now().UTC() }}
}

func canEditTaxonomy(c Caller) bool {
	return c.Is(models.RoleSuperAdmin, models.RoleSkillMaster)
}

func (s *taxonomyService) ModuleTree(ctx context.Context) ([]models.Module, error) {
	const op = "TaxonomyService.ModuleTree"

	rows, err := s.repo.ListModules(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list modules", err)
	}
	return BuildModuleTree(rows), nil
}

// BuildModuleTree nests children under their parent, keeping input order.
// Orphans whose parent is missing are promoted to the top level.
func BuildModuleTree(rows []models.Module) []models.Module {
	index := make(map[string]bool, len(rows))
	for _, m := range rows {
		index[m.ID] = true
	}
	children := map[string][]models.Module{}
	for _, m := range rows {
		if m.ParentID != nil && index[*m.ParentID] {
			children[*m.ParentID] = append(children[*m.ParentID], m)
		}
	}
	out := []models.Module{}
	for _, m := range rows {
		if m.ParentID != nil && index[*m.ParentID] {
			continue
		}
		m.Children = children[m.ID]
		out = append(out, m)
	}
	return out
}

func (s *taxonomyService) GetModule(ctx context.Context, id string) (*models.Module, error) {
	const op = "TaxonomyService.GetModule"

	m, err := s.repo.GetModule(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load module", "", err)
	}
	return m, nil
}

func (s *taxonomyService) checkParent(ctx context.Context, op, selfID string, parentID *string) (*string, error) {
	id := deref(parentID)
	if id == "" {
		return nil, nil
	}
	if id == selfID {
		return nil, invalid(op, msgModuleDepth)
	}
	parent, err := s.repo.GetModule(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, invalid(op, "Module parent introuvable")
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load parent", err)
	}
	if parent.ParentID != nil {
		return nil, invalid(op, msgModuleDepth)
	}
	return &id, nil
}

func (s *taxonomyService) CreateModule(ctx context.Context, caller Caller, in ModuleInput) (*models.Module, error) {
	const op = "TaxonomyService.CreateModule"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(op, "Nom du module requis")
	}
	id := uuid.NewString()
	parent, err := s.checkParent(ctx, op, id, in.ParentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := &models.Module{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ParentID:    parent,
		Icon:        in.Icon,
		Color:       in.Color,
		SortOrder:   in.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateModule(ctx, m); err != nil {
		return nil, utils.DB(op, "failed to create module", "", err)
	}
	return m, nil
}

func (s *taxonomyService) UpdateModule(ctx context.Context, caller Caller, id string, in ModuleInput) (*models.Module, error) {
	const op = "TaxonomyService.UpdateModule"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(op, "Nom du module requis")
	}
	parent, err := s.checkParent(ctx, op, id, in.ParentID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		n, err := s.repo.CountChildren(ctx, id)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to count children", err)
		}
		if n > 0 {
			return nil, invalid(op, msgModuleDepth)
		}
	}

	err = s.repo.UpdateModule(ctx, id, map[string]any{
		"name":        name,
		"description": strings.TrimSpace(in.Description),
		"parent_id":   parent,
		"icon":        in.Icon,
		"color":       in.Color,
		"sort_order":  in.SortOrder,
		"updated_at":  s.now(),
	})
	if err != nil {
		return nil, utils.DB(op, "failed to update module", "", err)
	}
	retireScores(ctx, s.scores)
	return s.GetModule(ctx, id)
}

func (s *taxonomyService) DeleteModule(ctx context.Context, caller Caller, id string) error {
	const op = "TaxonomyService.DeleteModule"

	if !canEditTaxonomy(caller) {
		return forbidden(op)
	}
	if err := s.repo.DeleteModule(ctx, id); err != nil {
		return utils.DB(op, "failed to delete module", "", err)
	}
	retireScores(ctx, s.scores)
	return nil
}

func (s *taxonomyService) ListCompetencies(ctx context.Context, f pgrepo.CompetencyFilter) ([]models.Competency, error) {
	const op = "TaxonomyService.ListCompetencies"

	rows, err := s.repo.ListCompetencies(ctx, f)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list competencies", err)
	}
	if rows == nil {
		rows = []models.Competency{}
	}
	return rows, nil
}

func (s *taxonomyService) competencyFields(ctx context.Context, op string, in CompetencyInput) (map[string]any, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(op, "Nom de la compétence requis")
	}
	if in.ModuleID == "" {
		return nil, invalid(op, "module_id requis")
	}
	if _, err := s.repo.GetModule(ctx, in.ModuleID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, invalid(op, "Module introuvable")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load module", err)
	}
	return map[string]any{
		"module_id":   in.ModuleID,
		"name":        name,
		"description": strings.TrimSpace(in.Description),
		"keywords":    cleanKeywords(in.Keywords),
		"sort_order":  in.SortOrder,
	}, nil
}

func cleanKeywords(in []string) pq.StringArray {
	out := pq.StringArray{}
	seen := map[string]bool{}
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" || seen[utils.Fold(k)] {
			continue
		}
		seen[utils.Fold(k)] = true
		out = append(out, k)
	}
	return out
}

func (s *taxonomyService) CreateCompetency(ctx context.Context, caller Caller, in CompetencyInput) (*models.Competency, error) {
	const op = "TaxonomyService.CreateCompetency"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	fields, err := s.competencyFields(ctx, op, in)
	if err != nil {
		return nil, err
	}
	c := &models.Competency{
		ID:          uuid.NewString(),
		ModuleID:    in.ModuleID,
		Name:        fields["name"].(string),
		Description: fields["description"].(string),
		Keywords:    fields["keywords"].(pq.StringArray),
		SortOrder:   in.SortOrder,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateCompetency(ctx, c); err != nil {
		return nil, utils.DB(op, "failed to create competency", "", err)
	}
	retireScores(ctx, s.scores)
	return c, nil
}

func (s *taxonomyService) UpdateCompetency(ctx context.Context, caller Caller, id string, in CompetencyInput) (*models.Competency, error) {
	const op = "TaxonomyService.UpdateCompetency"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	fields, err := s.competencyFields(ctx, op, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompetency(ctx, id, fields); err != nil {
		return nil, utils.DB(op, "failed to update competency", "", err)
	}
	retireScores(ctx, s.scores)
	c, err := s.repo.GetCompetency(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load competency", "", err)
	}
	return c, nil
}

func (s *taxonomyService) DeleteCompetency(ctx context.Context, caller Caller, id string) error {
	const op = "TaxonomyService.DeleteCompetency"

	if !canEditTaxonomy(caller) {
		return forbidden(op)
	}
	if err := s.repo.DeleteCompetency(ctx, id); err != nil {
		return utils.DB(op, "failed to delete competency", "", err)
	}
	retireScores(ctx, s.scores)
	return nil
}
