package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

type OptionInput struct {
	Label     string
	Value     float64
	SortOrder int
}

type QualifierInput struct {
	Name        string
	Description string
	Type        models.QualifierType
	SortOrder   int
	Options     []OptionInput
}

type QualifierService interface {
	List(ctx context.Context) ([]models.Qualifier, error)
	Get(ctx context.Context, id string) (*models.Qualifier, error)
	Create(ctx context.Context, caller Caller, in QualifierInput) (*models.Qualifier, error)
	Update(ctx context.Context, caller Caller, id string, in QualifierInput) (*models.Qualifier, error)
	Delete(ctx context.Context, caller Caller, id string) error
}

type qualifierService struct {
	repo   pgrepo.QualifierRepository
	scores ScoreInvalidator
	now    func() time.Time
}

func NewQualifierService(repo pgrepo.QualifierRepository, scores ScoreInvalidator) QualifierService {
	return &qualifierService{repo: repo, scores: scores, now: func() time.Time { return time.Now().UTC() }}
}

func (s *qualifierService) List(ctx context.Context) ([]models.Qualifier, error) {
	const op = "QualifierService.List"

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list qualifiers", err)
	}
	if rows == nil {
		rows = []models.Qualifier{}
	}
	return rows, nil
}

func (s *qualifierService) Get(ctx context.Context, id string) (*models.Qualifier, error) {
	const op = "QualifierService.Get"

	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load qualifier", "", err)
	}
	return q, nil
}

// buildOptions validates the input and returns fresh option rows for qualifierID.
func buildOptions(op, qualifierID string, in QualifierInput) ([]models.QualifierOption, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid(op, "Nom du qualificatif requis")
	}
	if in.Type != models.QualifierSingleChoice && in.Type != models.QualifierMultipleChoice {
		return nil, invalid(op, "Type de qualificatif invalide : "+string(in.Type))
	}
	if len(in.Options) == 0 {
		return nil, invalid(op, "Au moins une option est requise")
	}

	seen := map[string]bool{}
	out := make([]models.QualifierOption, 0, len(in.Options))
	for i, o := range in.Options {
		label := strings.TrimSpace(o.Label)
		if label == "" {
			return nil, invalid(op, "Libellé d'option requis")
		}
		key := utils.Fold(label)
		if seen[key] {
			return nil, invalid(op, "Option en double : "+label)
		}
		seen[key] = true

		order := o.SortOrder
		if order == 0 {
			order = i + 1
		}
		out = append(out, models.QualifierOption{
			ID:          uuid.NewString(),
			QualifierID: qualifierID,
			Label:       label,
			Value:       o.Value,
			SortOrder:   order,
		})
	}
	return out, nil
}

func (s *qualifierService) Create(ctx context.Context, caller Caller, in QualifierInput) (*models.Qualifier, error) {
	const op = "QualifierService.Create"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	id := uuid.NewString()
	opts, err := buildOptions(op, id, in)
	if err != nil {
		return nil, err
	}
	q := &models.Qualifier{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		SortOrder:   in.SortOrder,
		Options:     opts,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, utils.DB(op, "failed to create qualifier", "", err)
	}
	return q, nil
}

func (s *qualifierService) Update(ctx context.Context, caller Caller, id string, in QualifierInput) (*models.Qualifier, error) {
	const op = "QualifierService.Update"

	if !canEditTaxonomy(caller) {
		return nil, forbidden(op)
	}
	opts, err := buildOptions(op, id, in)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load qualifier", "", err)
	}
	// keep option ids stable by label so recorded answers survive the edit
	byLabel := map[string]string{}
	for _, o := range current.Options {
		byLabel[utils.Fold(o.Label)] = o.ID
	}
	for i := range opts {
		if prev, ok := byLabel[utils.Fold(opts[i].Label)]; ok {
			opts[i].ID = prev
		}
	}

	fields := map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"description": strings.TrimSpace(in.Description),
		"type":        in.Type,
		"sort_order":  in.SortOrder,
	}
	if err := s.repo.Update(ctx, id, fields, opts); err != nil {
		return nil, utils.DB(op, "failed to update qualifier", "", err)
	}
	retireScores(ctx, s.scores)
	return s.Get(ctx, id)
}

func (s *qualifierService) Delete(ctx context.Context, caller Caller, id string) error {
	const op = "QualifierService.Delete"

	if !canEditTaxonomy(caller) {
		return forbidden(op)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return utils.DB(op, "failed to delete qualifier", "", err)
	}
	retireScores(ctx, s.scores)
	return nil
}
