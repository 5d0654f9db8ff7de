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

type LocationService interface {
	List(ctx context.Context) ([]models.Location, error)
	Create(ctx context.Context, caller Caller, name, address string) (*models.Location, error)
}

type locationService struct {
	repo pgrepo.LocationRepository
}

func NewLocationService(repo pgrepo.LocationRepository) LocationService {
	return &locationService{repo: repo}
}

func (s *locationService) List(ctx context.Context) ([]models.Location, error) {
	const op = "LocationService.List"

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list locations", err)
	}
	if rows == nil {
		rows = []models.Location{}
	}
	return rows, nil
}

func (s *locationService) Create(ctx context.Context, caller Caller, name, address string) (*models.Location, error) {
	const op = "LocationService.Create"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid(op, "Nom du site requis")
	}

	existing, err := s.repo.IDsByName(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load locations", err)
	}
	if _, ok := existing[utils.Fold(name)]; ok {
		return nil, utils.E(utils.CodeConflict, op, "Site déjà existant", nil)
	}

	l := &models.Location{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   strings.TrimSpace(address),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, utils.DB(op, "failed to create location", "Site déjà existant", err)
	}
	return l, nil
}
