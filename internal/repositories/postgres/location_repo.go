package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type LocationRepository interface {
	List(ctx context.Context) ([]models.Location, error)
	Create(ctx context.Context, l *models.Location) error
	// IDsByName returns every location keyed by utils.Fold(name).
	IDsByName(ctx context.Context) (map[string]string, error)
}

type locationRepo struct {
	db *gorm.DB
}

func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) List(ctx context.Context) ([]models.Location, error) {
	var rows []models.Location
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *locationRepo) Create(ctx context.Context, l *models.Location) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *locationRepo) IDsByName(ctx context.Context) (map[string]string, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, l := range rows {
		out[utils.Fold(l.Name)] = l.ID
	}
	return out, nil
}
