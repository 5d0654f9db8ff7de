package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type QualifierRepository interface {
	List(ctx context.Context) ([]models.Qualifier, error)
	Get(ctx context.Context, id string) (*models.Qualifier, error)
	Create(ctx context.Context, q *models.Qualifier) error
	// Update rewrites the qualifier columns. When options is non-nil the
	// option list is replaced as well.
	Update(ctx context.Context, id string, fields map[string]any, options []models.QualifierOption) error
	Delete(ctx context.Context, id string) error
}

type qualifierRepo struct {
	db *gorm.DB
}

func NewQualifierRepo(db *gorm.DB) QualifierRepository {
	return &qualifierRepo{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, value ASC")
}

func (r *qualifierRepo) List(ctx context.Context) ([]models.Qualifier, error) {
	var rows []models.Qualifier
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *qualifierRepo) Get(ctx context.Context, id string) (*models.Qualifier, error) {
	var q models.Qualifier
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id = ?", id).
		Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &q, err
}

func (r *qualifierRepo) Create(ctx context.Context, q *models.Qualifier) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *qualifierRepo) Update(ctx context.Context, id string, fields map[string]any, options []models.QualifierOption) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := updateByID(ctx, tx, &models.Qualifier{}, id, fields); err != nil {
				return err
			}
		}
		if options == nil {
			return nil
		}
		if err := tx.Where("qualifier_id = ?", id).Delete(&models.QualifierOption{}).Error; err != nil {
			return err
		}
		if len(options) == 0 {
			return nil
		}
		return tx.Create(&options).Error
	})
}

func (r *qualifierRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("qualifier_id = ?", id).Delete(&models.QualifierOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("qualifier_id = ?", id).Delete(&models.JobProfileQualifier{}).Error; err != nil {
			return err
		}
		return deleteByID(ctx, tx, &models.Qualifier{}, id)
	})
}
