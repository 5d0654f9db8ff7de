package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type CompetencyFilter struct {
	ModuleID string
	// Query matches the name or any keyword, case-insensitively.
	Query string
}

type TaxonomyRepository interface {
	ListModules(ctx context.Context) ([]models.Module, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
	CreateModule(ctx context.Context, m *models.Module) error
	UpdateModule(ctx context.Context, id string, fields map[string]any) error
	DeleteModule(ctx context.Context, id string) error
	CountChildren(ctx context.Context, moduleID string) (int64, error)

	ListCompetencies(ctx context.Context, f CompetencyFilter) ([]models.Competency, error)
	// CompetenciesInModules returns competencies of the given modules; nil
	// means every competency.
	CompetenciesInModules(ctx context.Context, moduleIDs []string) ([]models.Competency, error)
	CompetenciesByID(ctx context.Context, ids []string) ([]models.Competency, error)
	GetCompetency(ctx context.Context, id string) (*models.Competency, error)
	CreateCompetency(ctx context.Context, c *models.Competency) error
	UpdateCompetency(ctx context.Context, id string, fields map[string]any) error
	DeleteCompetency(ctx context.Context, id string) error
}

type taxonomyRepo struct {
	db *gorm.DB
}

func NewTaxonomyRepo(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepo{db: db}
}

func (r *taxonomyRepo) ListModules(ctx context.Context) ([]models.Module, error) {
	var rows []models.Module
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *taxonomyRepo) GetModule(ctx context.Context, id string) (*models.Module, error) {
	var m models.Module
	err := r.db.WithContext(ctx).
		Preload("Competencies", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, name ASC") }).
		Where("id = ?", id).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &m, err
}

func (r *taxonomyRepo) CreateModule(ctx context.Context, m *models.Module) error {
	return r.db.WithContext(ctx).Omit("Competencies").Create(m).Error
}

func (r *taxonomyRepo) UpdateModule(ctx context.Context, id string, fields map[string]any) error {
	return updateByID(ctx, r.db, &models.Module{}, id, fields)
}

// DeleteModule removes a module with its children and their competencies.
func (r *taxonomyRepo) DeleteModule(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.Module{}).Select("id").Where("id = ? OR parent_id = ?", id, id)
		if err := tx.Where("module_id IN (?)", ids).Delete(&models.Competency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id IN (?)", ids).Delete(&models.JobProfileModule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", id).Delete(&models.Module{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Module{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		return nil
	})
}

func (r *taxonomyRepo) CountChildren(ctx context.Context, moduleID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Module{}).
		Where("parent_id = ?", moduleID).
		Count(&n).Error
	return n, err
}

func (r *taxonomyRepo) ListCompetencies(ctx context.Context, f CompetencyFilter) ([]models.Competency, error) {
	q := r.db.WithContext(ctx).Model(&models.Competency{})
	if f.ModuleID != "" {
		q = q.Where("module_id = ?", f.ModuleID)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		q = q.Where("LOWER(name) LIKE ? OR EXISTS (SELECT 1 FROM unnest(keywords) k WHERE LOWER(k) LIKE ?)",
			"%"+s+"%", "%"+s+"%")
	}
	var rows []models.Competency
	err := q.Order("sort_order ASC, name ASC").Find(&rows).Error
	return rows, err
}

func (r *taxonomyRepo) CompetenciesInModules(ctx context.Context, moduleIDs []string) ([]models.Competency, error) {
	q := r.db.WithContext(ctx).Model(&models.Competency{})
	if moduleIDs != nil {
		if len(moduleIDs) == 0 {
			return nil, nil
		}
		q = q.Where("module_id IN ?", moduleIDs)
	}
	var rows []models.Competency
	err := q.Order("sort_order ASC, name ASC").Find(&rows).Error
	return rows, err
}

func (r *taxonomyRepo) CompetenciesByID(ctx context.Context, ids []string) ([]models.Competency, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Competency
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *taxonomyRepo) GetCompetency(ctx context.Context, id string) (*models.Competency, error) {
	var c models.Competency
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *taxonomyRepo) CreateCompetency(ctx context.Context, c *models.Competency) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *taxonomyRepo) UpdateCompetency(ctx context.Context, id string, fields map[string]any) error {
	return updateByID(ctx, r.db, &models.Competency{}, id, fields)
}

func (r *taxonomyRepo) DeleteCompetency(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, &models.Competency{}, id)
}

func updateByID(ctx context.Context, db *gorm.DB, model any, id string, fields map[string]any) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model any, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
