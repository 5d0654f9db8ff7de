package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type ProfileFilter struct {
	Role      models.Role
	Active    *bool
	ManagerID string
	Query     string
	Limit     int
	Offset    int
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	List(ctx context.Context, f ProfileFilter) ([]models.Profile, int64, error)
	IDsByEmail(ctx context.Context, emails []string) (map[string]string, error)
	// CreateWithAccount inserts a profile and its auth account atomically.
	CreateWithAccount(ctx context.Context, p *models.Profile, a *models.AuthAccount) error
	Update(ctx context.Context, id string, fields map[string]any) error
}

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", utils.NormalizeEmail(email)).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *profileRepo) List(ctx context.Context, f ProfileFilter) ([]models.Profile, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	q := r.db.WithContext(ctx).Model(&models.Profile{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.ManagerID != "" {
		q = q.Where("manager_id = ?", f.ManagerID)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Profile
	err := q.Order("last_name ASC, first_name ASC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *profileRepo) IDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	out := map[string]string{}
	if len(emails) == 0 {
		return out, nil
	}
	norm := make([]string, 0, len(emails))
	for _, e := range emails {
		norm = append(norm, utils.NormalizeEmail(e))
	}

	var rows []struct {
		ID    string
		Email string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Select("id, email").
		Where("LOWER(email) IN ?", norm).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[utils.NormalizeEmail(row.Email)] = row.ID
	}
	return out, nil
}

func (r *profileRepo) CreateWithAccount(ctx context.Context, p *models.Profile, a *models.AuthAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(a).Error
	})
}

func (r *profileRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
