package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoockh/skillradar/internal/models"
)

type SettingRepository interface {
	All(ctx context.Context) ([]models.AppSetting, error)
	Upsert(ctx context.Context, rows []models.AppSetting) error
}

type settingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) All(ctx context.Context) ([]models.AppSetting, error) {
	var rows []models.AppSetting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error
	return rows, err
}

func (r *settingRepo) Upsert(ctx context.Context, rows []models.AppSetting) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(&rows).Error
}
