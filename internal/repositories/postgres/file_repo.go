package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type FileRepository interface {
	Insert(ctx context.Context, f *models.StoredFile) error
	Latest(ctx context.Context, ownerID string, kind models.FileKind) (*models.StoredFile, error)
}

type fileRepo struct {
	db *gorm.DB
}

func NewFileRepo(db *gorm.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Insert(ctx context.Context, f *models.StoredFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fileRepo) Latest(ctx context.Context, ownerID string, kind models.FileKind) (*models.StoredFile, error) {
	var row models.StoredFile
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Order("upload_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}
