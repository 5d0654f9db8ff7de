package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.AuthAccount, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*models.AuthAccount, error)
	SetResetToken(ctx context.Context, profileID, tokenHash string, expiresAt time.Time) error
	// SetPassword stores the hash and consumes any pending reset token.
	SetPassword(ctx context.Context, profileID, hash string) error
	TouchSignIn(ctx context.Context, profileID string, at time.Time) error
}

type accountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*models.AuthAccount, error) {
	var a models.AuthAccount
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", utils.NormalizeEmail(email)).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *accountRepo) GetByResetToken(ctx context.Context, tokenHash string) (*models.AuthAccount, error) {
	var a models.AuthAccount
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_hash <> ''", tokenHash).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &a, err
}

func (r *accountRepo) SetResetToken(ctx context.Context, profileID, tokenHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthAccount{}).
		Where("profile_id = ?", profileID).
		Updates(map[string]any{"reset_token_hash": tokenHash, "reset_expires_at": expiresAt}).Error
}

func (r *accountRepo) SetPassword(ctx context.Context, profileID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthAccount{}).
		Where("profile_id = ?", profileID).
		Updates(map[string]any{"password_hash": hash, "reset_token_hash": "", "reset_expires_at": nil}).Error
}

func (r *accountRepo) TouchSignIn(ctx context.Context, profileID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthAccount{}).
		Where("profile_id = ?", profileID).
		Update("last_sign_in_at", at).Error
}
