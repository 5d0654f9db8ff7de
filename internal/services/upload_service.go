package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/storage"
	"github.com/yoockh/skillradar/internal/utils"
)

type UploadService interface {
	Avatar(ctx context.Context, caller Caller, fileName string, r io.Reader) (*models.StoredFile, error)
	Logo(ctx context.Context, caller Caller, fileName string, r io.Reader) (*models.StoredFile, error)
}

type uploadService struct {
	files    pgrepo.FileRepository
	profiles pgrepo.ProfileRepository
	settings pgrepo.SettingRepository
	uploader storage.Uploader
	now      func() time.Time
}

// NewUploadService accepts a nil uploader; uploads then fail with UNAVAILABLE.
func NewUploadService(files pgrepo.FileRepository, profiles pgrepo.ProfileRepository, settings pgrepo.SettingRepository, uploader storage.Uploader) UploadService {
	return &uploadService{
		files:    files,
		profiles: profiles,
		settings: settings,
		uploader: uploader,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *uploadService) store(ctx context.Context, op string, caller Caller, kind models.FileKind, fileName string, r io.Reader) (*models.StoredFile, error) {
	if s.uploader == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Stockage de fichiers non configuré", nil)
	}

	data, contentType, err := storage.Inspect(kind, fileName, r)
	switch {
	case errors.Is(err, storage.ErrEmpty):
		return nil, invalid(op, "Fichier vide")
	case errors.Is(err, storage.ErrTooLarge):
		return nil, invalid(op, fmt.Sprintf("Fichier trop volumineux (%d Mo maximum)", storage.MaxUploadSize>>20))
	case errors.Is(err, storage.ErrUnsupportedType):
		return nil, invalid(op, "Type de fichier non autorisé : "+contentType)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to read file", err)
	}

	id := uuid.NewString()
	object := fmt.Sprintf("%ss/%s/%s%s", kind, caller.ID, id, storage.Extension(kind, contentType))
	url, err := s.uploader.Upload(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Échec de l'envoi du fichier", err)
	}

	row := &models.StoredFile{
		ID:       id,
		OwnerID:  caller.ID,
		Kind:     kind,
		FileName: filepath.Base(fileName),
		FilePath: url,
		FileSize: len(data),
		MimeType: contentType,
		UploadAt: s.now(),
	}
	if err := s.files.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist file metadata", err)
	}
	return row, nil
}

func (s *uploadService) Avatar(ctx context.Context, caller Caller, fileName string, r io.Reader) (*models.StoredFile, error) {
	const op = "UploadService.Avatar"

	f, err := s.store(ctx, op, caller, models.FileAvatar, fileName, r)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, caller.ID, map[string]any{"avatar_url": f.FilePath, "updated_at": s.now()}); err != nil {
		return nil, utils.DB(op, "failed to update avatar", "", err)
	}
	return f, nil
}

func (s *uploadService) Logo(ctx context.Context, caller Caller, fileName string, r io.Reader) (*models.StoredFile, error) {
	const op = "UploadService.Logo"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	f, err := s.store(ctx, op, caller, models.FileLogo, fileName, r)
	if err != nil {
		return nil, err
	}
	v, _ := json.Marshal(f.FilePath)
	err = s.settings.Upsert(ctx, []models.AppSetting{{
		Key:       models.SettingLogoURL,
		Value:     datatypes.JSON(v),
		UpdatedBy: caller.ID,
		UpdatedAt: s.now(),
	}})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store logo setting", err)
	}
	return f, nil
}
