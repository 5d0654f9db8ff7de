package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

type SettingService interface {
	All(ctx context.Context) (map[string]json.RawMessage, error)
	Put(ctx context.Context, caller Caller, values map[string]json.RawMessage) (map[string]json.RawMessage, error)
}

type settingService struct {
	repo pgrepo.SettingRepository
	now  func() time.Time
}

func NewSettingService(repo pgrepo.SettingRepository) SettingService {
	return &settingService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *settingService) All(ctx context.Context) (map[string]json.RawMessage, error) {
	const op = "SettingService.All"

	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load settings", err)
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		out[r.Key] = json.RawMessage(r.Value)
	}
	return out, nil
}

func (s *settingService) Put(ctx context.Context, caller Caller, values map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	const op = "SettingService.Put"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	if len(values) == 0 {
		return nil, invalid(op, "Aucun paramètre à enregistrer")
	}

	now := s.now()
	rows := make([]models.AppSetting, 0, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if !models.SettingKeys[key] {
			return nil, invalid(op, "Paramètre inconnu : "+key)
		}
		if !json.Valid(v) {
			return nil, invalid(op, "Valeur invalide pour "+key)
		}
		rows = append(rows, models.AppSetting{
			Key:       key,
			Value:     datatypes.JSON(v),
			UpdatedBy: caller.ID,
			UpdatedAt: now,
		})
	}
	if err := s.repo.Upsert(ctx, rows); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store settings", err)
	}
	return s.All(ctx)
}
