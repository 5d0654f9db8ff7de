package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/importer"
	"github.com/yoockh/skillradar/internal/models"
	mongorepo "github.com/yoockh/skillradar/internal/repositories/mongo"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

type ImportOutcome struct {
	ReportID string                   `json:"report_id,omitempty"`
	DryRun   bool                     `json:"dry_run"`
	Summary  models.ImportSummary     `json:"summary"`
	Results  []models.ImportRowResult `json:"results"`
}

type ImportService interface {
	Users(ctx context.Context, caller Caller, rows []map[string]any, dryRun bool) (*ImportOutcome, error)
	Locations(ctx context.Context, caller Caller, rows []map[string]any, dryRun bool) (*ImportOutcome, error)
	Reports(ctx context.Context, caller Caller) ([]models.ImportReport, error)
	Report(ctx context.Context, caller Caller, id string) (*models.ImportReport, error)
}

type importService struct {
	importer *importer.Importer
	reports  mongorepo.ImportReportRepository
	auth     AuthService
	log      *logrus.Logger
}

// NewImportService wires the importer to postgres. reports may be nil when
// no document store is configured.
func NewImportService(profiles pgrepo.ProfileRepository, locations pgrepo.LocationRepository, reports mongorepo.ImportReportRepository, auth AuthService, log *logrus.Logger) ImportService {
	return &importService{
		importer: importer.New(&importStore{profiles: profiles, locations: locations}),
		reports:  reports,
		auth:     auth,
		log:      log,
	}
}

func checkBatch(op string, caller Caller, rows []map[string]any) error {
	if !caller.Is(models.RoleSuperAdmin) {
		return forbidden(op)
	}
	if len(rows) == 0 {
		return invalid(op, "Aucune ligne à importer")
	}
	if len(rows) > importer.MaxRows {
		return invalid(op, fmt.Sprintf("Fichier trop volumineux : %d lignes maximum", importer.MaxRows))
	}
	return nil
}

func (s *importService) Users(ctx context.Context, caller Caller, rows []map[string]any, dryRun bool) (*ImportOutcome, error) {
	const op = "ImportService.Users"

	if err := checkBatch(op, caller, rows); err != nil {
		return nil, err
	}
	res, err := s.importer.Users(ctx, rows, importer.Options{DryRun: dryRun})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load reference data", err)
	}

	for i := range res.Created {
		p := &res.Created[i]
		if err := s.auth.SendReset(ctx, p); err != nil {
			s.log.WithError(err).WithField("profile_id", p.ID).Warn("password reset mail not queued")
		}
	}

	out := &ImportOutcome{DryRun: dryRun, Summary: res.Summary, Results: res.Results}
	out.ReportID = s.store(ctx, models.ImportUsers, caller, out)
	s.log.WithFields(logrus.Fields{
		"actor_id": caller.ID,
		"dry_run":  dryRun,
		"total":    res.Summary.Total,
		"created":  res.Summary.Created,
		"failed":   res.Summary.Failed,
	}).Info("user import")
	return out, nil
}

func (s *importService) Locations(ctx context.Context, caller Caller, rows []map[string]any, dryRun bool) (*ImportOutcome, error) {
	const op = "ImportService.Locations"

	if err := checkBatch(op, caller, rows); err != nil {
		return nil, err
	}
	res, err := s.importer.Locations(ctx, rows, importer.Options{DryRun: dryRun})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load reference data", err)
	}

	out := &ImportOutcome{DryRun: dryRun, Summary: res.Summary, Results: res.Results}
	out.ReportID = s.store(ctx, models.ImportLocations, caller, out)
	s.log.WithFields(logrus.Fields{
		"actor_id": caller.ID,
		"dry_run":  dryRun,
		"total":    res.Summary.Total,
		"created":  res.Summary.Created,
	}).Info("location import")
	return out, nil
}

func (s *importService) store(ctx context.Context, kind models.ImportKind, caller Caller, out *ImportOutcome) string {
	if s.reports == nil {
		return ""
	}
	rep := &models.ImportReport{
		Kind:      kind,
		ActorID:   caller.ID,
		DryRun:    out.DryRun,
		Summary:   out.Summary,
		Results:   out.Results,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reports.Insert(ctx, rep); err != nil {
		s.log.WithError(err).WithField("kind", kind).Warn("import report not stored")
		return ""
	}
	return rep.ID.Hex()
}

func (s *importService) Reports(ctx context.Context, caller Caller) ([]models.ImportReport, error) {
	const op = "ImportService.Reports"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	if s.reports == nil {
		return []models.ImportReport{}, nil
	}
	rows, err := s.reports.ListByActor(ctx, caller.ID, 20)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list reports", err)
	}
	return rows, nil
}

func (s *importService) Report(ctx context.Context, caller Caller, id string) (*models.ImportReport, error) {
	const op = "ImportService.Report"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	if s.reports == nil {
		return nil, utils.E(utils.CodeNotFound, op, "rapport introuvable", nil)
	}
	rep, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load report", "", err)
	}
	if rep.ActorID != caller.ID {
		return nil, forbidden(op)
	}
	return rep, nil
}

// importStore adapts the postgres repositories to importer.Store.
type importStore struct {
	profiles  pgrepo.ProfileRepository
	locations pgrepo.LocationRepository
}

func (s *importStore) ProfileIDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	return s.profiles.IDsByEmail(ctx, emails)
}

func (s *importStore) LocationIDsByName(ctx context.Context) (map[string]string, error) {
	return s.locations.IDsByName(ctx)
}

func (s *importStore) CreateLocation(ctx context.Context, l *models.Location) error {
	return utils.DB("importStore.CreateLocation", "failed to create location", "", s.locations.Create(ctx, l))
}

func (s *importStore) CreateUser(ctx context.Context, p *models.Profile, a *models.AuthAccount) error {
	return utils.DB("importStore.CreateUser", "failed to create user", "", s.profiles.CreateWithAccount(ctx, p, a))
}

func (s *importStore) SetManager(ctx context.Context, profileID, managerID string) error {
	return s.profiles.Update(ctx, profileID, map[string]any{"manager_id": managerID})
}
