package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/importer"
	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

const (
	msgEmailExists      = "Email déjà existant"
	msgSelfDemotion     = "Vous ne pouvez pas vous désactiver ni modifier votre propre rôle"
	msgAlreadyAssigned  = "Profil métier déjà attribué"
	msgManagerNotFound  = "Manager introuvable"
	msgLocationNotFound = "Site introuvable"
)

type CreateUserInput struct {
	Email      string
	FirstName  string
	LastName   string
	Role       models.Role
	JobTitle   string
	ManagerID  *string
	LocationID *string
}

// UpdateUserInput carries optional changes. An empty ManagerID or LocationID
// clears the link.
type UpdateUserInput struct {
	UserID     string
	Role       *models.Role
	IsActive   *bool
	ManagerID  *string
	LocationID *string
	JobTitle   *string
}

type UpdateMeInput struct {
	FirstName *string
	LastName  *string
	JobTitle  *string
}

type UserList struct {
	Items []models.Profile `json:"items"`
	Total int64            `json:"total"`
}

type UserService interface {
	Create(ctx context.Context, caller Caller, in CreateUserInput) (*models.Profile, error)
	Update(ctx context.Context, caller Caller, in UpdateUserInput) (*models.Profile, error)
	Get(ctx context.Context, caller Caller, id string) (*models.Profile, error)
	List(ctx context.Context, caller Caller, f pgrepo.ProfileFilter) (*UserList, error)
	Team(ctx context.Context, caller Caller) ([]models.Profile, error)
	UpdateMe(ctx context.Context, caller Caller, in UpdateMeInput) (*models.Profile, error)

	AssignJobProfile(ctx context.Context, caller Caller, workerID, jobProfileID string) (*models.WorkerJobProfile, error)
	UnassignJobProfile(ctx context.Context, caller Caller, workerID, jobProfileID string) error
	JobProfiles(ctx context.Context, caller Caller, workerID string) ([]models.WorkerJobProfile, error)
}

type userService struct {
	profiles    pgrepo.ProfileRepository
	locations   pgrepo.LocationRepository
	jobProfiles pgrepo.JobProfileRepository
	auth        AuthService
	log         *logrus.Logger
	now         func() time.Time
}

func NewUserService(profiles pgrepo.ProfileRepository, locations pgrepo.LocationRepository, jobProfiles pgrepo.JobProfileRepository, auth AuthService, log *logrus.Logger) UserService {
	return &userService{
		profiles:    profiles,
		locations:   locations,
		jobProfiles: jobProfiles,
		auth:        auth,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) Create(ctx context.Context, caller Caller, in CreateUserInput) (*models.Profile, error) {
	const op = "UserService.Create"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	email := utils.NormalizeEmail(in.Email)
	switch {
	case !importer.ValidEmail(email):
		return nil, invalid(op, "Email invalide")
	case strings.TrimSpace(in.FirstName) == "":
		return nil, invalid(op, "Prénom requis")
	case strings.TrimSpace(in.LastName) == "":
		return nil, invalid(op, "Nom requis")
	case !in.Role.Valid():
		return nil, invalid(op, "Rôle invalide : "+string(in.Role))
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, utils.E(utils.CodeConflict, op, msgEmailExists, nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check email", err)
	}

	p := &models.Profile{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
		JobTitle:  strings.TrimSpace(in.JobTitle),
		IsActive:  true,
	}
	if id := deref(in.ManagerID); id != "" {
		if err := s.checkManager(ctx, op, p.ID, id); err != nil {
			return nil, err
		}
		p.ManagerID = &id
	}
	if id := deref(in.LocationID); id != "" {
		if err := s.checkLocation(ctx, op, id); err != nil {
			return nil, err
		}
		p.LocationID = &id
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	acct := &models.AuthAccount{ProfileID: p.ID, Email: email, CreatedAt: now}
	if err := s.profiles.CreateWithAccount(ctx, p, acct); err != nil {
		return nil, utils.DB(op, "failed to create user", msgEmailExists, err)
	}

	if err := s.auth.SendReset(ctx, p); err != nil {
		s.log.WithError(err).WithField("profile_id", p.ID).Warn("password reset mail not queued")
	}
	return p, nil
}

func (s *userService) Update(ctx context.Context, caller Caller, in UpdateUserInput) (*models.Profile, error) {
	const op = "UserService.Update"

	if !caller.Is(models.RoleSuperAdmin) {
		return nil, forbidden(op)
	}
	if in.UserID == "" {
		return nil, invalid(op, "user_id requis")
	}
	if in.UserID == caller.ID {
		if (in.Role != nil && *in.Role != caller.Role) || (in.IsActive != nil && !*in.IsActive) {
			return nil, utils.E(utils.CodeForbidden, op, msgSelfDemotion, nil)
		}
	}

	fields := map[string]any{}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, invalid(op, "Rôle invalide : "+string(*in.Role))
		}
		fields["role"] = *in.Role
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.JobTitle != nil {
		fields["job_title"] = strings.TrimSpace(*in.JobTitle)
	}
	if in.ManagerID != nil {
		if *in.ManagerID == "" {
			fields["manager_id"] = nil
		} else {
			if err := s.checkManager(ctx, op, in.UserID, *in.ManagerID); err != nil {
				return nil, err
			}
			fields["manager_id"] = *in.ManagerID
		}
	}
	if in.LocationID != nil {
		if *in.LocationID == "" {
			fields["location_id"] = nil
		} else {
			if err := s.checkLocation(ctx, op, *in.LocationID); err != nil {
				return nil, err
			}
			fields["location_id"] = *in.LocationID
		}
	}

	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.profiles.Update(ctx, in.UserID, fields); err != nil {
			return nil, utils.DB(op, "failed to update user", "", err)
		}
	}
	p, err := s.profiles.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, utils.DB(op, "failed to load user", "", err)
	}
	return p, nil
}

func (s *userService) checkManager(ctx context.Context, op, userID, managerID string) error {
	if managerID == userID {
		return invalid(op, "Un collaborateur ne peut pas être son propre manager")
	}
	if _, err := s.profiles.GetByID(ctx, managerID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return invalid(op, msgManagerNotFound)
		}
		return utils.E(utils.CodeInternal, op, "failed to load manager", err)
	}
	return nil
}

func (s *userService) checkLocation(ctx context.Context, op, locationID string) error {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load locations", err)
	}
	for _, l := range locs {
		if l.ID == locationID {
			return nil
		}
	}
	return invalid(op, msgLocationNotFound)
}

func (s *userService) Get(ctx context.Context, caller Caller, id string) (*models.Profile, error) {
	const op = "UserService.Get"

	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, utils.DB(op, "failed to load user", "", err)
	}
	if !caller.CanView(p) {
		return nil, forbidden(op)
	}
	return p, nil
}

func (s *userService) List(ctx context.Context, caller Caller, f pgrepo.ProfileFilter) (*UserList, error) {
	const op = "UserService.List"

	switch caller.Role {
	case models.RoleSuperAdmin, models.RoleSkillMaster:
	case models.RoleManager:
		f.ManagerID = caller.ID
	default:
		return nil, forbidden(op)
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, invalid(op, "Rôle invalide : "+string(f.Role))
	}

	rows, total, err := s.profiles.List(ctx, f)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list users", err)
	}
	if rows == nil {
		rows = []models.Profile{}
	}
	return &UserList{Items: rows, Total: total}, nil
}

func (s *userService) Team(ctx context.Context, caller Caller) ([]models.Profile, error) {
	const op = "UserService.Team"

	if !caller.Role.CanEvaluate() {
		return nil, forbidden(op)
	}
	rows, _, err := s.profiles.List(ctx, pgrepo.ProfileFilter{ManagerID: caller.ID, Limit: 500})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list team", err)
	}
	if rows == nil {
		rows = []models.Profile{}
	}
	return rows, nil
}

func (s *userService) UpdateMe(ctx context.Context, caller Caller, in UpdateMeInput) (*models.Profile, error) {
	const op = "UserService.UpdateMe"

	fields := map[string]any{}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, invalid(op, "Prénom requis")
		}
		fields["first_name"] = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, invalid(op, "Nom requis")
		}
		fields["last_name"] = v
	}
	if in.JobTitle != nil {
		fields["job_title"] = strings.TrimSpace(*in.JobTitle)
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.profiles.Update(ctx, caller.ID, fields); err != nil {
			return nil, utils.DB(op, "failed to update profile", "", err)
		}
	}
	p, err := s.profiles.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, utils.DB(op, "failed to load profile", "", err)
	}
	return p, nil
}

func (s *userService) AssignJobProfile(ctx context.Context, caller Caller, workerID, jobProfileID string) (*models.WorkerJobProfile, error) {
	const op = "UserService.AssignJobProfile"

	if jobProfileID == "" {
		return nil, invalid(op, "job_profile_id requis")
	}
	worker, err := s.profiles.GetByID(ctx, workerID)
	if err != nil {
		return nil, utils.DB(op, "failed to load worker", "", err)
	}
	if !caller.CanManage(worker) {
		return nil, forbidden(op)
	}
	jp, err := s.jobProfiles.Get(ctx, jobProfileID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, invalid(op, "Profil métier introuvable")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job profile", err)
	}

	a := &models.WorkerJobProfile{
		WorkerID:     worker.ID,
		JobProfileID: jp.ID,
		AssignedBy:   caller.ID,
		AssignedAt:   s.now(),
	}
	if err := s.jobProfiles.Assign(ctx, a); err != nil {
		return nil, utils.DB(op, "failed to assign job profile", msgAlreadyAssigned, err)
	}

	// the first assignment becomes the primary job profile
	if worker.JobProfileID == nil {
		if err := s.profiles.Update(ctx, worker.ID, map[string]any{"job_profile_id": jp.ID, "updated_at": s.now()}); err != nil {
			s.log.WithError(err).WithField("worker_id", worker.ID).Warn("failed to set primary job profile")
		}
	}
	a.JobProfile = &models.JobProfile{ID: jp.ID, Name: jp.Name, Description: jp.Description}
	return a, nil
}

func (s *userService) UnassignJobProfile(ctx context.Context, caller Caller, workerID, jobProfileID string) error {
	const op = "UserService.UnassignJobProfile"

	worker, err := s.profiles.GetByID(ctx, workerID)
	if err != nil {
		return utils.DB(op, "failed to load worker", "", err)
	}
	if !caller.CanManage(worker) {
		return forbidden(op)
	}
	if err := s.jobProfiles.Unassign(ctx, workerID, jobProfileID); err != nil {
		return utils.DB(op, "failed to remove assignment", "", err)
	}
	if deref(worker.JobProfileID) == jobProfileID {
		s.promotePrimary(ctx, worker.ID)
	}
	return nil
}

// promotePrimary makes the oldest remaining assignment the primary job
// profile, or clears it when none is left.
func (s *userService) promotePrimary(ctx context.Context, workerID string) {
	log := s.log.WithField("worker_id", workerID)
	rows, err := s.jobProfiles.Assignments(ctx, workerID)
	if err != nil {
		log.WithError(err).Warn("failed to list remaining assignments")
		return
	}
	var next any
	if len(rows) > 0 {
		next = rows[0].JobProfileID
	}
	if err := s.profiles.Update(ctx, workerID, map[string]any{"job_profile_id": next, "updated_at": s.now()}); err != nil {
		log.WithError(err).Warn("failed to update primary job profile")
	}
}

func (s *userService) JobProfiles(ctx context.Context, caller Caller, workerID string) ([]models.WorkerJobProfile, error) {
	const op = "UserService.JobProfiles"

	worker, err := s.profiles.GetByID(ctx, workerID)
	if err != nil {
		return nil, utils.DB(op, "failed to load worker", "", err)
	}
	if !caller.CanView(worker) {
		return nil, forbidden(op)
	}
	rows, err := s.jobProfiles.Assignments(ctx, workerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list assignments", err)
	}
	if rows == nil {
		rows = []models.WorkerJobProfile{}
	}
	return rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
