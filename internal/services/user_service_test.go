package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

type stubLocations struct {
	pgrepo.LocationRepository
	rows []models.Location
}

func (s *stubLocations) List(context.Context) ([]models.Location, error) { return s.rows, nil }

func (s *stubLocations) IDsByName(context.Context) (map[string]string, error) {
	out := map[string]string{}
	for _, l := range s.rows {
		out[utils.Fold(l.Name)] = l.ID
	}
	return out, nil
}

func (s *stubLocations) Create(_ context.Context, l *models.Location) error {
	s.rows = append(s.rows, *l)
	return nil
}

type userWorld struct {
	profiles    *stubProfiles
	jobProfiles *stubJobProfiles
	svc         UserService
}

func newUserWorld() *userWorld {
	w := &userWorld{
		profiles: newStubProfiles(
			models.Profile{ID: "admin", Email: "admin@corp.fr", Role: models.RoleSuperAdmin, IsActive: true},
			models.Profile{ID: "mgr", Email: "mgr@corp.fr", Role: models.RoleManager, IsActive: true},
			models.Profile{ID: "w1", Email: "w1@corp.fr", Role: models.RoleWorker, ManagerID: ptr("mgr"), IsActive: true},
			models.Profile{ID: "w2", Email: "w2@corp.fr", Role: models.RoleWorker, IsActive: true},
		),
		jobProfiles: &stubJobProfiles{rows: map[string]*models.JobProfile{
			"jp-a": {ID: "jp-a", Name: "Soudeur"},
			"jp-b": {ID: "jp-b", Name: "Chaudronnier"},
		}},
	}
	accounts := &stubAccounts{rows: map[string]*models.AuthAccount{}}
	auth := &resetRecorder{accounts: accounts}
	w.svc = NewUserService(w.profiles, &stubLocations{rows: []models.Location{{ID: "loc-1", Name: "Lyon"}}}, w.jobProfiles, auth, quietLog())
	return w
}

// resetRecorder is an AuthService that only records SendReset calls.
type resetRecorder struct {
	AuthService
	accounts *stubAccounts
	sent     []string
}

func (r *resetRecorder) SendReset(_ context.Context, p *models.Profile) error {
	r.sent = append(r.sent, p.ID)
	return nil
}

func TestCreateUser(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	p, err := w.svc.Create(ctx, admin, CreateUserInput{
		Email: " Jean.Dupont@Email.com", FirstName: "Jean", LastName: "Dupont",
		Role: models.RoleWorker, ManagerID: ptr("mgr"), LocationID: ptr("loc-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "jean.dupont@email.com", p.Email)
	assert.True(t, p.IsActive)
	require.Len(t, w.profiles.created, 1)
	assert.Equal(t, p.ID, w.profiles.created[0].ProfileID)
	assert.Empty(t, w.profiles.created[0].PasswordHash)

	_, err = w.svc.Create(ctx, admin, CreateUserInput{Email: "jean.dupont@email.com", FirstName: "J", LastName: "D", Role: models.RoleWorker})
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	_, err = w.svc.Create(ctx, admin, CreateUserInput{Email: "x@corp.fr", FirstName: "J", LastName: "D", Role: "pilot"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = w.svc.Create(ctx, admin, CreateUserInput{Email: "y@corp.fr", FirstName: "J", LastName: "D", Role: models.RoleWorker, LocationID: ptr("nowhere")})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = w.svc.Create(ctx, manager, CreateUserInput{Email: "z@corp.fr", FirstName: "J", LastName: "D", Role: models.RoleWorker})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))
}

func TestUpdateUserSelfGuard(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	_, err := w.svc.Update(ctx, admin, UpdateUserInput{UserID: "admin", IsActive: ptr(false)})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))
	_, err = w.svc.Update(ctx, admin, UpdateUserInput{UserID: "admin", Role: ptr(models.RoleManager)})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	p, err := w.svc.Update(ctx, admin, UpdateUserInput{UserID: "admin", JobTitle: ptr("DRH")})
	require.NoError(t, err)
	assert.Equal(t, "DRH", p.JobTitle)

	p, err = w.svc.Update(ctx, admin, UpdateUserInput{UserID: "w1", Role: ptr(models.RoleManager), ManagerID: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, p.Role)
	assert.Nil(t, p.ManagerID)

	_, err = w.svc.Update(ctx, admin, UpdateUserInput{UserID: "w2", ManagerID: ptr("w2")})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestListScopesManagers(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	list, err := w.svc.List(ctx, manager, pgrepo.ProfileFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "w1", list.Items[0].ID)

	list, err = w.svc.List(ctx, admin, pgrepo.ProfileFilter{Role: models.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)

	_, err = w.svc.List(ctx, worker, pgrepo.ProfileFilter{})
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, err = w.svc.Get(ctx, manager, "w2")
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))
}

func TestAssignJobProfile(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	a, err := w.svc.AssignJobProfile(ctx, manager, "w1", "jp-a")
	require.NoError(t, err)
	assert.Equal(t, "mgr", a.AssignedBy)
	assert.Equal(t, "Soudeur", a.JobProfile.Name)
	assert.Equal(t, "jp-a", *w.profiles.rows["w1"].JobProfileID, "first assignment becomes primary")

	_, err = w.svc.AssignJobProfile(ctx, manager, "w1", "jp-b")
	require.NoError(t, err)
	assert.Equal(t, "jp-a", *w.profiles.rows["w1"].JobProfileID)

	_, err = w.svc.AssignJobProfile(ctx, manager, "w1", "jp-a")
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	_, err = w.svc.AssignJobProfile(ctx, manager, "w2", "jp-a")
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, err = w.svc.AssignJobProfile(ctx, admin, "w2", "jp-zzz")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestUnassignPromotesNextPrimary(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	for _, jp := range []string{"jp-a", "jp-b"} {
		_, err := w.svc.AssignJobProfile(ctx, manager, "w1", jp)
		require.NoError(t, err)
	}
	require.Equal(t, "jp-a", *w.profiles.rows["w1"].JobProfileID)

	require.NoError(t, w.svc.UnassignJobProfile(ctx, manager, "w1", "jp-a"))
	require.NotNil(t, w.profiles.rows["w1"].JobProfileID)
	assert.Equal(t, "jp-b", *w.profiles.rows["w1"].JobProfileID)

	require.NoError(t, w.svc.UnassignJobProfile(ctx, manager, "w1", "jp-b"))
	assert.Nil(t, w.profiles.rows["w1"].JobProfileID)

	err := w.svc.UnassignJobProfile(ctx, manager, "w1", "jp-b")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestUnassignSecondaryKeepsPrimary(t *testing.T) {
	w := newUserWorld()
	ctx := context.Background()

	for _, jp := range []string{"jp-a", "jp-b"} {
		_, err := w.svc.AssignJobProfile(ctx, manager, "w1", jp)
		require.NoError(t, err)
	}
	require.NoError(t, w.svc.UnassignJobProfile(ctx, manager, "w1", "jp-b"))
	assert.Equal(t, "jp-a", *w.profiles.rows["w1"].JobProfileID)
}

func TestCreateUserRejectsMalformedEmail(t *testing.T) {
	w := newUserWorld()
	for _, email := range []string{"", "jean", "jean@", "@corp.fr", "jean dupont@corp.fr"} {
		_, err := w.svc.Create(context.Background(), admin, CreateUserInput{Email: email, FirstName: "J", LastName: "D", Role: models.RoleWorker})
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), email)
	}
}
