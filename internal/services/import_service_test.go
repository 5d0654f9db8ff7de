package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yoockh/skillradar/internal/models"
	mongorepo "github.com/yoockh/skillradar/internal/repositories/mongo"
	"github.com/yoockh/skillradar/internal/utils"
)

type stubReports struct {
	mongorepo.ImportReportRepository
	rows []models.ImportReport
	err  error
}

func (s *stubReports) Insert(_ context.Context, r *models.ImportReport) error {
	if s.err != nil {
		return s.err
	}
	r.ID = primitive.NewObjectID()
	s.rows = append(s.rows, *r)
	return nil
}

func TestImportUsersSendsResetAndStoresReport(t *testing.T) {
	profiles := newStubProfiles(models.Profile{ID: "boss", Email: "boss@corp.fr", Role: models.RoleManager})
	auth := &resetRecorder{}
	reports := &stubReports{}
	svc := NewImportService(profiles, &stubLocations{}, reports, auth, quietLog())

	rows := []map[string]any{
		{"Prénom": "Jean", "Nom": "Dupont", "Email": "jean.dupont@email.com", "Rôle": "Collaborateur", "Manager": "boss@corp.fr", "Site": "Lyon"},
		{"Prénom": "Jean", "Nom": "Dupont", "Email": "JEAN.DUPONT@email.com", "Rôle": "worker"},
		{"Prénom": "Boss", "Nom": "Again", "Email": "boss@corp.fr", "Rôle": "manager"},
	}
	out, err := svc.Users(context.Background(), admin, rows, false)
	require.NoError(t, err)

	assert.Equal(t, models.ImportSummary{Total: 3, Created: 1, Failed: 2}, out.Summary)
	assert.Equal(t, "Email en doublon dans le fichier", out.Results[1].Error)
	assert.Equal(t, "Email déjà existant", out.Results[2].Error)

	id := out.Results[0].ResourceID
	require.NotEmpty(t, id)
	assert.Equal(t, []string{id}, auth.sent)
	assert.Equal(t, "boss", *profiles.rows[id].ManagerID)
	require.NotNil(t, profiles.rows[id].LocationID)

	require.Len(t, reports.rows, 1)
	assert.Equal(t, models.ImportUsers, reports.rows[0].Kind)
	assert.Equal(t, "admin", reports.rows[0].ActorID)
	assert.Equal(t, reports.rows[0].ID.Hex(), out.ReportID)
}

func TestImportDryRunSendsNothing(t *testing.T) {
	profiles := newStubProfiles()
	auth := &resetRecorder{}
	svc := NewImportService(profiles, &stubLocations{}, nil, auth, quietLog())

	out, err := svc.Users(context.Background(), admin, []map[string]any{
		{"first_name": "Jean", "last_name": "Dupont", "email": "jean.dupont@email.com", "role": "worker"},
	}, true)
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.True(t, out.Results[0].Success)
	assert.Empty(t, out.ReportID)
	assert.Empty(t, auth.sent)
	assert.Empty(t, profiles.created)
}

func TestImportReportFailureIsSwallowed(t *testing.T) {
	reports := &stubReports{err: errors.New("mongo down")}
	locations := &stubLocations{}
	svc := NewImportService(newStubProfiles(), locations, reports, &resetRecorder{}, quietLog())

	out, err := svc.Locations(context.Background(), admin, []map[string]any{{"nom": "Lyon"}}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Created)
	assert.Empty(t, out.ReportID)
	assert.Len(t, locations.rows, 1)
}

func TestImportGuards(t *testing.T) {
	svc := NewImportService(newStubProfiles(), &stubLocations{}, nil, &resetRecorder{}, quietLog())
	ctx := context.Background()

	_, err := svc.Users(ctx, manager, []map[string]any{{"email": "a@b.fr"}}, false)
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, err = svc.Users(ctx, admin, nil, false)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
