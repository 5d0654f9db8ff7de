package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/notify"
	"github.com/yoockh/skillradar/internal/utils"
)

var authNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func newAuthWorld(t *testing.T, password string, active bool) (*authService, *stubAccounts, *stubMailer) {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = utils.HashPassword(password)
		require.NoError(t, err)
	}
	profiles := newStubProfiles(models.Profile{
		ID: "p1", Email: "jean.dupont@email.com", FirstName: "Jean", LastName: "Dupont",
		Role: models.RoleWorker, IsActive: active,
	})
	accounts := &stubAccounts{rows: map[string]*models.AuthAccount{
		"p1": {ProfileID: "p1", Email: "jean.dupont@email.com", PasswordHash: hash},
	}}
	mailer := &stubMailer{}
	svc := NewAuthService(AuthConfig{Secret: []byte("test-secret"), Issuer: "skillradar"}, profiles, accounts, mailer, quietLog()).(*authService)
	svc.now = func() time.Time { return authNow }
	return svc, accounts, mailer
}

func TestLoginIssuesToken(t *testing.T) {
	svc, accounts, _ := newAuthWorld(t, "correct horse", true)

	res, err := svc.Login(context.Background(), " Jean.Dupont@Email.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "p1", res.Profile.ID)
	assert.Equal(t, authNow.Add(12*time.Hour), res.ExpiresAt)
	require.NotNil(t, accounts.rows["p1"].LastSignInAt)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.Subject)
	assert.Equal(t, "skillradar", claims.Issuer)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newAuthWorld(t, "correct horse", true)
	_, err := svc.Login(ctx, "jean.dupont@email.com", "wrong password")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
	_, err = svc.Login(ctx, "nobody@email.com", "correct horse")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	noPassword, _, _ := newAuthWorld(t, "", true)
	_, err = noPassword.Login(ctx, "jean.dupont@email.com", "")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	inactive, _, _ := newAuthWorld(t, "correct horse", false)
	_, err = inactive.Login(ctx, "jean.dupont@email.com", "correct horse")
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, accounts, mailer := newAuthWorld(t, "", true)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "jean.dupont@email.com"))
	require.Len(t, mailer.jobs, 1)
	job := mailer.jobs[0]
	assert.Equal(t, notify.TemplatePasswordReset, job.Template)
	assert.Equal(t, "Jean Dupont", job.Name)
	token := job.Data["token"]
	require.NotEmpty(t, token)
	assert.Equal(t, utils.HashToken(token), accounts.rows["p1"].ResetTokenHash, "only the digest is stored")

	err := svc.ResetPassword(ctx, token, "short")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	require.NoError(t, svc.ResetPassword(ctx, token, "a much longer secret"))
	assert.Empty(t, accounts.rows["p1"].ResetTokenHash)

	// tokens are single use
	err = svc.ResetPassword(ctx, token, "another long secret")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Login(ctx, "jean.dupont@email.com", "a much longer secret")
	assert.NoError(t, err)
}

func TestPasswordResetExpired(t *testing.T) {
	svc, _, mailer := newAuthWorld(t, "", true)
	ctx := context.Background()
	require.NoError(t, svc.ForgotPassword(ctx, "jean.dupont@email.com"))

	svc.now = func() time.Time { return authNow.Add(73 * time.Hour) }
	err := svc.ResetPassword(ctx, mailer.jobs[0].Data["token"], "a much longer secret")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer := newAuthWorld(t, "", true)
	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@email.com"))
	assert.Empty(t, mailer.jobs)
}

func TestSendResetMailerFailure(t *testing.T) {
	svc, _, mailer := newAuthWorld(t, "", true)
	mailer.err = errors.New("broker down")
	p, _ := svc.profiles.GetByID(context.Background(), "p1")
	err := svc.SendReset(context.Background(), p)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}
