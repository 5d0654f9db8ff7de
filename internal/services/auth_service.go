package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/notify"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

const (
	msgBadCredentials = "Identifiants invalides"
	msgInactive       = "Compte désactivé"
	msgBadResetToken  = "Lien de réinitialisation invalide ou expiré"
	msgWeakPassword   = "Le mot de passe doit contenir au moins 8 caractères"
)

type AuthConfig struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	ResetTTL time.Duration
}

type LoginResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Profile     *models.Profile `json:"profile"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	IssueToken(p *models.Profile) (string, time.Time, error)
	// ForgotPassword never reveals whether the email is known.
	ForgotPassword(ctx context.Context, email string) error
	// SendReset stores a fresh reset token for p and queues the mail.
	SendReset(ctx context.Context, p *models.Profile) error
	ResetPassword(ctx context.Context, token, password string) error
}

type authService struct {
	cfg      AuthConfig
	profiles pgrepo.ProfileRepository
	accounts pgrepo.AccountRepository
	mailer   notify.Mailer
	log      *logrus.Logger
	now      func() time.Time
}

func NewAuthService(cfg AuthConfig, profiles pgrepo.ProfileRepository, accounts pgrepo.AccountRepository, mailer notify.Mailer, log *logrus.Logger) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 72 * time.Hour
	}
	return &authService{
		cfg:      cfg,
		profiles: profiles,
		accounts: accounts,
		mailer:   mailer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "AuthService.Login"

	acct, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeUnauthorized, op, msgBadCredentials, nil)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load account", err)
	}
	if utils.CheckPassword(acct.PasswordHash, password) != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, msgBadCredentials, nil)
	}

	p, err := s.profiles.GetByID(ctx, acct.ProfileID)
	if err != nil {
		return nil, utils.DB(op, "failed to load profile", "", err)
	}
	if !p.IsActive {
		return nil, utils.E(utils.CodeForbidden, op, msgInactive, nil)
	}

	token, exp, err := s.IssueToken(p)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	if err := s.accounts.TouchSignIn(ctx, p.ID, s.now()); err != nil {
		s.log.WithError(err).WithField("profile_id", p.ID).Warn("failed to record sign-in")
	}

	return &LoginResult{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp, Profile: p}, nil
}

func (s *authService) IssueToken(p *models.Profile) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   p.ID,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	return signed, exp, err
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	const op = "AuthService.ForgotPassword"

	p, err := s.profiles.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		s.log.WithField("email", utils.NormalizeEmail(email)).Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load profile", err)
	}
	if !p.IsActive {
		return nil
	}
	return s.SendReset(ctx, p)
}

func (s *authService) SendReset(ctx context.Context, p *models.Profile) error {
	const op = "AuthService.SendReset"

	raw, err := newResetToken()
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to generate token", err)
	}
	exp := s.now().Add(s.cfg.ResetTTL)
	if err := s.accounts.SetResetToken(ctx, p.ID, utils.HashToken(raw), exp); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store reset token", err)
	}

	job := notify.MailJob{
		Template: notify.TemplatePasswordReset,
		To:       p.Email,
		Name:     p.FullName(),
		Data: map[string]string{
			"token":      raw,
			"expires_at": exp.Format(time.RFC3339),
		},
		CreatedAt: s.now(),
	}
	if err := s.mailer.Send(ctx, job); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to queue reset mail", err)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	const op = "AuthService.ResetPassword"

	if token == "" {
		return invalid(op, msgBadResetToken)
	}
	acct, err := s.accounts.GetByResetToken(ctx, utils.HashToken(token))
	if errors.Is(err, utils.ErrNotFound) {
		return invalid(op, msgBadResetToken)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load account", err)
	}
	if acct.ResetExpiresAt == nil || s.now().After(*acct.ResetExpiresAt) {
		return invalid(op, msgBadResetToken)
	}

	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrWeakPassword) {
		return invalid(op, msgWeakPassword)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	if err := s.accounts.SetPassword(ctx, acct.ProfileID, hash); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store password", err)
	}
	return nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
