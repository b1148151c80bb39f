// Package services holds the client application services: session handling,
// reference data, case records, form filling and the sync reconciler.
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

// AuthService manages the session of the field worker.
//
// Login stores the session in the local metadata table so that RestoreSession
// can bring it back on the next start without talking to the server.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Verify2FA(ctx context.Context, code string) error
	Resend2FA(ctx context.Context) error
	ResetPassword(ctx context.Context, password, confirmation string) error
	RestoreSession(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  *store.Store
	logger logging.Logger
	now    func() time.Time
}

func NewAuthService(c client.Client, st *store.Store, logger logging.Logger) AuthService {
	return &authService{client: c, store: st, logger: logger, now: time.Now}
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s := &models.Session{
		Email:       email,
		AccessToken: resp.AccessToken,
		FirstLogin:  resp.FirstLogin,
	}
	if resp.ExpiresIn > 0 {
		s.ExpiresAt = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}

	err = a.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		others, err := r.Beneficiaries.CountOwnedByOther(ctx, email)
		if err != nil {
			return err
		}
		if others > 0 {
			a.logger.Info(ctx, "local store holds records of another account", "count", others)
		}
		return r.Metadata.SetMany(ctx, encodeSession(s))
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	a.logger.Info(ctx, "logged in", "email", email, "first_login", s.FirstLogin)
	return s, nil
}

func (a *authService) Verify2FA(ctx context.Context, code string) error {
	resp, err := a.client.Verify2FA(ctx, code)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !resp.Success {
		return ErrVerificationFailed
	}
	return a.store.Repos().Metadata.Set(ctx, metadata.KeyVerified, []byte(strconv.FormatBool(true)))
}

func (a *authService) Resend2FA(ctx context.Context) error {
	if err := a.client.Resend2FA(ctx); err != nil {
		return fmt.Errorf("resend code: %w", err)
	}
	return nil
}

func (a *authService) ResetPassword(ctx context.Context, password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	if err := a.client.ResetPassword(ctx, password, confirmation); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return a.store.Repos().Metadata.Set(ctx, metadata.KeyFirstLogin, []byte(strconv.FormatBool(false)))
}

// RestoreSession loads the stored session and hands its token to the client.
func (a *authService) RestoreSession(ctx context.Context) (*models.Session, error) {
	values, err := a.store.Repos().Metadata.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s := decodeSession(values)
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	if s.Expired(a.now()) {
		return nil, ErrSessionExpired
	}

	a.client.SetToken(s.AccessToken)
	return s, nil
}

// Logout forgets the session. Local records are kept for the next login.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetToken("")
	err := a.store.Repos().Metadata.Delete(ctx,
		metadata.KeyEmail, metadata.KeyAccessToken, metadata.KeyExpiresAt, metadata.KeyFirstLogin, metadata.KeyVerified)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func encodeSession(s *models.Session) map[string][]byte {
	expires := ""
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string][]byte{
		metadata.KeyEmail:       []byte(s.Email),
		metadata.KeyAccessToken: []byte(s.AccessToken),
		metadata.KeyExpiresAt:   []byte(expires),
		metadata.KeyFirstLogin:  []byte(strconv.FormatBool(s.FirstLogin)),
		metadata.KeyVerified:    []byte(strconv.FormatBool(s.Verified)),
	}
}

func decodeSession(values map[string][]byte) *models.Session {
	s := &models.Session{
		Email:       string(values[metadata.KeyEmail]),
		AccessToken: string(values[metadata.KeyAccessToken]),
	}
	if t, err := time.Parse(time.RFC3339Nano, string(values[metadata.KeyExpiresAt])); err == nil {
		s.ExpiresAt = t
	}
	s.FirstLogin, _ = strconv.ParseBool(string(values[metadata.KeyFirstLogin]))
	s.Verified, _ = strconv.ParseBool(string(values[metadata.KeyVerified]))
	return s
}
