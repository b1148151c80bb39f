package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/auth"
	"github.com/dmitrijs2005/casefile/internal/server/config"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/repomanager"
)

const codeLength = 6

// LoginResult is what a successful password check hands back to the client.
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	FirstLogin  bool
}

// Principal is the caller behind a bearer token.
type Principal struct {
	UserID    int64
	SessionID string
	Verified  bool
}

// UserService handles login, two-factor verification and password changes.
// Every access token is bound to a row in sessions; verifying the code
// flips that row, so the token the client already holds becomes usable.
type UserService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	notifier            CodeNotifier
	logger              logging.Logger
	jwtSecret           []byte
	accessTokenValidity time.Duration
	codeValidity        time.Duration
	now                 func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, notifier CodeNotifier, logger logging.Logger) *UserService {
	return &UserService{
		db:                  db,
		repomanager:         m,
		notifier:            notifier,
		logger:              logger,
		jwtSecret:           []byte(cfg.SecretKey),
		accessTokenValidity: cfg.AccessTokenValidity,
		codeValidity:        cfg.CodeValidity,
		now:                 time.Now,
	}
}

// Login checks the password and opens an unverified session. Unknown users
// and wrong passwords both yield common.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	code, err := common.MakeRandDigits(codeLength)
	if err != nil {
		return nil, common.ErrInternal
	}

	now := s.now()
	session := &models.Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Code:          code,
		CodeExpiresAt: now.Add(s.codeValidity),
		ExpiresAt:     now.Add(s.accessTokenValidity),
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, session.ID, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.notifier.SendCode(ctx, user.Email, code); err != nil {
		s.logger.Warn(ctx, "code delivery failed", "user_id", user.ID, "error", err)
	}

	return &LoginResult{AccessToken: token, ExpiresIn: s.accessTokenValidity, FirstLogin: user.FirstLogin}, nil
}

// Authenticate resolves a bearer token to its session. Tokens of deleted or
// expired sessions are rejected even if the JWT itself is still valid.
func (s *UserService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	session, err := s.repomanager.Sessions(s.db).Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, common.ErrInvalidToken
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, common.ErrTokenExpired
	}

	return &Principal{UserID: session.UserID, SessionID: session.ID, Verified: session.Verified}, nil
}

// Verify confirms the two-factor code of a session. A wrong or expired code
// reports false without error.
func (s *UserService) Verify(ctx context.Context, sessionID, code string) (bool, error) {
	repo := s.repomanager.Sessions(s.db)

	session, err := repo.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("error loading session: %w", err)
	}
	if session.Verified {
		return true, nil
	}
	if session.Code == "" || !s.now().Before(session.CodeExpiresAt) {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(strings.TrimSpace(code))) != 1 {
		return false, nil
	}

	if err := repo.MarkVerified(ctx, sessionID); err != nil {
		return false, fmt.Errorf("error verifying session: %w", err)
	}
	return true, nil
}

// Resend issues a fresh code for an unverified session.
func (s *UserService) Resend(ctx context.Context, p *Principal) error {
	code, err := common.MakeRandDigits(codeLength)
	if err != nil {
		return common.ErrInternal
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if err := s.repomanager.Sessions(s.db).SetCode(ctx, p.SessionID, code, s.now().Add(s.codeValidity)); err != nil {
		return fmt.Errorf("error storing code: %w", err)
	}
	return s.notifier.SendCode(ctx, user.Email, code)
}

// ResetPassword replaces the password of the caller and clears the
// first-login flag.
func (s *UserService) ResetPassword(ctx context.Context, userID int64, password, confirmation string) error {
	if password != confirmation {
		return fmt.Errorf("%w: %w", common.ErrValidation, ErrPasswordMismatch)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: %w", common.ErrValidation, ErrPasswordTooShort)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrInternal
	}
	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// EnsureUser creates the account if it does not exist yet. The user has to
// pick a new password on first login.
func (s *UserService) EnsureUser(ctx context.Context, email, name, password string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("error loading user: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return common.ErrInternal
		}
		if _, err := repo.Create(ctx, &models.User{Email: email, Name: name, PasswordHash: hash, FirstLogin: true}); err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		s.logger.Info(ctx, "bootstrap user created", "email", email)
		return nil
	})
}

// PurgeSessions deletes expired sessions.
func (s *UserService) PurgeSessions(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteExpired(ctx, s.now())
}
