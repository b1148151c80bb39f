package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/config"
	"github.com/dmitrijs2005/casefile/internal/server/models"
)

const email = "ana@example.org"

func newUserService(t *testing.T) (*UserService, *fakeManager, *recordingNotifier) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	m := newFakeManager()
	n := &recordingNotifier{}
	cfg := &config.Config{SecretKey: "k", AccessTokenValidity: time.Hour, CodeValidity: 5 * time.Minute}
	return NewUserService(db, m, cfg, n, logging.NewNop()), m, n
}

func addUser(t *testing.T, m *fakeManager, password string, firstLogin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{ID: 3, Email: email, Name: "Ana", PasswordHash: hash, FirstLogin: firstLogin}
	m.users.byEmail[email] = u
	return u
}

func TestLogin_OpensUnverifiedSession(t *testing.T) {
	s, m, n := newUserService(t)
	addUser(t, m, "correct horse", true)

	res, err := s.Login(context.Background(), " "+email+" ", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, time.Hour, res.ExpiresIn)
	assert.True(t, res.FirstLogin)

	require.Len(t, m.sessions.rows, 1)
	for _, sess := range m.sessions.rows {
		assert.False(t, sess.Verified)
		assert.Len(t, sess.Code, codeLength)
		assert.Equal(t, sess.Code, n.last(email))
	}

	p, err := s.Authenticate(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.UserID)
	assert.False(t, p.Verified)
}

func TestLogin_Rejected(t *testing.T) {
	s, m, _ := newUserService(t)
	addUser(t, m, "correct horse", false)

	_, err := s.Login(context.Background(), email, "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = s.Login(context.Background(), "ghost@example.org", "x")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	m.users.getErr = errBoom
	_, err = s.Login(context.Background(), email, "correct horse")
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_NotifierFailureDoesNotBlock(t *testing.T) {
	s, m, n := newUserService(t)
	addUser(t, m, "correct horse", false)
	n.err = errBoom

	_, err := s.Login(context.Background(), email, "correct horse")
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	s, m, n := newUserService(t)
	addUser(t, m, "correct horse", false)
	ctx := context.Background()

	res, err := s.Login(ctx, email, "correct horse")
	require.NoError(t, err)
	p, err := s.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)

	ok, err := s.Verify(ctx, p.SessionID, "000000x")
	require.NoError(t, err)
	assert.False(t, ok, "wrong code")

	ok, err = s.Verify(ctx, p.SessionID, n.last(email))
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = s.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.Verified, "the token already held by the client is now verified")

	ok, err = s.Verify(ctx, p.SessionID, "anything")
	require.NoError(t, err)
	assert.True(t, ok, "verifying twice is harmless")
}

func TestVerify_ExpiredCode(t *testing.T) {
	s, m, n := newUserService(t)
	addUser(t, m, "correct horse", false)
	ctx := context.Background()

	res, err := s.Login(ctx, email, "correct horse")
	require.NoError(t, err)
	p, err := s.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	ok, err := s.Verify(ctx, p.SessionID, n.last(email))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Resend(ctx, p))
	ok, err = s.Verify(ctx, p.SessionID, n.last(email))
	require.NoError(t, err)
	assert.True(t, ok, "resent code is valid again")
}

func TestAuthenticate_Rejections(t *testing.T) {
	s, m, _ := newUserService(t)
	addUser(t, m, "correct horse", false)
	ctx := context.Background()

	_, err := s.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	res, err := s.Login(ctx, email, "correct horse")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenExpired, "session expiry is enforced server side")

	s.now = time.Now
	for id := range m.sessions.rows {
		require.NoError(t, m.sessions.Delete(ctx, id))
	}
	_, err = s.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestResetPassword(t *testing.T) {
	s, m, _ := newUserService(t)
	addUser(t, m, "correct horse", true)
	ctx := context.Background()

	err := s.ResetPassword(ctx, 3, "longenough", "different1")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = s.ResetPassword(ctx, 3, "short", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	require.NoError(t, s.ResetPassword(ctx, 3, "battery staple", "battery staple"))
	require.NoError(t, bcrypt.CompareHashAndPassword(m.users.updated[3], []byte("battery staple")))
}

func TestEnsureUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	m := newFakeManager()
	s := NewUserService(db, m, &config.Config{SecretKey: "k"}, &recordingNotifier{}, logging.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.EnsureUser(context.Background(), email, "Ana", "initial-pass"))
	require.NoError(t, s.EnsureUser(context.Background(), email, "Ana", "other"))

	u := m.users.byEmail[email]
	require.NotNil(t, u)
	assert.True(t, u.FirstLogin)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("initial-pass")), "existing user is left alone")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUser_RollsBackOnError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	m := newFakeManager()
	m.users.createErr = errBoom
	s := NewUserService(db, m, &config.Config{}, &recordingNotifier{}, logging.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.EnsureUser(context.Background(), email, "", "pw")
	assert.True(t, errors.Is(err, errBoom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSessions(t *testing.T) {
	s, m, _ := newUserService(t)
	now := time.Now()
	m.sessions.rows["old"] = &models.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}
	m.sessions.rows["new"] = &models.Session{ID: "new", ExpiresAt: now.Add(time.Minute)}

	n, err := s.PurgeSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, m.sessions.rows, "new")
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(logging.NewNop()).SendCode(context.Background(), email, "123456"))
}
