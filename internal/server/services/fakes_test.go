package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/beneficiaries"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/forms"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/reference"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsers struct {
	byEmail   map[string]*models.User
	getErr    error
	createErr error
	updated   map[int64][]byte
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = int64(len(f.byEmail) + 1)
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash []byte) error {
	if f.updated == nil {
		f.updated = map[int64][]byte{}
	}
	f.updated[id] = hash
	return nil
}

type fakeSessions struct {
	mu        sync.Mutex
	rows      map[string]*models.Session
	createErr error
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) SetCode(_ context.Context, id, code string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Code, s.CodeExpiresAt = code, exp
	return nil
}

func (f *fakeSessions) MarkVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Verified, s.Code = true, ""
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.rows {
		if s.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeBeneficiaries struct {
	rows    map[int64]*models.Beneficiary
	forms   map[int64][]int64
	links   [][2]int64
	sent    map[int64]time.Time
	nextID  int64
	failSet error
}

func newFakeBeneficiaries() *fakeBeneficiaries {
	return &fakeBeneficiaries{rows: map[int64]*models.Beneficiary{}, forms: map[int64][]int64{}, sent: map[int64]time.Time{}, nextID: 100}
}

func (f *fakeBeneficiaries) ListByUser(_ context.Context, userID int64) ([]models.Beneficiary, error) {
	var out []models.Beneficiary
	for _, b := range f.rows {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBeneficiaries) Get(_ context.Context, userID, id int64) (*models.Beneficiary, error) {
	b, ok := f.rows[id]
	if !ok || b.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBeneficiaries) Create(_ context.Context, b *models.Beneficiary) (int64, error) {
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.rows[b.ID] = &cp
	return b.ID, nil
}

func (f *fakeBeneficiaries) Update(_ context.Context, b *models.Beneficiary) error {
	cur, ok := f.rows[b.ID]
	if !ok || cur.UserID != b.UserID {
		return common.ErrNotFound
	}
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeBeneficiaries) SetForms(_ context.Context, id int64, formIDs []int64) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.forms[id] = formIDs
	return nil
}

func (f *fakeBeneficiaries) LinkFamily(_ context.Context, a, b int64) error {
	f.links = append(f.links, [2]int64{a, b})
	return nil
}

func (f *fakeBeneficiaries) MarkSent(_ context.Context, userID, id int64, at time.Time) error {
	b, ok := f.rows[id]
	if !ok || b.UserID != userID {
		return common.ErrNotFound
	}
	f.sent[id] = at
	return nil
}

type fakeSubmissions struct {
	batches  []*models.AnswerBatch
	notes    []*models.Note
	stations []*models.PollingStation
	err      error
}

func (f *fakeSubmissions) SaveAnswers(_ context.Context, b *models.AnswerBatch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeSubmissions) SaveNote(_ context.Context, n *models.Note) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.notes = append(f.notes, n)
	n.ID = int64(len(f.notes))
	return n.ID, nil
}

func (f *fakeSubmissions) UpsertPollingStation(_ context.Context, ps *models.PollingStation) error {
	f.stations = append(f.stations, ps)
	return f.err
}

type fakeReference struct{}

func (fakeReference) Counties(context.Context) ([]models.County, error) {
	return []models.County{{ID: 1, Name: "Cluj", Code: "CJ"}}, nil
}

func (fakeReference) Cities(_ context.Context, countyID int64) ([]models.City, error) {
	if countyID != 1 {
		return nil, nil
	}
	return []models.City{{ID: 7, CountyID: 1, Name: "Dej"}}, nil
}

type fakeForms struct{}

func (fakeForms) ListCurrent(context.Context) ([]models.Form, error) {
	return []models.Form{{ID: 1, Code: "A", CurrentVersion: 2}}, nil
}

func (fakeForms) Get(_ context.Context, id int64) (*models.Form, error) {
	if id != 1 {
		return nil, common.ErrNotFound
	}
	return &models.Form{ID: 1, Code: "A", CurrentVersion: 2, Sections: []byte(`[]`)}, nil
}

type fakeManager struct {
	users         *fakeUsers
	sessions      *fakeSessions
	beneficiaries *fakeBeneficiaries
	submissions   *fakeSubmissions
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:         &fakeUsers{byEmail: map[string]*models.User{}},
		sessions:      &fakeSessions{rows: map[string]*models.Session{}},
		beneficiaries: newFakeBeneficiaries(),
		submissions:   &fakeSubmissions{},
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository           { return m.sessions }
func (m *fakeManager) Reference(dbx.DBTX) reference.Repository         { return fakeReference{} }
func (m *fakeManager) Forms(dbx.DBTX) forms.Repository                 { return fakeForms{} }
func (m *fakeManager) Beneficiaries(dbx.DBTX) beneficiaries.Repository { return m.beneficiaries }
func (m *fakeManager) Submissions(dbx.DBTX) submissions.Repository     { return m.submissions }

type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *recordingNotifier) SendCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[email] = code
	return n.err
}

func (n *recordingNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type fakeStore struct {
	keys []string
	err  error
}

func (s *fakeStore) Put(_ context.Context, userID int64, name, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	key := "users/" + name
	s.keys = append(s.keys, key)
	return key, nil
}
