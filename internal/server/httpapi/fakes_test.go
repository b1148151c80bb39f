package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/services"
)

const (
	verifiedToken   = "verified-token"
	unverifiedToken = "fresh-token"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	sessions map[string]*services.Principal
	password string
	code     string

	resent   int
	resetFor int64
	resetPw  string
	loginErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		sessions: map[string]*services.Principal{
			verifiedToken:   {UserID: 3, SessionID: "s-verified", Verified: true},
			unverifiedToken: {UserID: 3, SessionID: "s-fresh"},
		},
		password: "secret-pass",
		code:     "123456",
	}
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*services.Principal, error) {
	p, ok := f.sessions[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return p, nil
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if email != "ana@example.org" || password != f.password {
		return nil, common.ErrUnauthorized
	}
	return &services.LoginResult{AccessToken: unverifiedToken, ExpiresIn: time.Hour, FirstLogin: true}, nil
}

func (f *fakeUsers) Verify(_ context.Context, sessionID, code string) (bool, error) {
	if code != f.code {
		return false, nil
	}
	for _, p := range f.sessions {
		if p.SessionID == sessionID {
			p.Verified = true
		}
	}
	return true, nil
}

func (f *fakeUsers) Resend(context.Context, *services.Principal) error {
	f.resent++
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, userID int64, password, confirmation string) error {
	if password != confirmation {
		return fmt.Errorf("%w: %w", common.ErrValidation, services.ErrPasswordMismatch)
	}
	f.resetFor, f.resetPw = userID, password
	return nil
}

type fakeBeneficiaries struct {
	rows    map[int64]*models.Beneficiary
	created *services.BeneficiaryInput
	updated *services.BeneficiaryInput
	sent    []int64
	nextID  int64
	err     error
}

func newFakeBeneficiaries() *fakeBeneficiaries {
	return &fakeBeneficiaries{rows: map[int64]*models.Beneficiary{}, nextID: 100}
}

func (f *fakeBeneficiaries) List(_ context.Context, userID int64) ([]models.Beneficiary, error) {
	if f.err != nil {
		return nil, f.err
	}
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
	return b, nil
}

func (f *fakeBeneficiaries) Create(_ context.Context, userID int64, in *services.BeneficiaryInput) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = in
	id := f.nextID
	f.nextID++
	f.rows[id] = &models.Beneficiary{ID: id, UserID: userID, Name: in.Name, BirthDate: in.BirthDate}
	return id, nil
}

func (f *fakeBeneficiaries) Update(_ context.Context, userID int64, in *services.BeneficiaryInput) error {
	if _, ok := f.rows[in.ID]; !ok {
		return common.ErrNotFound
	}
	f.updated = in
	return nil
}

func (f *fakeBeneficiaries) Send(_ context.Context, userID, id int64) (bool, error) {
	if _, err := f.Get(context.Background(), userID, id); err != nil {
		return false, nil
	}
	f.sent = append(f.sent, id)
	return true, nil
}

type fakeReference struct {
	counties []models.County
	cities   map[int64][]models.City
	forms    []models.Form
}

func newFakeReference() *fakeReference {
	return &fakeReference{
		counties: []models.County{{ID: 1, Name: "Alba", Code: "AB"}, {ID: 2, Name: "Cluj", Code: "CJ"}},
		cities:   map[int64][]models.City{2: {{ID: 7, CountyID: 2, Name: "Dej"}}},
		forms: []models.Form{
			{ID: 1, Code: "A", Description: "Intake", CurrentVersion: 2, Sections: json.RawMessage(`[{"sectionId":1,"title":"S1","questions":[]}]`)},
			{ID: 2, Code: "B", Description: "Follow-up", CurrentVersion: 1},
		},
	}
}

func (f *fakeReference) Counties(context.Context) ([]models.County, error) { return f.counties, nil }

func (f *fakeReference) Cities(_ context.Context, countyID int64) ([]models.City, error) {
	return f.cities[countyID], nil
}

func (f *fakeReference) Forms(context.Context) ([]models.Form, error) { return f.forms, nil }

func (f *fakeReference) Form(_ context.Context, id int64) (*models.Form, error) {
	for i := range f.forms {
		if f.forms[i].ID == id {
			return &f.forms[i], nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeSubmissions struct {
	batch   *models.AnswerBatch
	note    *models.Note
	file    *services.Attachment
	station *models.PollingStation
	err     error
}

func (f *fakeSubmissions) SaveAnswers(_ context.Context, batch *models.AnswerBatch) error {
	f.batch = batch
	return f.err
}

func (f *fakeSubmissions) SaveNote(_ context.Context, note *models.Note, file *services.Attachment) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.note, f.file = note, file
	return 9, nil
}

func (f *fakeSubmissions) SavePollingStation(_ context.Context, ps *models.PollingStation) error {
	f.station = ps
	return f.err
}

type fixture struct {
	users         *fakeUsers
	beneficiaries *fakeBeneficiaries
	reference     *fakeReference
	submissions   *fakeSubmissions
	metrics       *Metrics
	handler       http.Handler
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:         newFakeUsers(),
		beneficiaries: newFakeBeneficiaries(),
		reference:     newFakeReference(),
		submissions:   &fakeSubmissions{},
		metrics:       NewMetrics(),
	}
	d := Deps{
		Users:         f.users,
		Beneficiaries: f.beneficiaries,
		Reference:     f.reference,
		Submissions:   f.submissions,
		Metrics:       f.metrics,
		Logger:        logging.NewNop(),
	}
	h := &handlers{
		users:         d.Users,
		beneficiaries: d.Beneficiaries,
		reference:     d.Reference,
		submissions:   d.Submissions,
		logger:        d.Logger,
		now:           func() time.Time { return fixedNow },
	}
	f.handler = newRouter(d, h)
	return f
}

// do sends body (a string or a value to JSON-encode) with the given token.
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = strings.NewReader(string(data))
	}

	req := httptest.NewRequest(method, common.APIPrefix+path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
