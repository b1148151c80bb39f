package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/casefile/internal/client/cache"
	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/repositories/testdb"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

const owner = "ana@example.org"

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testdb.Open(t))
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(t.TempDir(), logging.NewNop())
	require.NoError(t, err)
	return c
}

// fakeClient implements client.Client; unset funcs return zero values.
type fakeClient struct {
	mu    sync.Mutex
	token string

	login          func(email, password string) (*client.LoginResponse, error)
	verify         func(code string) (*client.TwoFactorResponse, error)
	resend         func() error
	reset          func(password, confirmation string) error
	ping           func() error
	counties       func() ([]models.County, error)
	cities         func(countyID int64) ([]models.City, error)
	beneficiaries  func() ([]client.BeneficiaryDetails, error)
	beneficiary    func(id int64) (*client.Beneficiary, error)
	saveBenef      func(req *client.BeneficiaryRequest, isNew bool) (int64, error)
	forms          func() ([]models.FormSummary, error)
	form           func(formID int64) ([]models.FormSection, error)
	pollingStation func(req *client.PollingStationRequest) error
	note           func(n *client.NoteUpload) error
	answers        func(req *client.AnswersRequest) error
	sendForm       func(id int64) (bool, error)
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*client.LoginResponse, error) {
	if f.login == nil {
		return &client.LoginResponse{AccessToken: "tok"}, nil
	}
	resp, err := f.login(email, password)
	if err == nil {
		f.SetToken(resp.AccessToken)
	}
	return resp, err
}

func (f *fakeClient) Verify2FA(_ context.Context, code string) (*client.TwoFactorResponse, error) {
	if f.verify == nil {
		return &client.TwoFactorResponse{Success: true}, nil
	}
	return f.verify(code)
}

func (f *fakeClient) Resend2FA(context.Context) error {
	if f.resend == nil {
		return nil
	}
	return f.resend()
}

func (f *fakeClient) ResetPassword(_ context.Context, password, confirmation string) error {
	if f.reset == nil {
		return nil
	}
	return f.reset(password, confirmation)
}

func (f *fakeClient) Ping(context.Context) error {
	if f.ping == nil {
		return nil
	}
	return f.ping()
}

func (f *fakeClient) FetchCounties(context.Context) ([]models.County, error) {
	if f.counties == nil {
		return nil, nil
	}
	return f.counties()
}

func (f *fakeClient) FetchCities(_ context.Context, countyID int64) ([]models.City, error) {
	if f.cities == nil {
		return nil, nil
	}
	return f.cities(countyID)
}

func (f *fakeClient) FetchBeneficiaries(context.Context) ([]client.BeneficiaryDetails, error) {
	if f.beneficiaries == nil {
		return nil, nil
	}
	return f.beneficiaries()
}

func (f *fakeClient) FetchBeneficiary(_ context.Context, id int64) (*client.Beneficiary, error) {
	if f.beneficiary == nil {
		return &client.Beneficiary{ID: id}, nil
	}
	return f.beneficiary(id)
}

func (f *fakeClient) CreateOrUpdateBeneficiary(_ context.Context, req *client.BeneficiaryRequest, isNew bool) (int64, error) {
	if f.saveBenef == nil {
		return req.ID, nil
	}
	return f.saveBenef(req, isNew)
}

func (f *fakeClient) FetchForms(context.Context) ([]models.FormSummary, error) {
	if f.forms == nil {
		return nil, nil
	}
	return f.forms()
}

func (f *fakeClient) FetchForm(_ context.Context, formID int64) ([]models.FormSection, error) {
	if f.form == nil {
		return nil, nil
	}
	return f.form(formID)
}

func (f *fakeClient) UploadPollingStation(_ context.Context, req *client.PollingStationRequest) error {
	if f.pollingStation == nil {
		return nil
	}
	return f.pollingStation(req)
}

func (f *fakeClient) UploadNote(_ context.Context, n *client.NoteUpload) error {
	if f.note == nil {
		return nil
	}
	return f.note(n)
}

func (f *fakeClient) UploadAnswers(_ context.Context, req *client.AnswersRequest) error {
	if f.answers == nil {
		return nil
	}
	return f.answers(req)
}

func (f *fakeClient) SendForm(_ context.Context, id int64) (bool, error) {
	if f.sendForm == nil {
		return true, nil
	}
	return f.sendForm(id)
}

func sections(questionIDs ...int64) []models.FormSection {
	s := models.FormSection{ID: 1, Code: "A"}
	for _, id := range questionIDs {
		s.Questions = append(s.Questions, models.QuestionDefinition{
			ID:   id,
			Code: "Q",
			Type: models.QuestionSingleAnswerWithText,
			Text: "question",
			Options: []models.QuestionOption{
				{ID: id*10 + 1, Text: "yes"},
				{ID: id*10 + 2, Text: "other", IsFreeText: true},
			},
		})
	}
	return []models.FormSection{s}
}

func seedBeneficiary(t *testing.T, st *store.Store, localID string, serverID int64) *models.Beneficiary {
	t.Helper()
	b := &models.Beneficiary{LocalID: localID, ID: serverID, OwnerEmail: owner, Name: "B " + localID}
	require.NoError(t, st.Repos().Beneficiaries.Upsert(context.Background(), b))
	return b
}
