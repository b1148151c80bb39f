package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

func newCases(t *testing.T, fc *fakeClient) (*caseService, *reconcilerEnv) {
	t.Helper()
	st := newStore(t)
	ch := newCache(t)
	s := NewCaseService(fc, st, ch, logging.NewNop()).(*caseService)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s, &reconcilerEnv{fc: fc, store: st, cache: ch}
}

func TestCreate_PlaceholderIsPending(t *testing.T) {
	s, env := newCases(t, &fakeClient{})
	ctx := context.Background()
	require.NoError(t, env.cache.SetCounties([]models.County{{ID: 12, Name: "Cluj", Code: "CJ"}}))
	require.NoError(t, env.cache.SetCities(12, []models.City{{ID: 7, Name: "Dej"}}))

	b, err := s.Create(ctx, owner, &models.Beneficiary{
		Name:      "Ion",
		BirthDate: time.Date(1980, 7, 1, 0, 0, 0, 0, time.UTC),
		CountyID:  12,
		CityID:    7,
		Forms:     []models.FormAssignment{{FormID: 1, FormVersion: 2}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.LocalID)
	assert.Zero(t, b.ID)
	assert.Equal(t, 43, b.Age)
	assert.Equal(t, "Cluj", b.County)
	assert.Equal(t, "Dej", b.City)

	pending, err := env.store.Repos().Beneficiaries.ListPending(ctx, owner)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.LocalID, pending[0].LocalID)
	require.Len(t, pending[0].Forms, 1)

	_, err = s.Create(ctx, owner, &models.Beneficiary{Name: "  "})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestUpdate_RecordsRevisions(t *testing.T) {
	s, env := newCases(t, &fakeClient{})
	ctx := context.Background()
	b := seedBeneficiary(t, env.store, "l1", 5)

	require.ErrorIs(t, s.Update(ctx, b, nil...), ErrNothingChanged)

	b.Name = "Renamed"
	b.Gender = models.GenderFemale
	require.NoError(t, s.Update(ctx, b, models.PropertyName, models.PropertyGender))

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.GenderFemale, got.Gender)

	fields, err := env.store.Repos().Beneficiaries.ModifiedFields(ctx, "l1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.PropertyName, models.PropertyGender}, fields)
}

func TestAssignAndUnassignForm(t *testing.T) {
	s, env := newCases(t, &fakeClient{})
	ctx := context.Background()
	seedBeneficiary(t, env.store, "l1", 5)

	require.ErrorIs(t, s.AssignForm(ctx, "l1", 1), ErrFormNotAvailable)

	require.NoError(t, env.cache.SetForms([]models.FormSummary{{ID: 1, Code: "A", Version: 4, Description: "Intake"}}))
	require.NoError(t, s.AssignForm(ctx, "l1", 1))

	b, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, b.Forms, 1)
	assert.Equal(t, 4, b.Forms[0].FormVersion)
	assert.Equal(t, "Intake", b.Forms[0].Description)

	require.NoError(t, s.UnassignForm(ctx, "l1", 1))
	b, err = s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, b.Forms)

	fields, err := env.store.Repos().Beneficiaries.ModifiedFields(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{models.PropertyForms}, fields)
}

func TestSendForm(t *testing.T) {
	var sent int64
	fc := &fakeClient{sendForm: func(id int64) (bool, error) { sent = id; return true, nil }}
	s, env := newCases(t, fc)
	ctx := context.Background()
	seedBeneficiary(t, env.store, "l1", 5)
	seedBeneficiary(t, env.store, "draft", 0)

	_, err := s.SendForm(ctx, "draft")
	require.ErrorIs(t, err, ErrNotPushed)

	ok, err := s.SendForm(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), sent)
}
