package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/dmitrijs2005/casefile/internal/client/client"
	clientmodels "github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

// newClient points the field client at the router.
func newClient(t *testing.T, f *fixture) *apiclient.HTTPClient {
	t.Helper()
	ts := httptest.NewServer(f.handler)
	transport := &http.Transport{}
	t.Cleanup(func() {
		transport.CloseIdleConnections()
		ts.Close()
	})
	return apiclient.NewHTTPClient(ts.URL, 5*time.Second, apiclient.WithHTTPClient(&http.Client{Transport: transport}))
}

func TestClientRoundTrip_LoginAndVerify(t *testing.T) {
	f := newFixture(t)
	c := newClient(t, f)
	ctx := context.Background()

	_, err := c.Login(ctx, "ana@example.org", "wrong")
	require.ErrorIs(t, err, apiclient.ErrLoginFailed)

	resp, err := c.Login(ctx, "ana@example.org", "secret-pass")
	require.NoError(t, err)
	assert.True(t, resp.FirstLogin)
	assert.Equal(t, unverifiedToken, c.Token())

	_, err = c.FetchCounties(ctx)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized, "data stays locked until the code is confirmed")

	require.NoError(t, c.Resend2FA(ctx))

	ok, err := c.Verify2FA(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, ok.Success)

	counties, err := c.FetchCounties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []clientmodels.County{{ID: 1, Name: "Alba", Code: "AB"}, {ID: 2, Name: "Cluj", Code: "CJ"}}, counties)

	require.NoError(t, c.ResetPassword(ctx, "new-password", "new-password"))
	require.NoError(t, c.Ping(ctx))
}

func TestClientRoundTrip_ReferenceData(t *testing.T) {
	f := newFixture(t)
	c := newClient(t, f)
	c.SetToken(verifiedToken)
	ctx := context.Background()

	cities, err := c.FetchCities(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []clientmodels.City{{ID: 7, Name: "Dej"}}, cities)

	forms, err := c.FetchForms(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, clientmodels.FormSummary{ID: 1, Code: "A", Version: 2, Description: "Intake"}, forms[0])

	sections, err := c.FetchForm(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "S1", sections[0].Code)

	_, err = c.FetchForm(ctx, 42)
	assert.ErrorIs(t, err, apiclient.ErrIncorrectFormat)
}

func TestClientRoundTrip_Beneficiaries(t *testing.T) {
	f := newFixture(t)
	c := newClient(t, f)
	c.SetToken(verifiedToken)
	ctx := context.Background()

	req := &apiclient.BeneficiaryRequest{
		Name:        "Ana",
		BirthDate:   timex.NewAPITime(time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)),
		CivilStatus: clientmodels.CivilStatusMarried,
		Gender:      clientmodels.GenderFemale,
		CountyID:    2,
		CityID:      7,
		FormsIDs:    []int64{1},
	}
	id, err := c.CreateOrUpdateBeneficiary(ctx, req, true)
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
	assert.Equal(t, []int64{1}, f.beneficiaries.created.FormsIDs)

	req.ID = id
	req.Name = "Ana M"
	got, err := c.CreateOrUpdateBeneficiary(ctx, req, false)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	f.beneficiaries.rows[id].Forms = []models.FormAssignment{{FormID: 1, FormVersion: 2, Code: "A", TotalQuestions: 3}}
	f.beneficiaries.rows[id].FamilyMembers = []models.FamilyMember{{ID: 5, Name: "Ion"}}

	list, err := c.FetchBeneficiaries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, 34, list[0].Age)
	assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), list[0].BirthDate.Time)
	assert.Equal(t, []apiclient.FamilyMember{{BeneficiaryID: 5, Name: "Ion"}}, list[0].FamilyMembers)
	require.Len(t, list[0].Forms, 1)
	assert.True(t, list[0].Forms[0].CompletionDate.IsZero())

	one, err := c.FetchBeneficiary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, one.FamilyMembers)

	sent, err := c.SendForm(ctx, id)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestClientRoundTrip_Submissions(t *testing.T) {
	f := newFixture(t)
	c := newClient(t, f)
	c.SetToken(verifiedToken)
	ctx := context.Background()

	err := c.UploadAnswers(ctx, &apiclient.AnswersRequest{
		FormID:         1,
		CompletionDate: timex.NewAPITime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		Answers: []apiclient.AnswerUpload{
			{QuestionID: 101, BeneficiaryID: 5, Options: []apiclient.AnswerOption{{OptionID: 1, Value: "yes"}}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, f.submissions.batch)
	assert.Equal(t, "yes", f.submissions.batch.Answers[0].Options[0].Value)

	qid := int64(101)
	err = c.UploadNote(ctx, &apiclient.NoteUpload{
		BeneficiaryID: 5,
		QuestionID:    &qid,
		Text:          "see photo",
		Attachment:    []byte("\xff\xd8\xff\xe0fake-jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "see photo", f.submissions.note.Text)
	assert.Equal(t, "attachment.jpg", f.submissions.file.Name)
	assert.Equal(t, "image/jpeg", f.submissions.file.ContentType)

	err = c.UploadPollingStation(ctx, &apiclient.PollingStationRequest{
		ID:          4,
		CountyCode:  "AB",
		ArrivalTime: timex.FormatAPI(time.Date(2024, 6, 9, 7, 30, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 9, 7, 30, 0, 0, time.UTC), f.submissions.station.ArrivalTime)
}
