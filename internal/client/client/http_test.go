package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, 5*time.Second, opts...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

type offline struct{}

func (offline) Reachable() bool { return false }

func TestLogin_StoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/access/authorize", r.URL.Path)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, LoginRequest{Email: "ana@example.org", Password: "secret"}, req)

		writeJSON(t, w, LoginResponse{AccessToken: "tok", ExpiresIn: 3600, FirstLogin: true})
	})

	resp, err := c.Login(context.Background(), "ana@example.org", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.True(t, resp.FirstLogin)
	assert.Equal(t, "tok", c.Token())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
		reason string
	}{
		{"error field", http.StatusBadRequest, `{"error":"wrong password"}`, ErrLoginFailed, "wrong password"},
		{"no token", http.StatusOK, `{}`, ErrLoginFailed, ""},
		{"empty body", http.StatusOK, ``, ErrLoginFailed, "no data received"},
		{"garbage", http.StatusOK, `<html>`, ErrIncorrectFormat, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Login(context.Background(), "a", "b")
			require.ErrorIs(t, err, tt.target)
			if tt.reason != "" {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.reason, apiErr.Reason)
			}
			assert.Empty(t, c.Token())
		})
	}
}

func TestLogin_OfflineFailsFast(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, WithReachability(offline{}))

	_, err := c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, Generic(ReasonNoConnection))

	err = c.UploadPollingStation(context.Background(), &PollingStationRequest{ID: 1})
	require.ErrorIs(t, err, Generic(ReasonNoConnection))
	assert.False(t, called)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrIncorrectFormat},
		{"not found", http.StatusNotFound, ErrIncorrectFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(tt.status) })
			_, err := c.FetchCounties(context.Background())
			require.ErrorIs(t, err, tt.target)
			require.ErrorIs(t, c.Resend2FA(context.Background()), tt.target)
		})
	}
}

func TestTransportFailureIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, err := c.FetchForms(context.Background())
	require.ErrorIs(t, err, ErrGeneric)
}

func TestBearerTokenSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/county/12/cities", r.URL.Path)
		writeJSON(t, w, []models.City{{ID: 1, Name: "Dej"}})
	})
	c.SetToken("abc")

	cities, err := c.FetchCities(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, []models.City{{ID: 1, Name: "Dej"}}, cities)
}

func TestFetchBeneficiaries_DecodesWrapperAndDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/beneficiary/details", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"beneficiaryId":5,"userId":2,"name":"Ion","age":44,
			"birthDate":"1980-05-17T00:00:00","civilStatus":1,"gender":0,"countyId":12,"county":"Cluj",
			"cityId":7,"city":"Dej","familyMembers":[{"beneficiaryId":6,"name":"Ana"}],
			"forms":[{"formId":3,"date":"2024-02-01T10:00:00","description":"Intake","code":"A",
			"totalQuestionsNo":10,"questionsAnsweredNo":4,"userName":"ana"}]}]}`)
	})

	got, err := c.FetchBeneficiaries(context.Background())
	require.NoError(t, err)

	want := []BeneficiaryDetails{{
		ID: 5, UserID: 2, Name: "Ion", Age: 44,
		BirthDate:   timex.APITime{Time: time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)},
		CivilStatus: models.CivilStatusMarried, Gender: models.GenderMale,
		CountyID: 12, County: "Cluj", CityID: 7, City: "Dej",
		FamilyMembers: []FamilyMember{{BeneficiaryID: 6, Name: "Ana"}},
		Forms: []FormBeneficiary{{
			FormID: 3, CompletionDate: timex.APITime{Time: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
			Description: "Intake", Code: "A", TotalQuestionsNo: 10, QuestionsAnsweredNo: 4, UserName: "ana",
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("beneficiaries mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchFormsAndForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/form":
			_, _ = io.WriteString(w, `{"formVersions":[{"id":1,"code":"A","currentVersion":2,"description":"Intake"}]}`)
		case "/api/v1/form/1":
			_, _ = io.WriteString(w, `[{"sectionId":9,"title":"S1","questions":[{"questionId":100,"code":"Q1",
				"questionType":1,"text":"Works?","isMandatory":true,"optionsToQuestions":[{"idOption":1,"text":"yes","isFreeText":false}]}]}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	forms, err := c.FetchForms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.FormSummary{{ID: 1, Code: "A", Version: 2, Description: "Intake"}}, forms)

	sections, err := c.FetchForm(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "S1", sections[0].Code)
	require.Len(t, sections[0].Questions, 1)
	assert.Equal(t, models.QuestionSingleAnswer, sections[0].Questions[0].Type)
	assert.Equal(t, int64(1), sections[0].Questions[0].Options[0].ID)
}

func TestCreateOrUpdateBeneficiary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/beneficiary", r.URL.Path)
		var req BeneficiaryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch r.Method {
		case http.MethodPost:
			assert.Zero(t, req.ID)
			_, _ = io.WriteString(w, "42")
		case http.MethodPut:
			if req.ID == 7 {
				_, _ = io.WriteString(w, "true")
			} else {
				_, _ = io.WriteString(w, "false")
			}
		}
	})
	ctx := context.Background()

	id, err := c.CreateOrUpdateBeneficiary(ctx, &BeneficiaryRequest{Name: "Ion"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = c.CreateOrUpdateBeneficiary(ctx, &BeneficiaryRequest{ID: 7, Name: "Ion"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = c.CreateOrUpdateBeneficiary(ctx, &BeneficiaryRequest{ID: 8, Name: "Ion"}, false)
	require.ErrorIs(t, err, Generic(ReasonUnknown))
}

func TestUploadNote_Multipart(t *testing.T) {
	q := int64(100)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/note/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "5", r.FormValue("BeneficiaryId"))
		assert.Equal(t, "visited", r.FormValue("Text"))
		assert.Equal(t, "100", r.FormValue("QuestionId"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "photo.png", hdr.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("content"), data)
	})

	err := c.UploadNote(context.Background(), &NoteUpload{
		BeneficiaryID: 5, QuestionID: &q, Text: "visited",
		Attachment: []byte("content"), AttachmentName: "photo.png",
	})
	require.NoError(t, err)
}

func TestUploadNote_WithoutAttachmentOrQuestion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasQuestion := r.MultipartForm.Value["QuestionId"]
		assert.False(t, hasQuestion)
		assert.Empty(t, r.MultipartForm.File["file"])
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.UploadNote(context.Background(), &NoteUpload{BeneficiaryID: 5, Text: "x"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUploadAnswers_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/answer", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"formId":1,"completionDate":"2024-03-01T09:30:00","answers":[
			{"questionId":100,"beneficiaryId":5,"options":[{"optionId":1001},{"optionId":1002,"value":"other"}]}]}`, string(body))
	})

	err := c.UploadAnswers(context.Background(), &AnswersRequest{
		FormID:         1,
		CompletionDate: timex.NewAPITime(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
		Answers: []AnswerUpload{{
			QuestionID: 100, BeneficiaryID: 5,
			Options: []AnswerOption{{OptionID: 1001}, {OptionID: 1002, Value: "other"}},
		}},
	})
	require.NoError(t, err)
}

func TestSendForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/beneficiary/sendFile", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("beneficiaryId"))
		_, _ = io.WriteString(w, "true")
	})

	ok, err := c.SendForm(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOnlineFlag(t *testing.T) {
	var f OnlineFlag
	assert.True(t, f.Reachable())
	assert.False(t, f.Set(true))
	assert.True(t, f.Set(false))
	assert.False(t, f.Reachable())
	assert.True(t, f.Set(true))
	assert.True(t, f.Reachable())
}
