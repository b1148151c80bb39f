package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/common"
)

const (
	pathLogin          = "/access/authorize"
	pathVerify         = "/access/verify"
	pathResend         = "/access/resend"
	pathReset          = "/user/reset"
	pathPing           = "/ping"
	pathCounties       = "/county"
	pathBeneficiaries  = "/beneficiary"
	pathDetailed       = "/beneficiary/details"
	pathForms          = "/form"
	pathPollingStation = "/polling-station"
	pathUploadNote     = "/note/upload"
	pathUploadAnswers  = "/answer"
	pathSendForm       = "/beneficiary/sendFile"

	defaultAttachmentName = "attachment.jpg"
)

type HTTPClient struct {
	baseURL      string
	http         *http.Client
	reachability Reachability

	mu    sync.RWMutex
	token string
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

func WithReachability(r Reachability) Option {
	return func(h *HTTPClient) { h.reachability = r }
}

// NewHTTPClient builds a client for the server at serverURL; the /api/v1
// prefix is appended.
func NewHTTPClient(serverURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(serverURL, "/") + common.APIPrefix,
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) offline() bool {
	return c.reachability != nil && !c.reachability.Reachable()
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if c.offline() {
		return nil, Generic(ReasonNoConnection)
	}

	_, body, err := c.send(ctx, http.MethodPost, pathLogin, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, LoginFailed("no data received")
	}

	var resp LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, IncorrectFormat(err.Error())
	}
	if resp.AccessToken == "" {
		return nil, LoginFailed(resp.Error)
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

func (c *HTTPClient) Verify2FA(ctx context.Context, code string) (*TwoFactorResponse, error) {
	var resp TwoFactorResponse
	if err := c.call(ctx, http.MethodPost, pathVerify, TwoFactorRequest{Token: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Resend2FA(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, pathResend, nil, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, password, confirmation string) error {
	return c.call(ctx, http.MethodPost, pathReset, ResetPasswordRequest{
		NewPassword:             password,
		NewPasswordConfirmation: confirmation,
	}, nil)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, pathPing, nil, nil)
}

func (c *HTTPClient) FetchCounties(ctx context.Context) ([]models.County, error) {
	var out []models.County
	if err := c.call(ctx, http.MethodGet, pathCounties, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchCities(ctx context.Context, countyID int64) ([]models.City, error) {
	var out []models.City
	path := fmt.Sprintf("%s/%d/cities", pathCounties, countyID)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchBeneficiaries(ctx context.Context) ([]BeneficiaryDetails, error) {
	var out beneficiaryList
	if err := c.call(ctx, http.MethodGet, pathDetailed, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) FetchBeneficiary(ctx context.Context, id int64) (*Beneficiary, error) {
	var out Beneficiary
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%d", pathBeneficiaries, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateOrUpdateBeneficiary(ctx context.Context, req *BeneficiaryRequest, isNew bool) (int64, error) {
	method := http.MethodPut
	if isNew {
		method = http.MethodPost
	}

	status, body, err := c.send(ctx, method, pathBeneficiaries, req)
	if err != nil {
		return 0, err
	}
	if err := statusError(status); err != nil {
		return 0, err
	}

	text := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if isNew {
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, Generic(ReasonUnknown)
		}
		return id, nil
	}

	ok, err := strconv.ParseBool(text)
	if err != nil || !ok || req.ID == 0 {
		return 0, Generic(ReasonUnknown)
	}
	return req.ID, nil
}

func (c *HTTPClient) FetchForms(ctx context.Context) ([]models.FormSummary, error) {
	var out formList
	if err := c.call(ctx, http.MethodGet, pathForms, nil, &out); err != nil {
		return nil, err
	}
	return out.Forms, nil
}

func (c *HTTPClient) FetchForm(ctx context.Context, formID int64) ([]models.FormSection, error) {
	var out []models.FormSection
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/%d", pathForms, formID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UploadPollingStation(ctx context.Context, req *PollingStationRequest) error {
	if c.offline() {
		return Generic(ReasonNoConnection)
	}
	return c.call(ctx, http.MethodPost, pathPollingStation, req, nil)
}

func (c *HTTPClient) UploadNote(ctx context.Context, note *NoteUpload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"BeneficiaryId", strconv.FormatInt(note.BeneficiaryID, 10)},
		{"Text", note.Text},
	}
	if note.QuestionID != nil {
		fields = append(fields, [2]string{"QuestionId", strconv.FormatInt(*note.QuestionID, 10)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return Generic(err.Error())
		}
	}

	if len(note.Attachment) > 0 {
		name := note.AttachmentName
		if name == "" {
			name = defaultAttachmentName
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		h.Set("Content-Type", http.DetectContentType(note.Attachment))
		part, err := w.CreatePart(h)
		if err != nil {
			return Generic(err.Error())
		}
		if _, err := part.Write(note.Attachment); err != nil {
			return Generic(err.Error())
		}
	}
	if err := w.Close(); err != nil {
		return Generic(err.Error())
	}

	status, _, err := c.do(ctx, http.MethodPost, pathUploadNote, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	return statusError(status)
}

func (c *HTTPClient) UploadAnswers(ctx context.Context, req *AnswersRequest) error {
	return c.call(ctx, http.MethodPost, pathUploadAnswers, req, nil)
}

func (c *HTTPClient) SendForm(ctx context.Context, beneficiaryID int64) (bool, error) {
	q := url.Values{}
	q.Set("beneficiaryId", strconv.FormatInt(beneficiaryID, 10))

	var ok bool
	if err := c.call(ctx, http.MethodPost, pathSendForm+"?"+q.Encode(), nil, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// call sends in as JSON and decodes a 200 response into out.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any) error {
	status, body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := statusError(status); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return IncorrectFormat(err.Error())
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, IncorrectFormat(err.Error())
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, Generic(err.Error())
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, Generic(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, Generic(err.Error())
	}
	return resp.StatusCode, data, nil
}

func statusError(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		return Unauthorized()
	default:
		return IncorrectFormat(fmt.Sprintf("unexpected status %d", status))
	}
}
