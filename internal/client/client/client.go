package client

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/client/models"
)

type Client interface {
	SetToken(token string)
	Token() string

	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Verify2FA(ctx context.Context, code string) (*TwoFactorResponse, error)
	Resend2FA(ctx context.Context) error
	ResetPassword(ctx context.Context, password, confirmation string) error
	Ping(ctx context.Context) error

	FetchCounties(ctx context.Context) ([]models.County, error)
	FetchCities(ctx context.Context, countyID int64) ([]models.City, error)

	FetchBeneficiaries(ctx context.Context) ([]BeneficiaryDetails, error)
	FetchBeneficiary(ctx context.Context, id int64) (*Beneficiary, error)
	// CreateOrUpdateBeneficiary POSTs when isNew, PUTs otherwise, and returns
	// the server id of the record.
	CreateOrUpdateBeneficiary(ctx context.Context, req *BeneficiaryRequest, isNew bool) (int64, error)

	FetchForms(ctx context.Context) ([]models.FormSummary, error)
	FetchForm(ctx context.Context, formID int64) ([]models.FormSection, error)

	UploadPollingStation(ctx context.Context, req *PollingStationRequest) error
	UploadNote(ctx context.Context, note *NoteUpload) error
	UploadAnswers(ctx context.Context, req *AnswersRequest) error
	SendForm(ctx context.Context, beneficiaryID int64) (bool, error)
}
