package client

import (
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	FirstLogin  bool   `json:"first_login,omitempty"`
	Error       string `json:"error,omitempty"`
}

type TwoFactorRequest struct {
	Token string `json:"token"`
}

type TwoFactorResponse struct {
	Success bool `json:"success"`
}

type ResetPasswordRequest struct {
	NewPassword             string `json:"newPassword"`
	NewPasswordConfirmation string `json:"newPasswordConfirmation"`
}

// BeneficiaryRequest is the body of POST and PUT /beneficiary.
type BeneficiaryRequest struct {
	ID                   int64              `json:"beneficiaryId,omitempty"`
	UserID               int64              `json:"userId,omitempty"`
	Name                 string             `json:"name"`
	BirthDate            timex.APITime      `json:"birthDate"`
	CivilStatus          models.CivilStatus `json:"civilStatus"`
	CityID               int64              `json:"cityId"`
	CountyID             int64              `json:"countyId"`
	Gender               models.Gender      `json:"gender"`
	FormsIDs             []int64            `json:"formsIds,omitempty"`
	NewAllocatedFormsIDs []int64            `json:"newAllocatedFormsIds,omitempty"`
	DeallocatedFormsIDs  []int64            `json:"dealocatedFormsIds,omitempty"`
	IsFamilyOf           *int64             `json:"isFamilyOfBeneficiaryId,omitempty"`
}

type FamilyMember struct {
	BeneficiaryID int64  `json:"beneficiaryId"`
	Name          string `json:"name"`
}

// FormBeneficiary is a form assigned to a beneficiary as the server reports it.
type FormBeneficiary struct {
	FormID              int64         `json:"formId"`
	FormVersion         int           `json:"formVersion,omitempty"`
	CompletionDate      timex.APITime `json:"date"`
	Description         string        `json:"description"`
	Code                string        `json:"code"`
	TotalQuestionsNo    int           `json:"totalQuestionsNo"`
	QuestionsAnsweredNo int           `json:"questionsAnsweredNo"`
	UserName            string        `json:"userName,omitempty"`
}

type BeneficiaryDetails struct {
	ID            int64              `json:"beneficiaryId"`
	UserID        int64              `json:"userId"`
	Name          string             `json:"name"`
	Age           int                `json:"age"`
	BirthDate     timex.APITime      `json:"birthDate"`
	CivilStatus   models.CivilStatus `json:"civilStatus"`
	Gender        models.Gender      `json:"gender"`
	CountyID      int64              `json:"countyId"`
	County        string             `json:"county"`
	CityID        int64              `json:"cityId"`
	City          string             `json:"city"`
	FamilyMembers []FamilyMember     `json:"familyMembers,omitempty"`
	Forms         []FormBeneficiary  `json:"forms,omitempty"`
}

type beneficiaryList struct {
	Data []BeneficiaryDetails `json:"data"`
}

// Beneficiary is the single-record response of GET /beneficiary/{id}. Family
// members are server ids only.
type Beneficiary struct {
	ID            int64              `json:"beneficiaryId"`
	UserID        int64              `json:"userId,omitempty"`
	Name          string             `json:"name"`
	Age           int                `json:"age,omitempty"`
	BirthDate     timex.APITime      `json:"birthDate"`
	CivilStatus   models.CivilStatus `json:"civilStatus"`
	Gender        models.Gender      `json:"gender"`
	CountyID      int64              `json:"countyId,omitempty"`
	County        string             `json:"county,omitempty"`
	CityID        int64              `json:"cityId,omitempty"`
	City          string             `json:"city,omitempty"`
	FamilyMembers []int64            `json:"familyMembers,omitempty"`
	Forms         []FormBeneficiary  `json:"forms,omitempty"`
}

type formList struct {
	Forms []models.FormSummary `json:"formVersions"`
}

type PollingStationRequest struct {
	ID                int64  `json:"idPollingStation"`
	CountyCode        string `json:"countyCode"`
	UrbanArea         bool   `json:"urbanArea"`
	LeaveTime         string `json:"observerLeaveTime"`
	ArrivalTime       string `json:"observerArrivalTime"`
	PresidentIsFemale bool   `json:"isPollingStationPresidentFemale"`
}

// NoteUpload is sent as multipart/form-data.
type NoteUpload struct {
	BeneficiaryID  int64
	QuestionID     *int64
	Text           string
	Attachment     []byte
	AttachmentName string
}

type AnswerOption struct {
	OptionID int64  `json:"optionId"`
	Value    string `json:"value,omitempty"`
}

type AnswerUpload struct {
	QuestionID    int64          `json:"questionId"`
	BeneficiaryID int64          `json:"beneficiaryId"`
	Options       []AnswerOption `json:"options"`
}

type AnswersRequest struct {
	FormID         int64          `json:"formId"`
	CompletionDate timex.APITime  `json:"completionDate"`
	Answers        []AnswerUpload `json:"answers"`
}
