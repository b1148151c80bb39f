package httpapi

import (
	"time"

	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	FirstLogin  bool   `json:"first_login,omitempty"`
	Error       string `json:"error,omitempty"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

type resetPasswordRequest struct {
	NewPassword             string `json:"newPassword"`
	NewPasswordConfirmation string `json:"newPasswordConfirmation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type countyDTO struct {
	ID   int64  `json:"countyId"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type cityDTO struct {
	ID   int64  `json:"cityId"`
	Name string `json:"name"`
}

type formSummaryDTO struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	CurrentVersion int    `json:"currentVersion"`
	Description    string `json:"description"`
}

type formListResponse struct {
	FormVersions []formSummaryDTO `json:"formVersions"`
}

type beneficiaryRequest struct {
	ID                   int64         `json:"beneficiaryId"`
	UserID               int64         `json:"userId"`
	Name                 string        `json:"name"`
	BirthDate            timex.APITime `json:"birthDate"`
	CivilStatus          int           `json:"civilStatus"`
	CityID               int64         `json:"cityId"`
	CountyID             int64         `json:"countyId"`
	Gender               int           `json:"gender"`
	FormsIDs             []int64       `json:"formsIds"`
	NewAllocatedFormsIDs []int64       `json:"newAllocatedFormsIds"`
	DeallocatedFormsIDs  []int64       `json:"dealocatedFormsIds"`
	IsFamilyOf           *int64        `json:"isFamilyOfBeneficiaryId"`
}

type familyMemberDTO struct {
	BeneficiaryID int64  `json:"beneficiaryId"`
	Name          string `json:"name"`
}

type formAssignmentDTO struct {
	FormID              int64         `json:"formId"`
	FormVersion         int           `json:"formVersion"`
	Date                timex.APITime `json:"date"`
	Description         string        `json:"description"`
	Code                string        `json:"code"`
	TotalQuestionsNo    int           `json:"totalQuestionsNo"`
	QuestionsAnsweredNo int           `json:"questionsAnsweredNo"`
	UserName            string        `json:"userName,omitempty"`
}

type beneficiaryDetailsDTO struct {
	ID            int64               `json:"beneficiaryId"`
	UserID        int64               `json:"userId"`
	Name          string              `json:"name"`
	Age           int                 `json:"age"`
	BirthDate     timex.APITime       `json:"birthDate"`
	CivilStatus   int                 `json:"civilStatus"`
	Gender        int                 `json:"gender"`
	CountyID      int64               `json:"countyId"`
	County        string              `json:"county"`
	CityID        int64               `json:"cityId"`
	City          string              `json:"city"`
	FamilyMembers []familyMemberDTO   `json:"familyMembers"`
	Forms         []formAssignmentDTO `json:"forms"`
}

type beneficiaryListResponse struct {
	Data []beneficiaryDetailsDTO `json:"data"`
}

// beneficiaryDTO is the single-record view; family members are ids only.
type beneficiaryDTO struct {
	ID            int64               `json:"beneficiaryId"`
	UserID        int64               `json:"userId"`
	Name          string              `json:"name"`
	Age           int                 `json:"age"`
	BirthDate     timex.APITime       `json:"birthDate"`
	CivilStatus   int                 `json:"civilStatus"`
	Gender        int                 `json:"gender"`
	CountyID      int64               `json:"countyId"`
	County        string              `json:"county"`
	CityID        int64               `json:"cityId"`
	City          string              `json:"city"`
	FamilyMembers []int64             `json:"familyMembers"`
	Forms         []formAssignmentDTO `json:"forms"`
}

type pollingStationRequest struct {
	ID                int64  `json:"idPollingStation"`
	CountyCode        string `json:"countyCode"`
	UrbanArea         bool   `json:"urbanArea"`
	LeaveTime         string `json:"observerLeaveTime"`
	ArrivalTime       string `json:"observerArrivalTime"`
	PresidentIsFemale bool   `json:"isPollingStationPresidentFemale"`
}

type answerOptionDTO struct {
	OptionID int64  `json:"optionId"`
	Value    string `json:"value"`
}

type answerDTO struct {
	QuestionID    int64             `json:"questionId"`
	BeneficiaryID int64             `json:"beneficiaryId"`
	Options       []answerOptionDTO `json:"options"`
}

type answersRequest struct {
	FormID         int64         `json:"formId"`
	CompletionDate timex.APITime `json:"completionDate"`
	Answers        []answerDTO   `json:"answers"`
}

func toAssignments(forms []models.FormAssignment) []formAssignmentDTO {
	out := make([]formAssignmentDTO, 0, len(forms))
	for _, f := range forms {
		out = append(out, formAssignmentDTO{
			FormID:              f.FormID,
			FormVersion:         f.FormVersion,
			Date:                timex.NewAPITime(f.CompletionDate),
			Description:         f.Description,
			Code:                f.Code,
			TotalQuestionsNo:    f.TotalQuestions,
			QuestionsAnsweredNo: f.AnsweredQuestions,
			UserName:            f.UserName,
		})
	}
	return out
}

func toDetails(b *models.Beneficiary, now time.Time) beneficiaryDetailsDTO {
	family := make([]familyMemberDTO, 0, len(b.FamilyMembers))
	for _, m := range b.FamilyMembers {
		family = append(family, familyMemberDTO{BeneficiaryID: m.ID, Name: m.Name})
	}
	return beneficiaryDetailsDTO{
		ID:            b.ID,
		UserID:        b.UserID,
		Name:          b.Name,
		Age:           models.AgeAt(b.BirthDate, now),
		BirthDate:     timex.NewAPITime(b.BirthDate),
		CivilStatus:   b.CivilStatus,
		Gender:        b.Gender,
		CountyID:      b.CountyID,
		County:        b.County,
		CityID:        b.CityID,
		City:          b.City,
		FamilyMembers: family,
		Forms:         toAssignments(b.Forms),
	}
}

func toBeneficiary(b *models.Beneficiary, now time.Time) beneficiaryDTO {
	family := make([]int64, 0, len(b.FamilyMembers))
	for _, m := range b.FamilyMembers {
		family = append(family, m.ID)
	}
	return beneficiaryDTO{
		ID:            b.ID,
		UserID:        b.UserID,
		Name:          b.Name,
		Age:           models.AgeAt(b.BirthDate, now),
		BirthDate:     timex.NewAPITime(b.BirthDate),
		CivilStatus:   b.CivilStatus,
		Gender:        b.Gender,
		CountyID:      b.CountyID,
		County:        b.County,
		CityID:        b.CityID,
		City:          b.City,
		FamilyMembers: family,
		Forms:         toAssignments(b.Forms),
	}
}
