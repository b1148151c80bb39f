// Package models defines the client-side domain records: beneficiaries and
// their form assignments, questionnaire definitions, answers, notes and the
// current session.
package models

import "time"

type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
)

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "unknown"
	}
}

type CivilStatus int

const (
	CivilStatusNotMarried CivilStatus = iota
	CivilStatusMarried
	CivilStatusDivorced
	CivilStatusWidowed
)

func (c CivilStatus) String() string {
	switch c {
	case CivilStatusNotMarried:
		return "not married"
	case CivilStatusMarried:
		return "married"
	case CivilStatusDivorced:
		return "divorced"
	case CivilStatusWidowed:
		return "widowed"
	default:
		return "unknown"
	}
}

// Beneficiary property names tracked by revisions.
const (
	PropertyName        = "name"
	PropertyBirthDate   = "birthDate"
	PropertyGender      = "gender"
	PropertyCivilStatus = "civilStatus"
	PropertyCounty      = "county"
	PropertyCity        = "city"
	PropertyForms       = "forms"
)

// Beneficiary is a person followed up by a field worker.
//
// LocalID identifies the record on this device. ID is the server identifier
// and stays zero until the record has been pushed once.
type Beneficiary struct {
	LocalID     string
	ID          int64
	OwnerEmail  string
	UserID      int64
	Name        string
	BirthDate   time.Time
	Age         int
	Gender      Gender
	CivilStatus CivilStatus
	CountyID    int64
	County      string
	CityID      int64
	City        string
	UpdatedAt   time.Time

	Forms         []FormAssignment
	FamilyMembers []string
}

func (b *Beneficiary) HasServerID() bool {
	return b.ID > 0
}

// FormAssignment links a beneficiary to a form. At most one assignment per
// (beneficiary, form) exists.
type FormAssignment struct {
	FormID            int64
	FormVersion       int
	Code              string
	Description       string
	CompletionDate    time.Time
	TotalQuestions    int
	AnsweredQuestions int
	UserName          string
}

// AgeAt returns full years between birth and now.
func AgeAt(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	years := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
