package models

import "time"

type Beneficiary struct {
	ID          int64
	UserID      int64
	Name        string
	BirthDate   time.Time
	CivilStatus int
	Gender      int
	CountyID    int64
	County      string
	CityID      int64
	City        string
	UpdatedAt   time.Time

	Forms         []FormAssignment
	FamilyMembers []FamilyMember
}

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

type FamilyMember struct {
	ID   int64
	Name string
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
