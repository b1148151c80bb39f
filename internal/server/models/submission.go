package models

import "time"

type AnswerOption struct {
	OptionID int64
	Value    string
}

// Answer is the set of options picked for one question.
type Answer struct {
	BeneficiaryID int64
	QuestionID    int64
	Options       []AnswerOption
}

type AnswerBatch struct {
	UserID         int64
	FormID         int64
	CompletionDate time.Time
	Answers        []Answer
}

type Note struct {
	ID            int64
	UserID        int64
	BeneficiaryID int64
	QuestionID    *int64
	Text          string
	AttachmentKey string
	CreatedAt     time.Time
}

type PollingStation struct {
	UserID            int64
	Number            int64
	CountyCode        string
	UrbanArea         bool
	ArrivalTime       time.Time
	LeaveTime         time.Time
	PresidentIsFemale bool
}
