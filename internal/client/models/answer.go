package models

import "time"

// Answer is the state of one option of a question for one beneficiary.
type Answer struct {
	BeneficiaryID string
	QuestionID    int64
	OptionID      int64
	Selected      bool
	InputText     string
	FillDate      time.Time
	Synced        bool
	UpdatedAt     time.Time
}

// PendingAnswer is an answer row of a question that still has unsynced
// options, joined with what the upload needs.
type PendingAnswer struct {
	BeneficiaryLocalID string
	BeneficiaryID      int64
	FormID             int64
	QuestionID         int64
	OptionID           int64
	Selected           bool
	InputText          string
	FillDate           time.Time
}
