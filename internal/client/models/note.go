package models

import "time"

// Note is free text about a beneficiary, optionally tied to a question and
// carrying one attachment.
type Note struct {
	ID             int64
	BeneficiaryID  string
	QuestionID     *int64
	Body           string
	Attachment     []byte
	AttachmentName string
	CreatedAt      time.Time
	Synced         bool

	// BeneficiaryServerID is filled on reads; zero while the beneficiary
	// has not been pushed.
	BeneficiaryServerID int64
}
