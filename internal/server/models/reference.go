package models

import "encoding/json"

type County struct {
	ID   int64
	Name string
	Code string
}

type City struct {
	ID       int64
	CountyID int64
	Name     string
}

// Form is the current version of a questionnaire. Sections are kept as the
// JSON document served to clients.
type Form struct {
	ID             int64
	Code           string
	Description    string
	CurrentVersion int
	QuestionCount  int
	Sections       json.RawMessage
}
