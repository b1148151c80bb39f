package models

import "time"

type QuestionType int

const (
	QuestionMultipleAnswers QuestionType = iota
	QuestionSingleAnswer
	QuestionSingleAnswerWithText
	QuestionMultipleAnswerWithText
	QuestionText
	QuestionNumber
	QuestionDate
)

// AllowsMultiple reports whether more than one option may be selected.
func (t QuestionType) AllowsMultiple() bool {
	return t == QuestionMultipleAnswers || t == QuestionMultipleAnswerWithText
}

// FreeInput reports whether the answer is typed rather than picked.
func (t QuestionType) FreeInput() bool {
	return t == QuestionText || t == QuestionNumber || t == QuestionDate
}

type County struct {
	ID   int64  `json:"countyId"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type City struct {
	ID   int64  `json:"cityId"`
	Name string `json:"name"`
}

// FormSummary is one entry of the form catalogue.
type FormSummary struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Version     int    `json:"currentVersion"`
	Description string `json:"description"`
}

type FormSection struct {
	ID          int64                `json:"sectionId"`
	Code        string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Questions   []QuestionDefinition `json:"questions"`
}

type QuestionDefinition struct {
	ID          int64            `json:"questionId"`
	Code        string           `json:"code"`
	Type        QuestionType     `json:"questionType"`
	Text        string           `json:"text"`
	Hint        string           `json:"hint,omitempty"`
	IsMandatory bool             `json:"isMandatory"`
	CharsNo     int              `json:"charsNo,omitempty"`
	Options     []QuestionOption `json:"optionsToQuestions"`
}

type QuestionOption struct {
	ID         int64  `json:"idOption"`
	Text       string `json:"text"`
	IsFreeText bool   `json:"isFreeText"`
}

// Question is a question of a specific form version stored on the device.
type Question struct {
	ID          int64
	FormID      int64
	FormVersion int
	SectionID   int64
	SectionCode string
	Code        string
	Text        string
	Type        QuestionType
	IsMandatory bool
	Options     []QuestionOption
}

func (q *Question) Option(id int64) (QuestionOption, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return QuestionOption{}, false
}

// QuestionsFromSections flattens form details into storable questions.
func QuestionsFromSections(formID int64, version int, sections []FormSection) []Question {
	var out []Question
	for _, s := range sections {
		for _, d := range s.Questions {
			out = append(out, Question{
				ID:          d.ID,
				FormID:      formID,
				FormVersion: version,
				SectionID:   s.ID,
				SectionCode: s.Code,
				Code:        d.Code,
				Text:        d.Text,
				Type:        d.Type,
				IsMandatory: d.IsMandatory,
				Options:     d.Options,
			})
		}
	}
	return out
}

// FormFill scopes a form-filling session: which beneficiary, which form
// version and the completion date reported with the answers.
type FormFill struct {
	BeneficiaryID  string
	FormID         int64
	FormVersion    int
	CompletionDate time.Time
}
