package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

// NoteDraft is a note being written during a form fill.
type NoteDraft struct {
	QuestionID     *int64
	Body           string
	AttachmentPath string
}

// FillService records answers and notes for one beneficiary and form.
type FillService interface {
	// Questions returns the questions of the fill's form version, storing
	// them from the cached form details on first use.
	Questions(ctx context.Context, fill models.FormFill) ([]models.Question, error)
	Answers(ctx context.Context, fill models.FormFill) ([]models.Answer, error)
	SaveAnswer(ctx context.Context, fill models.FormFill, questionID int64, answers []models.Answer) error
	AddNote(ctx context.Context, fill models.FormFill, draft NoteDraft) (*models.Note, error)
	Notes(ctx context.Context, beneficiaryID string) ([]models.Note, error)
}

type fillService struct {
	store     *store.Store
	reference ReferenceService
	logger    logging.Logger
	now       func() time.Time
}

func NewFillService(st *store.Store, reference ReferenceService, logger logging.Logger) FillService {
	return &fillService{store: st, reference: reference, logger: logger, now: time.Now}
}

func (s *fillService) version(ctx context.Context, fill models.FormFill) (int, error) {
	if fill.FormVersion > 0 {
		return fill.FormVersion, nil
	}
	forms, err := s.reference.Forms(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range forms {
		if f.ID == fill.FormID {
			return f.Version, nil
		}
	}
	return 0, fmt.Errorf("form %d: %w", fill.FormID, ErrFormNotAvailable)
}

func (s *fillService) Questions(ctx context.Context, fill models.FormFill) ([]models.Question, error) {
	version, err := s.version(ctx, fill)
	if err != nil {
		return nil, err
	}

	repo := s.store.Repos().Questions
	qs, err := repo.GetByForm(ctx, fill.FormID, version)
	if err != nil {
		return nil, err
	}
	if len(qs) > 0 {
		return qs, nil
	}

	sections, err := s.reference.FormDetails(ctx, fill.FormID)
	if err != nil {
		return nil, err
	}
	qs = models.QuestionsFromSections(fill.FormID, version, sections)
	if err := repo.UpsertQuestions(ctx, qs); err != nil {
		return nil, fmt.Errorf("store questions of form %d: %w", fill.FormID, err)
	}
	s.logger.Debug(ctx, "questions stored", "form_id", fill.FormID, "version", version, "count", len(qs))
	return qs, nil
}

func (s *fillService) Answers(ctx context.Context, fill models.FormFill) ([]models.Answer, error) {
	qs, err := s.Questions(ctx, fill)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return s.store.Repos().Questions.AnswersFor(ctx, fill.BeneficiaryID, ids...)
}

// SaveAnswer replaces the answer to one question. The stored rows are
// unsynced until the reconciler uploads them.
func (s *fillService) SaveAnswer(ctx context.Context, fill models.FormFill, questionID int64, answers []models.Answer) error {
	qs, err := s.Questions(ctx, fill)
	if err != nil {
		return err
	}

	var question *models.Question
	for i := range qs {
		if qs[i].ID == questionID {
			question = &qs[i]
			break
		}
	}
	if question == nil {
		return fmt.Errorf("question %d: %w", questionID, ErrUnknownQuestion)
	}

	selected := 0
	fillDate := fill.CompletionDate
	if fillDate.IsZero() {
		fillDate = s.now()
	}
	rows := make([]models.Answer, 0, len(answers))
	for _, a := range answers {
		opt, ok := question.Option(a.OptionID)
		if !ok {
			return fmt.Errorf("%w: option %d of question %d", ErrInvalidAnswer, a.OptionID, questionID)
		}
		if a.InputText != "" && !opt.IsFreeText && !question.Type.FreeInput() {
			return fmt.Errorf("%w: option %d takes no text", ErrInvalidAnswer, a.OptionID)
		}
		if a.Selected {
			selected++
		}
		a.BeneficiaryID = fill.BeneficiaryID
		a.QuestionID = questionID
		a.FillDate = fillDate.UTC()
		a.Synced = false
		rows = append(rows, a)
	}
	if selected > 1 && !question.Type.AllowsMultiple() {
		return fmt.Errorf("%w: question %d takes a single option", ErrInvalidAnswer, questionID)
	}

	return s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if _, err := r.Beneficiaries.GetByLocalID(ctx, fill.BeneficiaryID); err != nil {
			return err
		}
		return r.Questions.SaveAnswers(ctx, fill.BeneficiaryID, questionID, rows)
	})
}

func (s *fillService) AddNote(ctx context.Context, fill models.FormFill, draft NoteDraft) (*models.Note, error) {
	n := &models.Note{
		BeneficiaryID: fill.BeneficiaryID,
		QuestionID:    draft.QuestionID,
		Body:          draft.Body,
		CreatedAt:     s.now(),
	}
	if draft.AttachmentPath != "" {
		data, err := os.ReadFile(draft.AttachmentPath)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		n.Attachment = data
		n.AttachmentName = filepath.Base(draft.AttachmentPath)
	}

	err := s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if _, err := r.Beneficiaries.GetByLocalID(ctx, fill.BeneficiaryID); err != nil {
			return err
		}
		_, err := r.Notes.Create(ctx, n)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return n, nil
}

func (s *fillService) Notes(ctx context.Context, beneficiaryID string) ([]models.Note, error) {
	return s.store.Repos().Notes.ListByBeneficiary(ctx, beneficiaryID)
}
