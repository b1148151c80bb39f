package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casefile/internal/server/storage"
)

// Attachment is a file uploaded together with a note.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type SubmissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.AttachmentStore
	logger      logging.Logger
	now         func() time.Time
}

func NewSubmissionService(db *sql.DB, m repomanager.RepositoryManager, store storage.AttachmentStore, logger logging.Logger) *SubmissionService {
	return &SubmissionService{db: db, repomanager: m, store: store, logger: logger, now: time.Now}
}

// SaveAnswers stores one batch atomically. Every referenced beneficiary
// must belong to the caller.
func (s *SubmissionService) SaveAnswers(ctx context.Context, batch *models.AnswerBatch) error {
	if batch.FormID == 0 {
		return fmt.Errorf("%w: form id is required", common.ErrValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		checked := make(map[int64]bool)
		for _, a := range batch.Answers {
			if checked[a.BeneficiaryID] {
				continue
			}
			if _, err := s.repomanager.Beneficiaries(tx).Get(ctx, batch.UserID, a.BeneficiaryID); err != nil {
				return fmt.Errorf("beneficiary %d: %w", a.BeneficiaryID, err)
			}
			checked[a.BeneficiaryID] = true
		}

		if err := s.repomanager.Submissions(tx).SaveAnswers(ctx, batch); err != nil {
			return err
		}
		s.logger.Debug(ctx, "answers stored", "user_id", batch.UserID, "form_id", batch.FormID, "answers", len(batch.Answers))
		return nil
	})
}

// SaveNote uploads the attachment first, then records the note.
func (s *SubmissionService) SaveNote(ctx context.Context, note *models.Note, file *Attachment) (int64, error) {
	if _, err := s.repomanager.Beneficiaries(s.db).Get(ctx, note.UserID, note.BeneficiaryID); err != nil {
		return 0, fmt.Errorf("beneficiary %d: %w", note.BeneficiaryID, err)
	}

	if file != nil && len(file.Data) > 0 {
		key, err := s.store.Put(ctx, note.UserID, file.Name, file.ContentType, file.Data)
		if err != nil {
			return 0, fmt.Errorf("error storing attachment: %w", err)
		}
		note.AttachmentKey = key
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = s.now().UTC()
	}

	id, err := s.repomanager.Submissions(s.db).SaveNote(ctx, note)
	if err != nil {
		return 0, err
	}
	s.logger.Debug(ctx, "note stored", "user_id", note.UserID, "note_id", id, "attachment", note.AttachmentKey != "")
	return id, nil
}

func (s *SubmissionService) SavePollingStation(ctx context.Context, ps *models.PollingStation) error {
	if ps.CountyCode == "" || ps.Number <= 0 {
		return fmt.Errorf("%w: county code and station number are required", common.ErrValidation)
	}
	return s.repomanager.Submissions(s.db).UpsertPollingStation(ctx, ps)
}
