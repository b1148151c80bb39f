// Package questions persists form questions materialised on the device and
// the answers given to them.
package questions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
)

type Repository interface {
	UpsertQuestions(ctx context.Context, qs []models.Question) error
	// GetByForm returns questions of formID with formVersion <= maxVersion.
	GetByForm(ctx context.Context, formID int64, maxVersion int) ([]models.Question, error)
	// DeleteByForm removes questions of formID with formVersion <= maxVersion
	// along with their answers and notes. It returns the number of questions
	// removed.
	DeleteByForm(ctx context.Context, formID int64, maxVersion int) (int, error)

	// SaveAnswers replaces the beneficiary's answer to one question. The rows
	// are stored unsynced.
	SaveAnswers(ctx context.Context, beneficiaryID string, questionID int64, answers []models.Answer) error
	AnswersFor(ctx context.Context, beneficiaryID string, questionIDs ...int64) ([]models.Answer, error)
	// ListUnsyncedAnswers returns every option row of the questions that have
	// at least one unsynced answer, for beneficiaries of owner.
	ListUnsyncedAnswers(ctx context.Context, owner string) ([]models.PendingAnswer, error)
	// MarkAnswersSynced flags rows of the given questions synced unless they
	// were modified after cutoff.
	MarkAnswersSynced(ctx context.Context, beneficiaryID string, questionIDs []int64, cutoff time.Time) error
	CountUnsyncedAnswers(ctx context.Context, owner string) (int, error)
}
