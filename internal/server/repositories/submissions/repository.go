package submissions

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type Repository interface {
	// SaveAnswers replaces the stored options of every answered question and
	// refreshes the progress of the affected form assignments.
	SaveAnswers(ctx context.Context, batch *models.AnswerBatch) error
	SaveNote(ctx context.Context, note *models.Note) (int64, error)
	UpsertPollingStation(ctx context.Context, ps *models.PollingStation) error
}
