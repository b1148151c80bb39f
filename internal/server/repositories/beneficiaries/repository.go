package beneficiaries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type Repository interface {
	// ListByUser returns the beneficiaries of a field worker with their form
	// assignments and family members.
	ListByUser(ctx context.Context, userID int64) ([]models.Beneficiary, error)
	Get(ctx context.Context, userID, id int64) (*models.Beneficiary, error)
	Create(ctx context.Context, b *models.Beneficiary) (int64, error)
	Update(ctx context.Context, b *models.Beneficiary) error
	// SetForms makes formIDs the exact set of assigned forms. New assignments
	// take the current form version; unknown form ids are ignored.
	SetForms(ctx context.Context, id int64, formIDs []int64) error
	LinkFamily(ctx context.Context, a, b int64) error
	MarkSent(ctx context.Context, userID, id int64, at time.Time) error
}
