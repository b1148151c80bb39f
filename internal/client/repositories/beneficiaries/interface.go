// Package beneficiaries persists beneficiaries together with their form
// assignments, family links and pending field revisions.
package beneficiaries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
)

type Repository interface {
	// Upsert writes the scalar fields of b keyed by LocalID.
	Upsert(ctx context.Context, b *models.Beneficiary) error
	GetByLocalID(ctx context.Context, localID string) (*models.Beneficiary, error)
	GetByServerID(ctx context.Context, owner string, id int64) (*models.Beneficiary, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Beneficiary, error)
	// ListPending returns records never pushed or carrying revisions.
	ListPending(ctx context.Context, owner string) ([]*models.Beneficiary, error)
	// ServerIDs maps server id to local id for the owner's pushed records.
	ServerIDs(ctx context.Context, owner string) (map[int64]string, error)
	// Delete removes the records and everything hanging off them: forms,
	// family links, revisions, answers and notes.
	Delete(ctx context.Context, localIDs ...string) error
	CountOwnedByOther(ctx context.Context, owner string) (int, error)

	UpsertForm(ctx context.Context, localID string, f models.FormAssignment) error
	DeleteFormsExcept(ctx context.Context, localID string, keep []int64) error
	RemoveForms(ctx context.Context, localID string, formIDs ...int64) error

	SetFamilyMembers(ctx context.Context, localID string, memberIDs []string) error

	MarkModified(ctx context.Context, localID string, at time.Time, properties ...string) error
	ModifiedFields(ctx context.Context, localID string) ([]string, error)
	// ClearModified drops revisions recorded at or before the given time.
	ClearModified(ctx context.Context, localID string, upTo time.Time) error
}
