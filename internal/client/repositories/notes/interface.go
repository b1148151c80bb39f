// Package notes stores beneficiary notes and their attachments until they
// are uploaded.
package notes

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/client/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Note) (int64, error)
	ListByBeneficiary(ctx context.Context, beneficiaryID string) ([]models.Note, error)
	// ListUnsynced returns unsynced notes of owner's beneficiaries with
	// BeneficiaryServerID filled from the beneficiary row.
	ListUnsynced(ctx context.Context, owner string) ([]models.Note, error)
	MarkSynced(ctx context.Context, id int64) error
	CountUnsynced(ctx context.Context, owner string) (int, error)
}
