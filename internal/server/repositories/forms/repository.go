package forms

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type Repository interface {
	// ListCurrent returns the catalogue without section documents.
	ListCurrent(ctx context.Context) ([]models.Form, error)
	Get(ctx context.Context, id int64) (*models.Form, error)
}
