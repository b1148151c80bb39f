package reference

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type Repository interface {
	Counties(ctx context.Context) ([]models.County, error)
	Cities(ctx context.Context, countyID int64) ([]models.City, error)
}
