package users

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// UpdatePassword stores a new hash and clears the first-login flag.
	UpdatePassword(ctx context.Context, id int64, hash []byte) error
}
