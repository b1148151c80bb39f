package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/repomanager"
)

// ReferenceService serves read-only catalogues.
type ReferenceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewReferenceService(db *sql.DB, m repomanager.RepositoryManager) *ReferenceService {
	return &ReferenceService{db: db, repomanager: m}
}

func (s *ReferenceService) Counties(ctx context.Context) ([]models.County, error) {
	return s.repomanager.Reference(s.db).Counties(ctx)
}

func (s *ReferenceService) Cities(ctx context.Context, countyID int64) ([]models.City, error) {
	return s.repomanager.Reference(s.db).Cities(ctx, countyID)
}

func (s *ReferenceService) Forms(ctx context.Context) ([]models.Form, error) {
	return s.repomanager.Forms(s.db).ListCurrent(ctx)
}

func (s *ReferenceService) Form(ctx context.Context, id int64) (*models.Form, error) {
	return s.repomanager.Forms(s.db).Get(ctx, id)
}
