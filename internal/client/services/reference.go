package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/casefile/internal/client/cache"
	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

// ReferenceService reads reference data through the local cache.
type ReferenceService interface {
	Counties(ctx context.Context) ([]models.County, error)
	Cities(ctx context.Context, countyID int64) ([]models.City, error)
	CountyByCode(ctx context.Context, code string) (models.County, error)
	// Forms returns the cached catalogue; it is refreshed by the reconciler.
	Forms(ctx context.Context) ([]models.FormSummary, error)
	FormDetails(ctx context.Context, formID int64) ([]models.FormSection, error)
}

type referenceService struct {
	client client.Client
	cache  *cache.Cache
	logger logging.Logger
}

func NewReferenceService(c client.Client, ch *cache.Cache, logger logging.Logger) ReferenceService {
	return &referenceService{client: c, cache: ch, logger: logger}
}

func (s *referenceService) Counties(ctx context.Context) ([]models.County, error) {
	if v, ok := s.cache.Counties(); ok {
		return v, nil
	}
	v, err := s.client.FetchCounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch counties: %w", err)
	}
	if err := s.cache.SetCounties(v); err != nil {
		s.logger.Warn(ctx, "cache write failed", "key", cache.KeyCounties, "error", err)
	}
	return v, nil
}

// CountyByCode resolves a county code, loading the county list first when it
// is not cached yet.
func (s *referenceService) CountyByCode(ctx context.Context, code string) (models.County, error) {
	if _, err := s.Counties(ctx); err != nil {
		return models.County{}, err
	}
	c, ok := s.cache.County(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return models.County{}, fmt.Errorf("%w: %q", ErrUnknownCounty, code)
	}
	return c, nil
}

func (s *referenceService) Cities(ctx context.Context, countyID int64) ([]models.City, error) {
	if v, ok := s.cache.Cities(countyID); ok {
		return v, nil
	}
	v, err := s.client.FetchCities(ctx, countyID)
	if err != nil {
		return nil, fmt.Errorf("fetch cities of county %d: %w", countyID, err)
	}
	if err := s.cache.SetCities(countyID, v); err != nil {
		s.logger.Warn(ctx, "cache write failed", "key", cache.CitiesKey(countyID), "error", err)
	}
	return v, nil
}

func (s *referenceService) Forms(ctx context.Context) ([]models.FormSummary, error) {
	v, _ := s.cache.Forms()
	return v, nil
}

func (s *referenceService) FormDetails(ctx context.Context, formID int64) ([]models.FormSection, error) {
	if v, ok := s.cache.FormDetails(formID); ok && len(v) > 0 {
		return v, nil
	}
	v, err := s.client.FetchForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("fetch form %d: %w", formID, err)
	}
	if len(v) == 0 {
		return nil, ErrFormNotAvailable
	}
	if err := s.cache.SetFormDetails(formID, v); err != nil {
		s.logger.Warn(ctx, "cache write failed", "key", cache.FormDetailsKey(formID), "error", err)
	}
	return v, nil
}
