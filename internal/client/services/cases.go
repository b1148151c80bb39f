package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/casefile/internal/client/cache"
	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

// CaseService edits beneficiary records locally. Changes reach the server on
// the next sync.
type CaseService interface {
	List(ctx context.Context, owner string) ([]*models.Beneficiary, error)
	Get(ctx context.Context, localID string) (*models.Beneficiary, error)
	Create(ctx context.Context, owner string, draft *models.Beneficiary) (*models.Beneficiary, error)
	// Update saves b and records the named properties as modified.
	Update(ctx context.Context, b *models.Beneficiary, properties ...string) error
	AssignForm(ctx context.Context, localID string, formID int64) error
	UnassignForm(ctx context.Context, localID string, formID int64) error
	SendForm(ctx context.Context, localID string) (bool, error)
}

type caseService struct {
	client client.Client
	store  *store.Store
	cache  *cache.Cache
	logger logging.Logger
	now    func() time.Time
}

func NewCaseService(c client.Client, st *store.Store, ch *cache.Cache, logger logging.Logger) CaseService {
	return &caseService{client: c, store: st, cache: ch, logger: logger, now: time.Now}
}

func (s *caseService) List(ctx context.Context, owner string) ([]*models.Beneficiary, error) {
	return s.store.Repos().Beneficiaries.ListByOwner(ctx, owner)
}

func (s *caseService) Get(ctx context.Context, localID string) (*models.Beneficiary, error) {
	return s.store.Repos().Beneficiaries.GetByLocalID(ctx, localID)
}

func (s *caseService) Create(ctx context.Context, owner string, draft *models.Beneficiary) (*models.Beneficiary, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, ErrNameRequired
	}

	now := s.now().UTC()
	b := *draft
	b.LocalID = uuid.NewString()
	b.ID = 0
	b.OwnerEmail = owner
	b.UpdatedAt = now
	b.Age = models.AgeAt(b.BirthDate, now)
	s.fillNames(&b)

	err := s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if err := r.Beneficiaries.Upsert(ctx, &b); err != nil {
			return err
		}
		for _, f := range b.Forms {
			if err := r.Beneficiaries.UpsertForm(ctx, b.LocalID, f); err != nil {
				return err
			}
		}
		return r.Beneficiaries.SetFamilyMembers(ctx, b.LocalID, b.FamilyMembers)
	})
	if err != nil {
		return nil, fmt.Errorf("create beneficiary: %w", err)
	}

	s.logger.Info(ctx, "beneficiary created", "local_id", b.LocalID)
	return &b, nil
}

func (s *caseService) Update(ctx context.Context, b *models.Beneficiary, properties ...string) error {
	if len(properties) == 0 {
		return ErrNothingChanged
	}

	now := s.now().UTC()
	b.UpdatedAt = now
	b.Age = models.AgeAt(b.BirthDate, now)
	s.fillNames(b)

	err := s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if err := r.Beneficiaries.Upsert(ctx, b); err != nil {
			return err
		}
		return r.Beneficiaries.MarkModified(ctx, b.LocalID, now, properties...)
	})
	if err != nil {
		return fmt.Errorf("update beneficiary %s: %w", b.LocalID, err)
	}
	return nil
}

func (s *caseService) AssignForm(ctx context.Context, localID string, formID int64) error {
	summary, ok := s.cache.FormSummary(formID)
	if !ok {
		return fmt.Errorf("form %d: %w", formID, ErrFormNotAvailable)
	}

	return s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if _, err := r.Beneficiaries.GetByLocalID(ctx, localID); err != nil {
			return err
		}
		err := r.Beneficiaries.UpsertForm(ctx, localID, models.FormAssignment{
			FormID:      summary.ID,
			FormVersion: summary.Version,
			Code:        summary.Code,
			Description: summary.Description,
		})
		if err != nil {
			return err
		}
		return r.Beneficiaries.MarkModified(ctx, localID, s.now().UTC(), models.PropertyForms)
	})
}

func (s *caseService) UnassignForm(ctx context.Context, localID string, formID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if err := r.Beneficiaries.RemoveForms(ctx, localID, formID); err != nil {
			return err
		}
		return r.Beneficiaries.MarkModified(ctx, localID, s.now().UTC(), models.PropertyForms)
	})
}

// SendForm asks the server to mail the beneficiary's file to the worker.
func (s *caseService) SendForm(ctx context.Context, localID string) (bool, error) {
	b, err := s.store.Repos().Beneficiaries.GetByLocalID(ctx, localID)
	if err != nil {
		return false, err
	}
	if !b.HasServerID() {
		return false, ErrNotPushed
	}
	ok, err := s.client.SendForm(ctx, b.ID)
	if err != nil {
		return false, fmt.Errorf("send form: %w", err)
	}
	return ok, nil
}

// fillNames resolves county and city names from cached reference data.
func (s *caseService) fillNames(b *models.Beneficiary) {
	if counties, ok := s.cache.Counties(); ok {
		for _, c := range counties {
			if c.ID == b.CountyID {
				b.County = c.Name
				break
			}
		}
	}
	if cities, ok := s.cache.Cities(b.CountyID); ok {
		for _, c := range cities {
			if c.ID == b.CityID {
				b.City = c.Name
				break
			}
		}
	}
}
