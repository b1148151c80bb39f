package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/repomanager"
)

// BeneficiaryInput is a create or update request. FormsIDs is the full set
// the client believes is assigned; NewAllocated and Deallocated adjust it.
type BeneficiaryInput struct {
	ID           int64
	Name         string
	BirthDate    time.Time
	CivilStatus  int
	Gender       int
	CountyID     int64
	CityID       int64
	FormsIDs     []int64
	NewAllocated []int64
	Deallocated  []int64
	IsFamilyOf   *int64
}

// DesiredForms returns (FormsIDs ∪ NewAllocated) − Deallocated, sorted.
func (in *BeneficiaryInput) DesiredForms() []int64 {
	set := make(map[int64]struct{})
	for _, id := range in.FormsIDs {
		set[id] = struct{}{}
	}
	for _, id := range in.NewAllocated {
		set[id] = struct{}{}
	}
	for _, id := range in.Deallocated {
		delete(set, id)
	}

	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type BeneficiaryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewBeneficiaryService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *BeneficiaryService {
	return &BeneficiaryService{db: db, repomanager: m, logger: logger, now: time.Now}
}

func (s *BeneficiaryService) List(ctx context.Context, userID int64) ([]models.Beneficiary, error) {
	list, err := s.repomanager.Beneficiaries(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing beneficiaries: %w", err)
	}
	return list, nil
}

// Get returns common.ErrNotFound for records of other users.
func (s *BeneficiaryService) Get(ctx context.Context, userID, id int64) (*models.Beneficiary, error) {
	return s.repomanager.Beneficiaries(s.db).Get(ctx, userID, id)
}

func (s *BeneficiaryService) Create(ctx context.Context, userID int64, in *BeneficiaryInput) (int64, error) {
	if err := validate(in); err != nil {
		return 0, err
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		repo := s.repomanager.Beneficiaries(tx)

		if in.IsFamilyOf != nil {
			if _, err := repo.Get(ctx, userID, *in.IsFamilyOf); err != nil {
				return 0, fmt.Errorf("family member %d: %w", *in.IsFamilyOf, err)
			}
		}

		id, err := repo.Create(ctx, s.record(userID, in))
		if err != nil {
			return 0, err
		}
		if err := repo.SetForms(ctx, id, in.DesiredForms()); err != nil {
			return 0, err
		}
		if in.IsFamilyOf != nil {
			if err := repo.LinkFamily(ctx, id, *in.IsFamilyOf); err != nil {
				return 0, err
			}
		}

		s.logger.Debug(ctx, "beneficiary created", "user_id", userID, "beneficiary_id", id)
		return id, nil
	})
}

// Update overwrites the record and its form assignments.
func (s *BeneficiaryService) Update(ctx context.Context, userID int64, in *BeneficiaryInput) error {
	if in.ID == 0 {
		return fmt.Errorf("%w: beneficiary id is required", common.ErrValidation)
	}
	if err := validate(in); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Beneficiaries(tx)

		b := s.record(userID, in)
		b.ID = in.ID
		if err := repo.Update(ctx, b); err != nil {
			return err
		}
		if err := repo.SetForms(ctx, in.ID, in.DesiredForms()); err != nil {
			return err
		}
		if in.IsFamilyOf != nil && *in.IsFamilyOf != in.ID {
			if _, err := repo.Get(ctx, userID, *in.IsFamilyOf); err != nil {
				return fmt.Errorf("family member %d: %w", *in.IsFamilyOf, err)
			}
			return repo.LinkFamily(ctx, in.ID, *in.IsFamilyOf)
		}
		return nil
	})
}

// Send marks the completed forms of a beneficiary as handed in.
func (s *BeneficiaryService) Send(ctx context.Context, userID, id int64) (bool, error) {
	err := s.repomanager.Beneficiaries(s.db).MarkSent(ctx, userID, id, s.now())
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info(ctx, "beneficiary forms sent", "user_id", userID, "beneficiary_id", id)
	return true, nil
}

func (s *BeneficiaryService) record(userID int64, in *BeneficiaryInput) *models.Beneficiary {
	return &models.Beneficiary{
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		BirthDate:   in.BirthDate,
		CivilStatus: in.CivilStatus,
		Gender:      in.Gender,
		CountyID:    in.CountyID,
		CityID:      in.CityID,
		UpdatedAt:   s.now().UTC(),
	}
}

func validate(in *BeneficiaryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: %w", common.ErrValidation, ErrNameRequired)
	}
	return nil
}
