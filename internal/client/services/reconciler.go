package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/casefile/internal/client/cache"
	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/logging"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

const defaultUploadConcurrency = 4

// AnswersSynced is delivered to listeners after an answer group was accepted
// by the server.
type AnswersSynced struct {
	FormID        int64
	BeneficiaryID string
	QuestionIDs   []int64
}

// Reconciler keeps the local store and the server in step.
type Reconciler interface {
	DownloadUpdatedForms(ctx context.Context) error
	DownloadUpdatedBeneficiaries(ctx context.Context, owner string) error
	SaveBeneficiaries(ctx context.Context, owner string, list []client.BeneficiaryDetails) error
	SyncUnsyncedData(ctx context.Context, owner string) error
	NeedsSync(ctx context.Context, owner string) (bool, error)
	OnAnswersSynced(fn func(AnswersSynced))
}

type reconciler struct {
	client            client.Client
	store             *store.Store
	cache             *cache.Cache
	logger            logging.Logger
	uploadConcurrency int
	now               func() time.Time

	mu        sync.Mutex
	listeners []func(AnswersSynced)
}

func NewReconciler(c client.Client, st *store.Store, ch *cache.Cache, logger logging.Logger, uploadConcurrency int) Reconciler {
	if uploadConcurrency <= 0 {
		uploadConcurrency = defaultUploadConcurrency
	}
	return &reconciler{
		client:            c,
		store:             st,
		cache:             ch,
		logger:            logger.With("component", "reconciler"),
		uploadConcurrency: uploadConcurrency,
		now:               time.Now,
	}
}

func (r *reconciler) OnAnswersSynced(fn func(AnswersSynced)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *reconciler) emit(ev AnswersSynced) {
	r.mu.Lock()
	listeners := append([]func(AnswersSynced){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// DownloadUpdatedForms refreshes the form catalogue. A form is updated when it
// is new or the server carries a newer version than the cached one. Updated
// forms lose their stored questions (and the answers and notes on them) up to
// the old version, and their details are fetched again.
func (r *reconciler) DownloadUpdatedForms(ctx context.Context) error {
	remote, err := r.client.FetchForms(ctx)
	if err != nil {
		return fmt.Errorf("fetch forms: %w", err)
	}

	local, _ := r.cache.Forms()
	known := make(map[int64]models.FormSummary, len(local))
	for _, f := range local {
		known[f.ID] = f
	}

	var updated []models.FormSummary
	stale := make(map[int64]int)
	for _, f := range remote {
		old, ok := known[f.ID]
		if ok && old.Version >= f.Version {
			continue
		}
		updated = append(updated, f)
		if ok {
			stale[f.ID] = old.Version
		}
	}

	if len(stale) > 0 {
		err := r.store.InTx(ctx, func(ctx context.Context, repos *store.Repositories) error {
			for formID, version := range stale {
				n, err := repos.Questions.DeleteByForm(ctx, formID, version)
				if err != nil {
					return err
				}
				r.logger.Info(ctx, "dropped outdated questions", "form_id", formID, "version", version, "count", n)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("drop outdated questions: %w", err)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.uploadConcurrency)
	for _, f := range updated {
		g.Go(func() error {
			sections, err := r.client.FetchForm(ctx, f.ID)
			if err != nil {
				r.logger.Warn(ctx, "form details download failed", "form_id", f.ID, "error", err)
				return nil
			}
			if len(sections) == 0 {
				r.logger.Warn(ctx, "form has no sections", "form_id", f.ID)
				return nil
			}
			if err := r.cache.SetFormDetails(f.ID, sections); err != nil {
				r.logger.Error(ctx, "cache write failed", "key", cache.FormDetailsKey(f.ID), "error", err)
			}
			return nil
		})
	}
	g.Wait() // workers log their failures and never return one

	if err := r.cache.SetForms(remote); err != nil {
		r.logger.Error(ctx, "cache write failed", "key", cache.KeyForms, "error", err)
	}
	r.logger.Info(ctx, "forms refreshed", "total", len(remote), "updated", len(updated))
	return nil
}

func (r *reconciler) DownloadUpdatedBeneficiaries(ctx context.Context, owner string) error {
	list, err := r.client.FetchBeneficiaries(ctx)
	if err != nil {
		return fmt.Errorf("fetch beneficiaries: %w", err)
	}
	return r.SaveBeneficiaries(ctx, owner, list)
}

// SaveBeneficiaries makes the owner's local records mirror list. Records not
// yet pushed are kept, and fields edited locally since the last push keep
// their local value.
func (r *reconciler) SaveBeneficiaries(ctx context.Context, owner string, list []client.BeneficiaryDetails) error {
	now := r.now().UTC()

	err := r.store.InTx(ctx, func(ctx context.Context, repos *store.Repositories) error {
		existing, err := repos.Beneficiaries.ServerIDs(ctx, owner)
		if err != nil {
			return err
		}

		incoming := make(map[int64]struct{}, len(list))
		for _, d := range list {
			incoming[d.ID] = struct{}{}
		}
		var gone []string
		for id, localID := range existing {
			if _, ok := incoming[id]; !ok {
				gone = append(gone, localID)
			}
		}
		if err := repos.Beneficiaries.Delete(ctx, gone...); err != nil {
			return err
		}

		localIDs := make(map[int64]string, len(list))
		for _, d := range list {
			localID, err := r.saveBeneficiary(ctx, repos, owner, d, now)
			if err != nil {
				return fmt.Errorf("beneficiary %d: %w", d.ID, err)
			}
			localIDs[d.ID] = localID
		}

		for _, d := range list {
			members := make([]string, 0, len(d.FamilyMembers))
			for _, m := range d.FamilyMembers {
				id, ok := localIDs[m.BeneficiaryID]
				if !ok {
					r.logger.Debug(ctx, "family member not stored locally", "beneficiary_id", d.ID, "member_id", m.BeneficiaryID)
					continue
				}
				members = append(members, id)
			}
			if err := repos.Beneficiaries.SetFamilyMembers(ctx, localIDs[d.ID], members); err != nil {
				return err
			}
		}

		if len(gone) > 0 {
			r.logger.Info(ctx, "removed beneficiaries gone from server", "count", len(gone))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save beneficiaries: %w", err)
	}
	return nil
}

func (r *reconciler) saveBeneficiary(ctx context.Context, repos *store.Repositories, owner string, d client.BeneficiaryDetails, now time.Time) (string, error) {
	b := &models.Beneficiary{
		LocalID:     uuid.NewString(),
		ID:          d.ID,
		OwnerEmail:  owner,
		UserID:      d.UserID,
		Name:        d.Name,
		BirthDate:   d.BirthDate.Time,
		Age:         d.Age,
		Gender:      d.Gender,
		CivilStatus: d.CivilStatus,
		CountyID:    d.CountyID,
		County:      d.County,
		CityID:      d.CityID,
		City:        d.City,
		UpdatedAt:   now,
	}

	modified := map[string]bool{}
	current, err := repos.Beneficiaries.GetByServerID(ctx, owner, d.ID)
	switch {
	case err == nil:
		b.LocalID = current.LocalID
		fields, err := repos.Beneficiaries.ModifiedFields(ctx, current.LocalID)
		if err != nil {
			return "", err
		}
		for _, f := range fields {
			modified[f] = true
		}
		keepLocal(b, current, modified)
	case errors.Is(err, common.ErrNotFound):
	default:
		return "", err
	}

	if err := repos.Beneficiaries.Upsert(ctx, b); err != nil {
		return "", err
	}

	if modified[models.PropertyForms] {
		return b.LocalID, nil
	}

	keep := make([]int64, 0, len(d.Forms))
	for _, f := range d.Forms {
		version := f.FormVersion
		if version == 0 {
			if summary, ok := r.cache.FormSummary(f.FormID); ok {
				version = summary.Version
			}
		}
		err := repos.Beneficiaries.UpsertForm(ctx, b.LocalID, models.FormAssignment{
			FormID:            f.FormID,
			FormVersion:       version,
			Code:              f.Code,
			Description:       f.Description,
			CompletionDate:    f.CompletionDate.Time,
			TotalQuestions:    f.TotalQuestionsNo,
			AnsweredQuestions: f.QuestionsAnsweredNo,
			UserName:          f.UserName,
		})
		if err != nil {
			return "", err
		}
		keep = append(keep, f.FormID)
	}
	if err := repos.Beneficiaries.DeleteFormsExcept(ctx, b.LocalID, keep); err != nil {
		return "", err
	}
	return b.LocalID, nil
}

// keepLocal copies into b the fields of current that were edited locally.
func keepLocal(b, current *models.Beneficiary, modified map[string]bool) {
	if modified[models.PropertyName] {
		b.Name = current.Name
	}
	if modified[models.PropertyBirthDate] {
		b.BirthDate = current.BirthDate
		b.Age = current.Age
	}
	if modified[models.PropertyGender] {
		b.Gender = current.Gender
	}
	if modified[models.PropertyCivilStatus] {
		b.CivilStatus = current.CivilStatus
	}
	if modified[models.PropertyCounty] {
		b.CountyID, b.County = current.CountyID, current.County
	}
	if modified[models.PropertyCity] {
		b.CityID, b.City = current.CityID, current.City
	}
}

// SyncUnsyncedData pushes local changes: beneficiaries first so that notes
// and answers can reference their server ids, then notes and answers. Every
// step runs even when an earlier one failed; the first error is returned.
func (r *reconciler) SyncUnsyncedData(ctx context.Context, owner string) error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	record(r.pushBeneficiaries(ctx, owner))
	record(r.uploadNotes(ctx, owner))
	record(r.uploadAnswers(ctx, owner))
	return first
}

func (r *reconciler) pushBeneficiaries(ctx context.Context, owner string) error {
	pending, err := r.store.Repos().Beneficiaries.ListPending(ctx, owner)
	if err != nil {
		return fmt.Errorf("list pending beneficiaries: %w", err)
	}

	var first error
	for _, b := range pending {
		if err := r.pushBeneficiary(ctx, b); err != nil {
			r.logger.Error(ctx, "beneficiary upload failed", "local_id", b.LocalID, "error", err)
			if first == nil {
				first = fmt.Errorf("upload beneficiary %s: %w", b.LocalID, err)
			}
		}
	}
	return first
}

func (r *reconciler) pushBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	snapshot := r.now().UTC()
	isNew := !b.HasServerID()

	req := &client.BeneficiaryRequest{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		BirthDate:   timex.NewAPITime(b.BirthDate),
		CivilStatus: b.CivilStatus,
		CityID:      b.CityID,
		CountyID:    b.CountyID,
		Gender:      b.Gender,
	}
	for _, f := range b.Forms {
		req.FormsIDs = append(req.FormsIDs, f.FormID)
	}
	if isNew {
		req.NewAllocatedFormsIDs = req.FormsIDs
	}
	for _, memberID := range b.FamilyMembers {
		m, err := r.store.Repos().Beneficiaries.GetByLocalID(ctx, memberID)
		if err != nil || !m.HasServerID() {
			continue
		}
		id := m.ID
		req.IsFamilyOf = &id
		break
	}

	id, err := r.client.CreateOrUpdateBeneficiary(ctx, req, isNew)
	if err != nil {
		return err
	}

	err = r.store.InTx(ctx, func(ctx context.Context, repos *store.Repositories) error {
		if isNew {
			current, err := repos.Beneficiaries.GetByLocalID(ctx, b.LocalID)
			if err != nil {
				return err
			}
			current.ID = id
			if err := repos.Beneficiaries.Upsert(ctx, current); err != nil {
				return err
			}
		}
		return repos.Beneficiaries.ClearModified(ctx, b.LocalID, snapshot)
	})
	if err != nil && isNew {
		// the server already holds the record; without its id the next sync creates it again
		r.logger.Error(ctx, "server id not stored", "local_id", b.LocalID, "server_id", id, "error", err)
		return fmt.Errorf("store server id %d: %w", id, err)
	}
	return err
}

func (r *reconciler) uploadNotes(ctx context.Context, owner string) error {
	notes, err := r.store.Repos().Notes.ListUnsynced(ctx, owner)
	if err != nil {
		return fmt.Errorf("list unsynced notes: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(r.uploadConcurrency)

	for _, n := range notes {
		if n.BeneficiaryServerID == 0 {
			r.logger.Debug(ctx, "note skipped, beneficiary not synced", "note_id", n.ID, "beneficiary", n.BeneficiaryID)
			continue
		}
		g.Go(func() error {
			err := r.client.UploadNote(ctx, &client.NoteUpload{
				BeneficiaryID:  n.BeneficiaryServerID,
				QuestionID:     n.QuestionID,
				Text:           n.Body,
				Attachment:     n.Attachment,
				AttachmentName: n.AttachmentName,
			})
			if err != nil {
				r.logger.Error(ctx, "note upload failed", "note_id", n.ID, "error", err)
				return fmt.Errorf("upload note %d: %w", n.ID, err)
			}
			if err := r.store.Repos().Notes.MarkSynced(ctx, n.ID); err != nil {
				return fmt.Errorf("mark note %d synced: %w", n.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

type answerGroup struct {
	formID        int64
	localID       string
	beneficiaryID int64
	fillDate      time.Time
	questionIDs   []int64
	options       map[int64][]client.AnswerOption
}

func (r *reconciler) uploadAnswers(ctx context.Context, owner string) error {
	cutoff := r.now().UTC()

	pending, err := r.store.Repos().Questions.ListUnsyncedAnswers(ctx, owner)
	if err != nil {
		return fmt.Errorf("list unsynced answers: %w", err)
	}

	var first error
	for _, grp := range groupAnswers(pending) {
		if grp.beneficiaryID == 0 {
			r.logger.Debug(ctx, "answers skipped, beneficiary not synced", "form_id", grp.formID, "beneficiary", grp.localID)
			continue
		}

		req := &client.AnswersRequest{FormID: grp.formID, CompletionDate: timex.NewAPITime(grp.fillDate)}
		for _, qid := range grp.questionIDs {
			opts := grp.options[qid]
			if opts == nil {
				opts = []client.AnswerOption{}
			}
			req.Answers = append(req.Answers, client.AnswerUpload{
				QuestionID:    qid,
				BeneficiaryID: grp.beneficiaryID,
				Options:       opts,
			})
		}

		if err := r.client.UploadAnswers(ctx, req); err != nil {
			r.logger.Error(ctx, "answers upload failed", "form_id", grp.formID, "beneficiary_id", grp.beneficiaryID, "error", err)
			if first == nil {
				first = fmt.Errorf("upload answers of form %d: %w", grp.formID, err)
			}
			continue
		}

		if err := r.store.Repos().Questions.MarkAnswersSynced(ctx, grp.localID, grp.questionIDs, cutoff); err != nil {
			if first == nil {
				first = fmt.Errorf("mark answers synced: %w", err)
			}
			continue
		}

		r.emit(AnswersSynced{FormID: grp.formID, BeneficiaryID: grp.localID, QuestionIDs: grp.questionIDs})
	}
	return first
}

// groupAnswers splits pending rows per (form, beneficiary), keeping only the
// selected options of each question. Input order is preserved.
func groupAnswers(rows []models.PendingAnswer) []*answerGroup {
	type key struct {
		formID  int64
		localID string
	}

	var out []*answerGroup
	index := map[key]*answerGroup{}
	for _, row := range rows {
		k := key{row.FormID, row.BeneficiaryLocalID}
		grp, ok := index[k]
		if !ok {
			grp = &answerGroup{
				formID:        row.FormID,
				localID:       row.BeneficiaryLocalID,
				beneficiaryID: row.BeneficiaryID,
				options:       map[int64][]client.AnswerOption{},
			}
			index[k] = grp
			out = append(out, grp)
		}
		if _, seen := grp.options[row.QuestionID]; !seen {
			grp.questionIDs = append(grp.questionIDs, row.QuestionID)
			grp.options[row.QuestionID] = nil
		}
		if row.FillDate.After(grp.fillDate) {
			grp.fillDate = row.FillDate
		}
		if row.Selected {
			grp.options[row.QuestionID] = append(grp.options[row.QuestionID], client.AnswerOption{
				OptionID: row.OptionID,
				Value:    row.InputText,
			})
		}
	}
	return out
}

func (r *reconciler) NeedsSync(ctx context.Context, owner string) (bool, error) {
	repos := r.store.Repos()

	pending, err := repos.Beneficiaries.ListPending(ctx, owner)
	if err != nil {
		return false, err
	}
	if len(pending) > 0 {
		return true, nil
	}
	notes, err := repos.Notes.CountUnsynced(ctx, owner)
	if err != nil {
		return false, err
	}
	answers, err := repos.Questions.CountUnsyncedAnswers(ctx, owner)
	if err != nil {
		return false, err
	}
	return notes+answers > 0, nil
}
