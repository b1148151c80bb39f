package beneficiaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `local_id, server_id, owner_email, user_id, name, birth_date, age, gender,
	civil_status, county_id, county, city_id, city, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, b *models.Beneficiary) error {
	query := `
		INSERT INTO beneficiaries (local_id, server_id, owner_email, user_id, name, birth_date, age, gender,
			civil_status, county_id, county, city_id, city, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			server_id = excluded.server_id,
			owner_email = excluded.owner_email,
			user_id = excluded.user_id,
			name = excluded.name,
			birth_date = excluded.birth_date,
			age = excluded.age,
			gender = excluded.gender,
			civil_status = excluded.civil_status,
			county_id = excluded.county_id,
			county = excluded.county,
			city_id = excluded.city_id,
			city = excluded.city,
			updated_at = excluded.updated_at`

	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		b.LocalID, nullID(b.ID), b.OwnerEmail, b.UserID, b.Name, nullTime(b.BirthDate), b.Age,
		int(b.Gender), int(b.CivilStatus), b.CountyID, b.County, b.CityID, b.City, b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert beneficiary %s: %w", b.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.Beneficiary, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM beneficiaries WHERE local_id = ?`, localID)
	return r.loadOne(ctx, row)
}

func (r *SQLiteRepository) GetByServerID(ctx context.Context, owner string, id int64) (*models.Beneficiary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM beneficiaries WHERE owner_email = ? AND server_id = ?`, owner, id)
	return r.loadOne(ctx, row)
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Beneficiary, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM beneficiaries WHERE owner_email = ? ORDER BY name, local_id`, owner)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, owner string) ([]*models.Beneficiary, error) {
	return r.list(ctx, `
		SELECT `+selectColumns+` FROM beneficiaries b
		WHERE b.owner_email = ?
		  AND (b.server_id IS NULL OR EXISTS (SELECT 1 FROM revisions r WHERE r.beneficiary_id = b.local_id))
		ORDER BY b.updated_at, b.local_id`, owner)
}

func (r *SQLiteRepository) ServerIDs(ctx context.Context, owner string) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT server_id, local_id FROM beneficiaries WHERE owner_email = ? AND server_id IS NOT NULL`, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var localID string
		if err := rows.Scan(&id, &localID); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out[id] = localID
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountOwnedByOther(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM beneficiaries WHERE owner_email <> ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localIDs ...string) error {
	if len(localIDs) == 0 {
		return nil
	}

	in := dbx.Placeholders(len(localIDs))
	args := make([]any, len(localIDs))
	for i, id := range localIDs {
		args[i] = id
	}

	statements := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM answers WHERE beneficiary_id IN (` + in + `)`, args},
		{`DELETE FROM notes WHERE beneficiary_id IN (` + in + `)`, args},
		{`DELETE FROM beneficiary_forms WHERE beneficiary_id IN (` + in + `)`, args},
		{`DELETE FROM revisions WHERE beneficiary_id IN (` + in + `)`, args},
		{`DELETE FROM family_members WHERE beneficiary_id IN (` + in + `) OR member_id IN (` + in + `)`, append(append([]any{}, args...), args...)},
		{`DELETE FROM beneficiaries WHERE local_id IN (` + in + `)`, args},
	}

	for _, st := range statements {
		if _, err := r.db.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("delete beneficiaries: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) UpsertForm(ctx context.Context, localID string, f models.FormAssignment) error {
	query := `
		INSERT INTO beneficiary_forms (beneficiary_id, form_id, form_version, code, description, completion_date,
			total_questions, answered_questions, user_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(beneficiary_id, form_id) DO UPDATE SET
			form_version = excluded.form_version,
			code = excluded.code,
			description = excluded.description,
			completion_date = excluded.completion_date,
			total_questions = excluded.total_questions,
			answered_questions = excluded.answered_questions,
			user_name = excluded.user_name`

	_, err := r.db.ExecContext(ctx, query, localID, f.FormID, f.FormVersion, f.Code, f.Description,
		nullTime(f.CompletionDate), f.TotalQuestions, f.AnsweredQuestions, f.UserName)
	if err != nil {
		return fmt.Errorf("upsert form %d of %s: %w", f.FormID, localID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteFormsExcept(ctx context.Context, localID string, keep []int64) error {
	query := `DELETE FROM beneficiary_forms WHERE beneficiary_id = ?`
	args := []any{localID}
	if len(keep) > 0 {
		query += ` AND form_id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete forms of %s: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveForms(ctx context.Context, localID string, formIDs ...int64) error {
	if len(formIDs) == 0 {
		return nil
	}
	args := []any{localID}
	for _, id := range formIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM beneficiary_forms WHERE beneficiary_id = ? AND form_id IN (`+dbx.Placeholders(len(formIDs))+`)`, args...)
	if err != nil {
		return fmt.Errorf("remove forms of %s: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) SetFamilyMembers(ctx context.Context, localID string, memberIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM family_members WHERE beneficiary_id = ?`, localID); err != nil {
		return fmt.Errorf("clear family of %s: %w", localID, err)
	}
	for _, m := range memberIDs {
		if m == localID {
			continue
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO family_members (beneficiary_id, member_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, localID, m)
		if err != nil {
			return fmt.Errorf("add family member %s to %s: %w", m, localID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) MarkModified(ctx context.Context, localID string, at time.Time, properties ...string) error {
	for _, p := range properties {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO revisions (beneficiary_id, property, modified_at) VALUES (?, ?, ?)
			ON CONFLICT(beneficiary_id, property) DO UPDATE SET modified_at = excluded.modified_at`,
			localID, p, at.UTC())
		if err != nil {
			return fmt.Errorf("mark %s.%s modified: %w", localID, p, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ModifiedFields(ctx context.Context, localID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT property FROM revisions WHERE beneficiary_id = ? ORDER BY property`, localID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ClearModified(ctx context.Context, localID string, upTo time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revisions WHERE beneficiary_id = ? AND modified_at <= ?`, localID, upTo.UTC())
	if err != nil {
		return fmt.Errorf("clear revisions of %s: %w", localID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBeneficiary(s scanner) (*models.Beneficiary, error) {
	var (
		b         models.Beneficiary
		serverID  sql.NullInt64
		birthDate sql.NullTime
		gender    int
		civil     int
	)
	err := s.Scan(&b.LocalID, &serverID, &b.OwnerEmail, &b.UserID, &b.Name, &birthDate, &b.Age, &gender,
		&civil, &b.CountyID, &b.County, &b.CityID, &b.City, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ID = serverID.Int64
	if birthDate.Valid {
		b.BirthDate = birthDate.Time.UTC()
	}
	b.Gender = models.Gender(gender)
	b.CivilStatus = models.CivilStatus(civil)
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (r *SQLiteRepository) loadOne(ctx context.Context, row *sql.Row) (*models.Beneficiary, error) {
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := r.loadRelations(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Beneficiary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var out []*models.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	// relations are loaded after the cursor is closed; the local store runs
	// on a single connection
	for _, b := range out {
		if err := r.loadRelations(ctx, b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) loadRelations(ctx context.Context, b *models.Beneficiary) error {
	forms, err := r.forms(ctx, b.LocalID)
	if err != nil {
		return err
	}
	b.Forms = forms

	family, err := r.family(ctx, b.LocalID)
	if err != nil {
		return err
	}
	b.FamilyMembers = family
	return nil
}

func (r *SQLiteRepository) forms(ctx context.Context, localID string) ([]models.FormAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT form_id, form_version, code, description, completion_date, total_questions, answered_questions, user_name
		FROM beneficiary_forms WHERE beneficiary_id = ? ORDER BY form_id`, localID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.FormAssignment
	for rows.Next() {
		var f models.FormAssignment
		var completion sql.NullTime
		if err := rows.Scan(&f.FormID, &f.FormVersion, &f.Code, &f.Description, &completion,
			&f.TotalQuestions, &f.AnsweredQuestions, &f.UserName); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if completion.Valid {
			f.CompletionDate = completion.Time.UTC()
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) family(ctx context.Context, localID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id FROM family_members WHERE beneficiary_id = ? ORDER BY member_id`, localID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
