// Package beneficiaries provides the PostgreSQL-backed beneficiary
// repository together with form assignments and family links.
package beneficiaries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	selectBeneficiaries = `
		SELECT b.id, b.user_id, b.name, b.birth_date, b.civil_status, b.gender,
		       COALESCE(b.county_id, 0), COALESCE(co.name, ''),
		       COALESCE(b.city_id, 0), COALESCE(ci.name, ''), b.updated_at
		FROM beneficiaries b
		LEFT JOIN counties co ON co.id = b.county_id
		LEFT JOIN cities ci ON ci.id = b.city_id
		WHERE %s
		ORDER BY b.id`

	selectForms = `
		SELECT bf.beneficiary_id, bf.form_id, bf.form_version, f.code, f.description,
		       bf.completion_date, f.question_count, bf.answered_questions, u.name
		FROM beneficiary_forms bf
		JOIN forms f ON f.id = bf.form_id
		JOIN beneficiaries b ON b.id = bf.beneficiary_id
		JOIN users u ON u.id = b.user_id
		WHERE %s
		ORDER BY bf.beneficiary_id, bf.form_id`

	selectFamily = `
		SELECT l.beneficiary_id, m.id, m.name
		FROM family_links l
		JOIN beneficiaries b ON b.id = l.beneficiary_id
		JOIN beneficiaries m ON m.id = l.member_id
		WHERE %s
		ORDER BY l.beneficiary_id, m.id`
)

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Beneficiary, error) {
	return r.load(ctx, "b.user_id = $1", userID)
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Beneficiary, error) {
	list, err := r.load(ctx, "b.user_id = $1 AND b.id = $2", userID, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrNotFound
	}
	return &list[0], nil
}

// load runs the three queries one after another; each cursor is closed
// before the next query starts.
func (r *PostgresRepository) load(ctx context.Context, where string, args ...any) ([]models.Beneficiary, error) {
	list, err := r.scanBeneficiaries(ctx, fmt.Sprintf(selectBeneficiaries, where), args...)
	if err != nil || len(list) == 0 {
		return list, err
	}

	index := make(map[int64]int, len(list))
	for i := range list {
		index[list[i].ID] = i
	}

	if err := r.scanForms(ctx, fmt.Sprintf(selectForms, where), index, list, args...); err != nil {
		return nil, err
	}
	if err := r.scanFamily(ctx, fmt.Sprintf(selectFamily, where), index, list, args...); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PostgresRepository) scanBeneficiaries(ctx context.Context, query string, args ...any) ([]models.Beneficiary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Beneficiary
	for rows.Next() {
		var (
			b     models.Beneficiary
			birth sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &birth, &b.CivilStatus, &b.Gender,
			&b.CountyID, &b.County, &b.CityID, &b.City, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if birth.Valid {
			b.BirthDate = birth.Time
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) scanForms(ctx context.Context, query string, index map[int64]int, list []models.Beneficiary, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			owner     int64
			fa        models.FormAssignment
			completed sql.NullTime
		)
		if err := rows.Scan(&owner, &fa.FormID, &fa.FormVersion, &fa.Code, &fa.Description,
			&completed, &fa.TotalQuestions, &fa.AnsweredQuestions, &fa.UserName); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if completed.Valid {
			fa.CompletionDate = completed.Time
		}
		if i, ok := index[owner]; ok {
			list[i].Forms = append(list[i].Forms, fa)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanFamily(ctx context.Context, query string, index map[int64]int, list []models.Beneficiary, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			owner int64
			m     models.FamilyMember
		)
		if err := rows.Scan(&owner, &m.ID, &m.Name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if i, ok := index[owner]; ok {
			list[i].FamilyMembers = append(list[i].FamilyMembers, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Beneficiary) (int64, error) {
	query :=
		`INSERT INTO beneficiaries (user_id, name, birth_date, civil_status, gender, county_id, city_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, b.UserID, b.Name, nullTime(b.BirthDate), b.CivilStatus, b.Gender,
		nullID(b.CountyID), nullID(b.CityID), b.UpdatedAt).Scan(&b.ID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return b.ID, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *models.Beneficiary) error {
	query :=
		`UPDATE beneficiaries
		 SET name = $3, birth_date = $4, civil_status = $5, gender = $6,
		     county_id = $7, city_id = $8, updated_at = $9
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, b.ID, b.UserID, b.Name, nullTime(b.BirthDate), b.CivilStatus, b.Gender,
		nullID(b.CountyID), nullID(b.CityID), b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) SetForms(ctx context.Context, id int64, formIDs []int64) error {
	args := make([]any, 0, len(formIDs)+1)
	args = append(args, id)
	for _, f := range formIDs {
		args = append(args, f)
	}

	del := `DELETE FROM beneficiary_forms WHERE beneficiary_id = $1`
	if len(formIDs) > 0 {
		del += ` AND form_id NOT IN (` + dbx.NumberedPlaceholders(2, len(formIDs)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if len(formIDs) == 0 {
		return nil
	}

	ins := `INSERT INTO beneficiary_forms (beneficiary_id, form_id, form_version)
		SELECT $1, f.id, f.current_version FROM forms f
		WHERE f.id IN (` + dbx.NumberedPlaceholders(2, len(formIDs)) + `)
		ON CONFLICT (beneficiary_id, form_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, ins, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LinkFamily records a and b as members of the same family in both
// directions.
func (r *PostgresRepository) LinkFamily(ctx context.Context, a, b int64) error {
	query :=
		`INSERT INTO family_links (beneficiary_id, member_id)
		 VALUES ($1, $2), ($2, $1)
		 ON CONFLICT DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, query, a, b); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, userID, id int64, at time.Time) error {
	query := `UPDATE beneficiaries SET sent_at = $3 WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
