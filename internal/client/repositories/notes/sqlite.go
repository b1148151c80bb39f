package notes

import (
	"context"
	"database/sql"
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

const selectNote = `
	SELECT n.id, n.beneficiary_id, n.question_id, n.body, n.attachment, n.attachment_name,
	       n.created_at, n.synced, COALESCE(b.server_id, 0)
	FROM notes n
	LEFT JOIN beneficiaries b ON b.local_id = n.beneficiary_id`

func (r *SQLiteRepository) Create(ctx context.Context, n *models.Note) (int64, error) {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	var questionID sql.NullInt64
	if n.QuestionID != nil {
		questionID = sql.NullInt64{Int64: *n.QuestionID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (beneficiary_id, question_id, body, attachment, attachment_name, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		n.BeneficiaryID, questionID, n.Body, n.Attachment, n.AttachmentName, created.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = created.UTC()
	return id, nil
}

func (r *SQLiteRepository) ListByBeneficiary(ctx context.Context, beneficiaryID string) ([]models.Note, error) {
	return r.list(ctx, selectNote+` WHERE n.beneficiary_id = ? ORDER BY n.id`, beneficiaryID)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context, owner string) ([]models.Note, error) {
	return r.list(ctx, selectNote+` WHERE n.synced = 0 AND b.owner_email = ? ORDER BY n.id`, owner)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var (
			n          models.Note
			questionID sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.BeneficiaryID, &questionID, &n.Body, &n.Attachment, &n.AttachmentName,
			&n.CreatedAt, &n.Synced, &n.BeneficiaryServerID); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if questionID.Valid {
			id := questionID.Int64
			n.QuestionID = &id
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notes SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark note %d synced: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CountUnsynced(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notes n JOIN beneficiaries b ON b.local_id = n.beneficiary_id
		WHERE n.synced = 0 AND b.owner_email = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
