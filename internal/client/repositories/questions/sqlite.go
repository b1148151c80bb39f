package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) UpsertQuestions(ctx context.Context, qs []models.Question) error {
	query := `
		INSERT INTO questions (id, form_id, form_version, section_id, section_code, code, text, type, mandatory, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			form_id = excluded.form_id,
			form_version = excluded.form_version,
			section_id = excluded.section_id,
			section_code = excluded.section_code,
			code = excluded.code,
			text = excluded.text,
			type = excluded.type,
			mandatory = excluded.mandatory,
			options = excluded.options`

	for _, q := range qs {
		opts := q.Options
		if opts == nil {
			opts = []models.QuestionOption{}
		}
		encoded, err := json.Marshal(opts)
		if err != nil {
			return fmt.Errorf("encode options of question %d: %w", q.ID, err)
		}
		_, err = r.db.ExecContext(ctx, query, q.ID, q.FormID, q.FormVersion, q.SectionID, q.SectionCode,
			q.Code, q.Text, int(q.Type), q.IsMandatory, string(encoded))
		if err != nil {
			return fmt.Errorf("upsert question %d: %w", q.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetByForm(ctx context.Context, formID int64, maxVersion int) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, form_id, form_version, section_id, section_code, code, text, type, mandatory, options
		FROM questions WHERE form_id = ? AND form_version <= ?
		ORDER BY section_id, id`, formID, maxVersion)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var (
			q       models.Question
			typ     int
			options string
		)
		if err := rows.Scan(&q.ID, &q.FormID, &q.FormVersion, &q.SectionID, &q.SectionCode, &q.Code,
			&q.Text, &typ, &q.IsMandatory, &options); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		q.Type = models.QuestionType(typ)
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteByForm(ctx context.Context, formID int64, maxVersion int) (int, error) {
	sub := `SELECT id FROM questions WHERE form_id = ? AND form_version <= ?`

	if _, err := r.db.ExecContext(ctx, `DELETE FROM answers WHERE question_id IN (`+sub+`)`, formID, maxVersion); err != nil {
		return 0, fmt.Errorf("delete answers of form %d: %w", formID, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE question_id IN (`+sub+`)`, formID, maxVersion); err != nil {
		return 0, fmt.Errorf("delete notes of form %d: %w", formID, err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE form_id = ? AND form_version <= ?`, formID, maxVersion)
	if err != nil {
		return 0, fmt.Errorf("delete questions of form %d: %w", formID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) SaveAnswers(ctx context.Context, beneficiaryID string, questionID int64, answers []models.Answer) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM answers WHERE beneficiary_id = ? AND question_id = ?`, beneficiaryID, questionID); err != nil {
		return fmt.Errorf("clear answers of question %d: %w", questionID, err)
	}

	now := r.now().UTC()
	for _, a := range answers {
		fill := a.FillDate
		if fill.IsZero() {
			fill = now
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO answers (beneficiary_id, question_id, option_id, selected, input_text, fill_date, synced, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			beneficiaryID, questionID, a.OptionID, a.Selected, a.InputText, fill.UTC(), now.UnixNano())
		if err != nil {
			return fmt.Errorf("save answer %d/%d: %w", questionID, a.OptionID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) AnswersFor(ctx context.Context, beneficiaryID string, questionIDs ...int64) ([]models.Answer, error) {
	query := `
		SELECT beneficiary_id, question_id, option_id, selected, input_text, fill_date, synced, updated_at
		FROM answers WHERE beneficiary_id = ?`
	args := []any{beneficiaryID}
	if len(questionIDs) > 0 {
		query += ` AND question_id IN (` + dbx.Placeholders(len(questionIDs)) + `)`
		for _, id := range questionIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY question_id, option_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Answer
	for rows.Next() {
		var (
			a       models.Answer
			fill    sql.NullTime
			updated int64
		)
		if err := rows.Scan(&a.BeneficiaryID, &a.QuestionID, &a.OptionID, &a.Selected, &a.InputText,
			&fill, &a.Synced, &updated); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if fill.Valid {
			a.FillDate = fill.Time.UTC()
		}
		a.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListUnsyncedAnswers(ctx context.Context, owner string) ([]models.PendingAnswer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.beneficiary_id, COALESCE(b.server_id, 0), q.form_id, a.question_id, a.option_id,
		       a.selected, a.input_text, a.fill_date
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		JOIN beneficiaries b ON b.local_id = a.beneficiary_id
		WHERE b.owner_email = ?
		  AND EXISTS (SELECT 1 FROM answers u
		              WHERE u.beneficiary_id = a.beneficiary_id AND u.question_id = a.question_id AND u.synced = 0)
		ORDER BY q.form_id, a.beneficiary_id, a.question_id, a.option_id`, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.PendingAnswer
	for rows.Next() {
		var (
			p    models.PendingAnswer
			fill sql.NullTime
		)
		if err := rows.Scan(&p.BeneficiaryLocalID, &p.BeneficiaryID, &p.FormID, &p.QuestionID, &p.OptionID,
			&p.Selected, &p.InputText, &fill); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if fill.Valid {
			p.FillDate = fill.Time.UTC()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkAnswersSynced(ctx context.Context, beneficiaryID string, questionIDs []int64, cutoff time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}
	args := []any{beneficiaryID, cutoff.UnixNano()}
	for _, id := range questionIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE answers SET synced = 1
		WHERE beneficiary_id = ? AND synced = 0 AND updated_at <= ?
		  AND question_id IN (`+dbx.Placeholders(len(questionIDs))+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark answers synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountUnsyncedAnswers(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM answers a JOIN beneficiaries b ON b.local_id = a.beneficiary_id
		WHERE b.owner_email = ? AND a.synced = 0`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
