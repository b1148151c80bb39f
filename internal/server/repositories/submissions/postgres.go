// Package submissions stores what field workers upload: answers, notes and
// polling-station reports.
package submissions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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
	deleteAnswer = `DELETE FROM answers WHERE beneficiary_id = $1 AND question_id = $2`

	insertOption = `
		INSERT INTO answers (beneficiary_id, form_id, question_id, option_id, value, user_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	upsertProgress = `
		INSERT INTO beneficiary_forms (beneficiary_id, form_id, form_version, completion_date, answered_questions)
		SELECT $1, f.id, f.current_version, $3,
		       (SELECT COUNT(DISTINCT a.question_id) FROM answers a WHERE a.beneficiary_id = $1 AND a.form_id = $2)
		FROM forms f WHERE f.id = $2
		ON CONFLICT (beneficiary_id, form_id) DO UPDATE
		SET completion_date = EXCLUDED.completion_date,
		    answered_questions = EXCLUDED.answered_questions`
)

// SaveAnswers should run inside a transaction; it issues several statements.
// An answer without options clears the question.
func (r *PostgresRepository) SaveAnswers(ctx context.Context, batch *models.AnswerBatch) error {
	now := time.Now().UTC()

	var touched []int64
	seen := make(map[int64]bool)

	for _, a := range batch.Answers {
		if _, err := r.db.ExecContext(ctx, deleteAnswer, a.BeneficiaryID, a.QuestionID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for _, o := range a.Options {
			if _, err := r.db.ExecContext(ctx, insertOption,
				a.BeneficiaryID, batch.FormID, a.QuestionID, o.OptionID, o.Value, batch.UserID, now); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		if !seen[a.BeneficiaryID] {
			seen[a.BeneficiaryID] = true
			touched = append(touched, a.BeneficiaryID)
		}
	}

	completed := sql.NullTime{Time: batch.CompletionDate, Valid: !batch.CompletionDate.IsZero()}
	for _, id := range touched {
		if _, err := r.db.ExecContext(ctx, upsertProgress, id, batch.FormID, completed); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) SaveNote(ctx context.Context, note *models.Note) (int64, error) {
	query :=
		`INSERT INTO notes (user_id, beneficiary_id, question_id, text, attachment_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	var question sql.NullInt64
	if note.QuestionID != nil {
		question = sql.NullInt64{Int64: *note.QuestionID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, note.UserID, note.BeneficiaryID, question,
		note.Text, note.AttachmentKey, note.CreatedAt).Scan(&note.ID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return note.ID, nil
}

// UpsertPollingStation keeps one report per worker and station; a later
// upload overwrites the earlier one.
func (r *PostgresRepository) UpsertPollingStation(ctx context.Context, ps *models.PollingStation) error {
	query :=
		`INSERT INTO polling_stations (user_id, county_code, number, urban_area, arrival_time, leave_time, president_female)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, county_code, number) DO UPDATE
		 SET urban_area = EXCLUDED.urban_area,
		     arrival_time = EXCLUDED.arrival_time,
		     leave_time = EXCLUDED.leave_time,
		     president_female = EXCLUDED.president_female
		 `

	_, err := r.db.ExecContext(ctx, query, ps.UserID, ps.CountyCode, ps.Number, ps.UrbanArea,
		nullTime(ps.ArrivalTime), nullTime(ps.LeaveTime), ps.PresidentIsFemale)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
