// Package forms reads questionnaire definitions.
package forms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) ListCurrent(ctx context.Context) ([]models.Form, error) {
	query :=
		`SELECT id, code, description, current_version, question_count
		 FROM forms
		 ORDER BY code
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Form
	for rows.Next() {
		var f models.Form
		if err := rows.Scan(&f.ID, &f.Code, &f.Description, &f.CurrentVersion, &f.QuestionCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Form, error) {
	query :=
		`SELECT id, code, description, current_version, question_count, sections
		 FROM forms
		 WHERE id = $1
		 `

	f := &models.Form{}
	var sections []byte
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.Code, &f.Description, &f.CurrentVersion, &f.QuestionCount, &sections)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	f.Sections = sections
	return f, nil
}
