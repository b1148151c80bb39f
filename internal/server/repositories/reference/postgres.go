// Package reference reads the county and city catalogues.
package reference

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Counties(ctx context.Context) ([]models.County, error) {
	query := `SELECT id, name, code FROM counties ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.County
	for rows.Next() {
		var c models.County
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Cities returns the cities of a county; an unknown county yields none.
func (r *PostgresRepository) Cities(ctx context.Context, countyID int64) ([]models.City, error) {
	query := `SELECT id, county_id, name FROM cities WHERE county_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, countyID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.CountyID, &c.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
