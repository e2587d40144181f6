package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `id, brand_id, title, description, budget, platforms, start_date, end_date, status, extra, created_at`

func (r *PostgresRepo) SaveCampaign(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	const op = "storage.postgres.SaveCampaign"

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Platforms == nil {
		c.Platforms = []string{}
	}

	const query = `
		INSERT INTO campaigns (id, brand_id, title, description, budget, platforms, start_date, end_date, status, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	var extra []byte
	if len(c.Extra) > 0 {
		extra = c.Extra
	}

	err := r.pool.QueryRow(ctx, query,
		c.ID, c.BrandID, c.Title, c.Description, c.Budget, c.Platforms,
		c.StartDate, c.EndDate, string(c.Status), extra,
	).Scan(&c.CreatedAt)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *PostgresRepo) Campaign(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	const op = "storage.postgres.Campaign"

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Campaign{}, storage.ErrNotFound
		}
		return models.Campaign{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *PostgresRepo) CampaignsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.Campaign, error) {
	const op = "storage.postgres.CampaignsByBrand"

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE brand_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return campaigns, nil
}

func scanCampaign(row pgx.Row) (models.Campaign, error) {
	var (
		c      models.Campaign
		status string
		extra  []byte
	)

	err := row.Scan(
		&c.ID,
		&c.BrandID,
		&c.Title,
		&c.Description,
		&c.Budget,
		&c.Platforms,
		&c.StartDate,
		&c.EndDate,
		&status,
		&extra,
		&c.CreatedAt,
	)
	if err != nil {
		return models.Campaign{}, err
	}

	c.Status = models.CampaignStatus(status)
	if len(extra) > 0 {
		c.Extra = extra
	}

	return c, nil
}
