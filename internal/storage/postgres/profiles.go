package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) Profile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	const op = "storage.postgres.Profile"

	const query = `
		SELECT u.id, u.role, u.name, u.email, u.username,
		       p.brand_details, p.influencer_details, p.updated_at
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`

	var (
		p          models.Profile
		role       string
		brand      []byte
		influencer []byte
	)

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&role,
		&p.Name,
		&p.Email,
		&p.Username,
		&brand,
		&influencer,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, storage.ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	p.Role = models.Role(role)

	if len(brand) > 0 {
		p.BrandDetails = &models.BrandDetails{}
		if err := json.Unmarshal(brand, p.BrandDetails); err != nil {
			return models.Profile{}, fmt.Errorf("%s: decode brand details: %w", op, err)
		}
	}

	if len(influencer) > 0 {
		p.InfluencerDetails = &models.InfluencerDetails{}
		if err := json.Unmarshal(influencer, p.InfluencerDetails); err != nil {
			return models.Profile{}, fmt.Errorf("%s: decode influencer details: %w", op, err)
		}
	}

	return p, nil
}

// UpdateProfile replaces the display name and the role sub-document wholesale.
// There is no version check; the last writer wins.
func (r *PostgresRepo) UpdateProfile(ctx context.Context, p models.Profile) error {
	const op = "storage.postgres.UpdateProfile"

	brand, err := marshalNullable(p.BrandDetails)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	influencer, err := marshalNullable(p.InfluencerDetails)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET name = $1 WHERE id = $2`, p.Name, p.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			UPDATE profiles
			SET brand_details = $1, influencer_details = $2, updated_at = NOW()
			WHERE user_id = $3
		`, brand, influencer, p.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
