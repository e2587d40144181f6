package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) SaveResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const op = "storage.postgres.SaveResetToken"

	const query = `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) ResetToken(ctx context.Context, tokenHash string) (models.PasswordResetToken, error) {
	const op = "storage.postgres.ResetToken"

	const query = `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`

	var t models.PasswordResetToken

	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PasswordResetToken{}, storage.ErrResetTokenNotFound
		}
		return models.PasswordResetToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// ConsumeResetToken marks the token used and stores the new password hash in
// one transaction. Every other outstanding token of the user is burned too.
func (r *PostgresRepo) ConsumeResetToken(ctx context.Context, tokenID, userID uuid.UUID, passHash []byte) error {
	const op = "storage.postgres.ConsumeResetToken"

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE password_reset_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`,
			tokenID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrResetTokenNotFound
		}

		tag, err = tx.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passHash, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrUserNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE password_reset_tokens SET used_at = NOW() WHERE user_id = $1 AND used_at IS NULL`,
			userID,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrResetTokenNotFound) || errors.Is(err, storage.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
