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

const userColumns = `id, role, name, email, username, password_hash, is_verified, created_at`

// SaveUser inserts a verified user together with an empty role profile.
func (r *PostgresRepo) SaveUser(ctx context.Context, u models.User) (uuid.UUID, error) {
	const op = "storage.postgres.SaveUser"

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		return insertUser(ctx, tx, u)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return u.ID, nil
}

// SaveOAuthUser inserts a user created from a provider identity and links the identity.
func (r *PostgresRepo) SaveOAuthUser(ctx context.Context, u models.User, provider, providerUserID string) (uuid.UUID, error) {
	const op = "storage.postgres.SaveOAuthUser"

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		return linkIdentity(ctx, tx, u.ID, provider, providerUserID)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return u.ID, nil
}

func (r *PostgresRepo) LinkOAuthIdentity(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	const op = "storage.postgres.LinkOAuthIdentity"

	if err := linkIdentity(ctx, r.pool, userID, provider, providerUserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.UserByUsername"

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByProvider(ctx context.Context, provider, providerUserID string) (models.User, error) {
	const op = "storage.postgres.UserByProvider"

	query := `
		SELECT u.id, u.role, u.name, u.email, u.username, u.password_hash, u.is_verified, u.created_at
		FROM oauth_identities oi
		JOIN users u ON u.id = oi.user_id
		WHERE oi.provider = $1 AND oi.provider_user_id = $2
	`

	u, err := scanUser(r.pool.QueryRow(ctx, query, provider, providerUserID))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	const op = "storage.postgres.UsernameExists"

	var exists bool

	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *PostgresRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.postgres.EmailExists"

	var exists bool

	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func insertUser(ctx context.Context, db executor, u models.User) error {
	const userQuery = `
		INSERT INTO users (id, role, name, email, username, password_hash, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := db.Exec(ctx, userQuery, u.ID, string(u.Role), u.Name, u.Email, u.Username, u.PassHash, u.IsVerified)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok {
			if constraint == "users_username_key" {
				return storage.ErrUsernameTaken
			}
			return storage.ErrUserExists
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	const profileQuery = `INSERT INTO profiles (user_id) VALUES ($1)`

	if _, err := db.Exec(ctx, profileQuery, u.ID); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func linkIdentity(ctx context.Context, db executor, userID uuid.UUID, provider, providerUserID string) error {
	const query = `
		INSERT INTO oauth_identities (provider, provider_user_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_user_id) DO NOTHING
	`

	_, err := db.Exec(ctx, query, provider, providerUserID, userID)
	return err
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u    models.User
		role string
	)

	err := row.Scan(
		&u.ID,
		&role,
		&u.Name,
		&u.Email,
		&u.Username,
		&u.PassHash,
		&u.IsVerified,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, err
	}

	u.Role = models.Role(role)

	return u, nil
}
