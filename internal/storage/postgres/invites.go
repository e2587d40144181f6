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

const inviteSelect = `
	SELECT i.id, i.brand_id, b.name, b.username, i.influencer_id, i.campaign_id,
	       i.campaign_label, i.note, i.status, i.expires_at, i.responded_at, i.created_at
`

func (r *PostgresRepo) SaveInvite(ctx context.Context, inv models.Invite) (models.Invite, error) {
	const op = "storage.postgres.SaveInvite"

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = models.InvitePending
	}

	const query = `
		INSERT INTO invites (id, brand_id, influencer_id, campaign_id, campaign_label, note, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		inv.ID, inv.BrandID, inv.InfluencerID, inv.CampaignID,
		inv.CampaignLabel, inv.Note, string(inv.Status), inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	return inv, nil
}

// InvitesForInfluencer lists invites addressed to influencerID, newest first.
// An empty status lists every invite.
func (r *PostgresRepo) InvitesForInfluencer(ctx context.Context, influencerID uuid.UUID, status models.InviteStatus) ([]models.Invite, error) {
	const op = "storage.postgres.InvitesForInfluencer"

	query := inviteSelect + `
		FROM invites i
		JOIN users b ON b.id = i.brand_id
		WHERE i.influencer_id = $1 AND ($2 = '' OR i.status = $2)
		ORDER BY i.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, influencerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	invites := []models.Invite{}

	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return invites, nil
}

// RespondInvite moves a pending, unexpired invite owned by influencerID to
// status. It returns storage.ErrInviteNotFound when the invite does not exist
// for this influencer and storage.ErrInviteNotPending when it already left pending.
func (r *PostgresRepo) RespondInvite(
	ctx context.Context,
	id, influencerID uuid.UUID,
	status models.InviteStatus,
	now time.Time,
) (models.Invite, error) {
	const op = "storage.postgres.RespondInvite"

	query := `
		WITH updated AS (
			UPDATE invites
			SET status = $1, responded_at = $4
			WHERE id = $2 AND influencer_id = $3 AND status = 'pending' AND expires_at > $4
			RETURNING *
		)
	` + inviteSelect + `
		FROM updated i
		JOIN users b ON b.id = i.brand_id
	`

	inv, err := scanInvite(r.pool.QueryRow(ctx, query, string(status), id, influencerID, now))
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool

	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invites WHERE id = $1 AND influencer_id = $2)`,
		id, influencerID,
	).Scan(&exists)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return models.Invite{}, storage.ErrInviteNotFound
	}

	return models.Invite{}, storage.ErrInviteNotPending
}

// ExpireInvites moves every pending invite whose expiry is not after now to expired.
func (r *PostgresRepo) ExpireInvites(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.ExpireInvites"

	tag, err := r.pool.Exec(ctx,
		`UPDATE invites SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func scanInvite(row pgx.Row) (models.Invite, error) {
	var (
		inv    models.Invite
		status string
	)

	err := row.Scan(
		&inv.ID,
		&inv.BrandID,
		&inv.BrandName,
		&inv.BrandHandle,
		&inv.InfluencerID,
		&inv.CampaignID,
		&inv.CampaignLabel,
		&inv.Note,
		&status,
		&inv.ExpiresAt,
		&inv.RespondedAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return models.Invite{}, err
	}

	inv.Status = models.InviteStatus(status)

	return inv, nil
}
