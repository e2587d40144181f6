package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"
	"marketplace/pkg/usernames"

	"github.com/google/uuid"
)

type InviteInput struct {
	InfluencerUsername string
	CampaignID         *uuid.UUID
	CampaignLabel      string
	Note               string
}

// CreateInvite sends an invite from brandID to the influencer named in the
// input. When a campaign is given it must belong to the brand and its title
// becomes the default label.
func (s *Service) CreateInvite(ctx context.Context, brandID uuid.UUID, in InviteInput) (models.Invite, error) {
	const op = "marketplace.CreateInvite"

	log := s.log.With(
		slog.String("op", op),
		slog.String("brand_id", brandID.String()),
	)

	influencer, err := s.users.UserByUsername(ctx, usernames.Normalize(in.InfluencerUsername))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Invite{}, ErrInfluencerNotFound
		}

		log.Error("failed to look up influencer", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if influencer.Role != models.RoleInfluencer {
		return models.Invite{}, ErrInfluencerNotFound
	}

	label := strings.TrimSpace(in.CampaignLabel)

	if in.CampaignID != nil {
		c, err := s.campaigns.Campaign(ctx, *in.CampaignID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return models.Invite{}, ErrCampaignNotFound
			}

			log.Error("failed to load campaign", sl.Err(err))
			return models.Invite{}, fmt.Errorf("%s: %w", op, err)
		}
		if c.BrandID != brandID {
			return models.Invite{}, ErrCampaignNotFound
		}
		if label == "" {
			label = c.Title
		}
	}

	brand, err := s.users.UserByID(ctx, brandID)
	if err != nil {
		log.Error("failed to load brand", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	inv, err := s.invites.SaveInvite(ctx, models.Invite{
		ID:            uuid.New(),
		BrandID:       brandID,
		InfluencerID:  influencer.ID,
		CampaignID:    in.CampaignID,
		CampaignLabel: label,
		Note:          strings.TrimSpace(in.Note),
		Status:        models.InvitePending,
		ExpiresAt:     s.now().Add(s.inviteTTL),
	})
	if err != nil {
		log.Error("failed to save invite", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	inv.BrandName = brand.Name
	inv.BrandHandle = brand.Username

	log.Info("invite sent",
		slog.String("invite_id", inv.ID.String()),
		slog.String("influencer_id", influencer.ID.String()),
	)

	return inv, nil
}

// Invites lists the influencer's invites. An empty status lists all of them.
func (s *Service) Invites(ctx context.Context, influencerID uuid.UUID, status models.InviteStatus) ([]models.Invite, error) {
	const op = "marketplace.Invites"

	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	list, err := s.invites.InvitesForInfluencer(ctx, influencerID, status)
	if err != nil {
		s.log.Error("failed to list invites", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// RespondInvite accepts or rejects a pending invite.
func (s *Service) RespondInvite(ctx context.Context, influencerID, inviteID uuid.UUID, status models.InviteStatus) (models.Invite, error) {
	const op = "marketplace.RespondInvite"

	log := s.log.With(
		slog.String("op", op),
		slog.String("invite_id", inviteID.String()),
	)

	if status != models.InviteAccepted && status != models.InviteRejected {
		return models.Invite{}, ErrInvalidStatus
	}

	inv, err := s.invites.RespondInvite(ctx, inviteID, influencerID, status, s.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInviteNotFound):
			return models.Invite{}, ErrInviteNotFound
		case errors.Is(err, storage.ErrInviteNotPending):
			log.Info("invite already answered or expired")
			return models.Invite{}, ErrInviteNotPending
		}

		log.Error("failed to respond to invite", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("invite answered", slog.String("status", string(inv.Status)))

	return inv, nil
}

// ExpireInvites moves overdue pending invites to expired.
func (s *Service) ExpireInvites(ctx context.Context) (int64, error) {
	const op = "marketplace.ExpireInvites"

	n, err := s.invites.ExpireInvites(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// RunInviteSweeper expires overdue invites every interval until ctx is done.
// A failed sweep is logged and retried on the next tick.
func (s *Service) RunInviteSweeper(ctx context.Context, interval time.Duration) error {
	const op = "marketplace.RunInviteSweeper"

	log := s.log.With(slog.String("op", op))

	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("invite sweeper started", slog.Duration("interval", interval))

	sweep := func() {
		n, err := s.ExpireInvites(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("sweep failed", sl.Err(err))
			}
			return
		}
		if n > 0 {
			log.Info("invites expired", slog.Int64("count", n))
		}
	}

	sweep()

	for {
		select {
		case <-ctx.Done():
			log.Info("invite sweeper stopped")
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}
