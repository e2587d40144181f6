// Package marketplace holds the role dashboards' backend: profiles, campaigns
// and brand-to-influencer invites.
package marketplace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"marketplace/internal/models"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrInfluencerNotFound = errors.New("influencer not found")
	ErrInviteNotFound     = errors.New("invite not found")
	ErrInviteNotPending   = errors.New("invite is no longer pending")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidDates       = errors.New("end date is before start date")
)

type UserStorage interface {
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

type ProfileStorage interface {
	Profile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	UpdateProfile(ctx context.Context, p models.Profile) error
}

type CampaignStorage interface {
	SaveCampaign(ctx context.Context, c models.Campaign) (models.Campaign, error)
	Campaign(ctx context.Context, id uuid.UUID) (models.Campaign, error)
	CampaignsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.Campaign, error)
}

type InviteStorage interface {
	SaveInvite(ctx context.Context, inv models.Invite) (models.Invite, error)
	InvitesForInfluencer(ctx context.Context, influencerID uuid.UUID, status models.InviteStatus) ([]models.Invite, error)
	RespondInvite(ctx context.Context, id, influencerID uuid.UUID, status models.InviteStatus, now time.Time) (models.Invite, error)
	ExpireInvites(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	log       *slog.Logger
	users     UserStorage
	profiles  ProfileStorage
	campaigns CampaignStorage
	invites   InviteStorage
	inviteTTL time.Duration

	now func() time.Time
}

func New(
	log *slog.Logger,
	users UserStorage,
	profiles ProfileStorage,
	campaigns CampaignStorage,
	invites InviteStorage,
	inviteTTL time.Duration,
) *Service {
	return &Service{
		log:       log,
		users:     users,
		profiles:  profiles,
		campaigns: campaigns,
		invites:   invites,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}
