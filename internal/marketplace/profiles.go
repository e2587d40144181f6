package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"
	"marketplace/internal/storage"

	"github.com/google/uuid"
)

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	const op = "marketplace.Profile"

	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Profile{}, ErrProfileNotFound
		}

		s.log.Error("failed to load profile", slog.String("op", op), sl.Err(err))
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// UpdateBrandProfile replaces the brand sub-document. An empty name keeps the
// current display name.
func (s *Service) UpdateBrandProfile(ctx context.Context, userID uuid.UUID, name string, details models.BrandDetails) (models.Profile, error) {
	const op = "marketplace.UpdateBrandProfile"

	return s.updateProfile(ctx, op, userID, name, func(p *models.Profile) {
		p.BrandDetails = &details
	})
}

func (s *Service) UpdateInfluencerProfile(ctx context.Context, userID uuid.UUID, name string, details models.InfluencerDetails) (models.Profile, error) {
	const op = "marketplace.UpdateInfluencerProfile"

	return s.updateProfile(ctx, op, userID, name, func(p *models.Profile) {
		p.InfluencerDetails = &details
	})
}

func (s *Service) updateProfile(
	ctx context.Context,
	op string,
	userID uuid.UUID,
	name string,
	apply func(p *models.Profile),
) (models.Profile, error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", userID.String()),
	)

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}

	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	apply(&p)

	if err := s.profiles.UpdateProfile(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Profile{}, ErrProfileNotFound
		}

		log.Error("failed to update profile", sl.Err(err))
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	p.UpdatedAt = s.now()

	log.Info("profile updated")

	return p, nil
}
