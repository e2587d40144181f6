package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"

	"github.com/google/uuid"
)

type CampaignInput struct {
	Title       string
	Description string
	Budget      int64
	Platforms   []string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      models.CampaignStatus
	Extra       json.RawMessage
}

func (s *Service) CreateCampaign(ctx context.Context, brandID uuid.UUID, in CampaignInput) (models.Campaign, error) {
	const op = "marketplace.CreateCampaign"

	log := s.log.With(
		slog.String("op", op),
		slog.String("brand_id", brandID.String()),
	)

	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return models.Campaign{}, ErrInvalidDates
	}

	status := in.Status
	if status == "" {
		status = models.CampaignDraft
	}

	c, err := s.campaigns.SaveCampaign(ctx, models.Campaign{
		ID:          uuid.New(),
		BrandID:     brandID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Budget:      in.Budget,
		Platforms:   in.Platforms,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      status,
		Extra:       in.Extra,
	})
	if err != nil {
		log.Error("failed to save campaign", sl.Err(err))
		return models.Campaign{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("campaign created", slog.String("campaign_id", c.ID.String()))

	return c, nil
}

func (s *Service) Campaigns(ctx context.Context, brandID uuid.UUID) ([]models.Campaign, error) {
	const op = "marketplace.Campaigns"

	list, err := s.campaigns.CampaignsByBrand(ctx, brandID)
	if err != nil {
		s.log.Error("failed to list campaigns", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}
