package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "marketplace/internal/lib/api/response"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/marketplace"
	"marketplace/internal/middleware/authn"
	"marketplace/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service interface {
	CreateCampaign(ctx context.Context, brandID uuid.UUID, in marketplace.CampaignInput) (models.Campaign, error)
	Campaigns(ctx context.Context, brandID uuid.UUID) ([]models.Campaign, error)
}

type Request struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=5000"`
	Budget      int64                 `json:"budget" validate:"min=0"`
	Platforms   []string              `json:"platforms" validate:"max=10,dive,min=1,max=50"`
	StartDate   *time.Time            `json:"startDate"`
	EndDate     *time.Time            `json:"endDate"`
	Status      models.CampaignStatus `json:"status" validate:"omitempty,oneof=draft active closed"`
	Extra       json.RawMessage       `json:"extra"`
}

type CampaignResponse struct {
	resp.Response
	Campaign models.Campaign `json:"campaign"`
}

type ListResponse struct {
	resp.Response
	Campaigns []models.Campaign `json:"campaigns"`
}

// Create godoc
// @Summary      Create campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        body  body  Request  true  "Campaign"
// @Success      201  {object}  CampaignResponse
// @Failure      400  {object}  resp.Response
// @Failure      403  {object}  resp.Response
// @Router       /api/campaigns [post]
func Create(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.campaigns.Create"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		brandID, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		c, err := svc.CreateCampaign(r.Context(), brandID, marketplace.CampaignInput{
			Title:       req.Title,
			Description: req.Description,
			Budget:      req.Budget,
			Platforms:   req.Platforms,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Status:      req.Status,
			Extra:       req.Extra,
		})
		if err != nil {
			if errors.Is(err, marketplace.ErrInvalidDates) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.FieldError("endDate", "End date must be after the start date"))

				return
			}

			log.Error("failed to create campaign", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CampaignResponse{Response: resp.OK(), Campaign: c})
	}
}

// List returns the brand's own campaigns, newest first.
func List(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.campaigns.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		brandID, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))
			return
		}

		list, err := svc.Campaigns(r.Context(), brandID)
		if err != nil {
			log.Error("failed to list campaigns", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		if list == nil {
			list = []models.Campaign{}
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Campaigns: list})
	}
}
