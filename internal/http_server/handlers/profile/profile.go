// Package profile serves the signed-in user's profile and the role-specific
// edit endpoints.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

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
	Profile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	UpdateBrandProfile(ctx context.Context, userID uuid.UUID, name string, details models.BrandDetails) (models.Profile, error)
	UpdateInfluencerProfile(ctx context.Context, userID uuid.UUID, name string, details models.InfluencerDetails) (models.Profile, error)
}

type Response struct {
	resp.Response
	Profile models.Profile `json:"profile"`
}

type BrandRequest struct {
	Name         string              `json:"name" validate:"omitempty,max=100"`
	BrandDetails BrandDetailsRequest `json:"brandDetails"`
}

type BrandDetailsRequest struct {
	CompanyName string   `json:"companyName" validate:"max=200"`
	Website     string   `json:"website" validate:"omitempty,url"`
	Industry    string   `json:"industry" validate:"max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Location    string   `json:"location" validate:"max=200"`
	LogoURL     string   `json:"logoUrl" validate:"omitempty,url"`
	Socials     []string `json:"socials" validate:"max=10,dive,url"`
}

type InfluencerRequest struct {
	Name              string                   `json:"name" validate:"omitempty,max=100"`
	InfluencerDetails InfluencerDetailsRequest `json:"influencerDetails"`
}

type InfluencerDetailsRequest struct {
	Bio            string            `json:"bio" validate:"max=2000"`
	Niches         []string          `json:"niches" validate:"max=20,dive,min=1,max=50"`
	Location       string            `json:"location" validate:"max=200"`
	AvatarURL      string            `json:"avatarUrl" validate:"omitempty,url"`
	Platforms      map[string]string `json:"platforms" validate:"max=10"`
	FollowerCount  int64             `json:"followerCount" validate:"min=0"`
	EngagementRate float64           `json:"engagementRate" validate:"min=0,max=100"`
}

// Get godoc
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  resp.Response
// @Failure      404  {object}  resp.Response
// @Router       /api/profile/me [get]
func Get(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid, ok := currentUser(w, r)
		if !ok {
			return
		}

		p, err := svc.Profile(r.Context(), uid)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		render.JSON(w, r, Response{Response: resp.OK(), Profile: p})
	}
}

// UpdateBrand replaces the brand details wholesale.
func UpdateBrand(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.UpdateBrand"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req BrandRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		d := req.BrandDetails
		p, err := svc.UpdateBrandProfile(r.Context(), uid, req.Name, models.BrandDetails{
			CompanyName: d.CompanyName,
			Website:     d.Website,
			Industry:    d.Industry,
			Description: d.Description,
			Location:    d.Location,
			LogoURL:     d.LogoURL,
			Socials:     d.Socials,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		render.JSON(w, r, Response{Response: resp.OK(), Profile: p})
	}
}

// UpdateInfluencer replaces the influencer details wholesale.
func UpdateInfluencer(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.UpdateInfluencer"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req InfluencerRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		d := req.InfluencerDetails
		p, err := svc.UpdateInfluencerProfile(r.Context(), uid, req.Name, models.InfluencerDetails{
			Bio:            d.Bio,
			Niches:         d.Niches,
			Location:       d.Location,
			AvatarURL:      d.AvatarURL,
			Platforms:      d.Platforms,
			FollowerCount:  d.FollowerCount,
			EngagementRate: d.EngagementRate,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		render.JSON(w, r, Response{Response: resp.OK(), Profile: p})
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	uid, ok := authn.UserID(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, resp.Error("Unauthorized"))
	}
	return uid, ok
}

func decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return false
	}

	if err := validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if errors.Is(err, marketplace.ErrProfileNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Profile not found"))

		return
	}

	log.Error("profile request failed", sl.Err(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error("Something went wrong"))
}
