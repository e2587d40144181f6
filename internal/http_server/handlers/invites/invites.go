// Package invites serves brand-to-influencer invites.
package invites

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

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service interface {
	CreateInvite(ctx context.Context, brandID uuid.UUID, in marketplace.InviteInput) (models.Invite, error)
	Invites(ctx context.Context, influencerID uuid.UUID, status models.InviteStatus) ([]models.Invite, error)
	RespondInvite(ctx context.Context, influencerID, inviteID uuid.UUID, status models.InviteStatus) (models.Invite, error)
}

type CreateRequest struct {
	InfluencerUsername string     `json:"influencerUsername" validate:"required,username"`
	CampaignID         *uuid.UUID `json:"campaignId"`
	CampaignLabel      string     `json:"campaignLabel" validate:"max=200"`
	Note               string     `json:"note" validate:"max=1000"`
}

type RespondRequest struct {
	Status models.InviteStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

type InviteResponse struct {
	resp.Response
	Message string        `json:"message,omitempty"`
	Invite  models.Invite `json:"invite"`
}

type ListResponse struct {
	resp.Response
	Invites []models.Invite `json:"invites"`
}

// Create godoc
// @Summary      Invite an influencer
// @Tags         invites
// @Accept       json
// @Produce      json
// @Param        body  body  CreateRequest  true  "Invite"
// @Success      201  {object}  InviteResponse
// @Failure      404  {object}  resp.Response  "Unknown influencer or campaign (field set)"
// @Router       /api/invites [post]
func Create(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.invites.Create"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		brandID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req CreateRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		inv, err := svc.CreateInvite(r.Context(), brandID, marketplace.InviteInput{
			InfluencerUsername: req.InfluencerUsername,
			CampaignID:         req.CampaignID,
			CampaignLabel:      req.CampaignLabel,
			Note:               req.Note,
		})
		if err != nil {
			switch {
			case errors.Is(err, marketplace.ErrInfluencerNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.FieldError("influencerUsername", "No influencer with this username"))
			case errors.Is(err, marketplace.ErrCampaignNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.FieldError("campaignId", "Campaign not found"))
			default:
				log.Error("failed to create invite", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Something went wrong"))
			}

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, InviteResponse{Response: resp.OK(), Invite: inv})
	}
}

// List godoc
// @Summary      Influencer invites
// @Tags         invites
// @Produce      json
// @Param        status  query  string  false  "pending, accepted, rejected or expired"
// @Success      200  {object}  ListResponse
// @Router       /api/discover/invites [get]
func List(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.invites.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		influencerID, ok := currentUser(w, r)
		if !ok {
			return
		}

		status := models.InviteStatus(r.URL.Query().Get("status"))

		list, err := svc.Invites(r.Context(), influencerID, status)
		if err != nil {
			if errors.Is(err, marketplace.ErrInvalidStatus) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.FieldError("status", "Unknown invite status"))

				return
			}

			log.Error("failed to list invites", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		if list == nil {
			list = []models.Invite{}
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Invites: list})
	}
}

// Respond godoc
// @Summary      Accept or reject an invite
// @Description  Only pending invites can be answered; anything else is 409.
// @Tags         invites
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Invite id"
// @Param        body  body  RespondRequest  true  "accepted or rejected"
// @Success      200  {object}  InviteResponse
// @Failure      404  {object}  resp.Response
// @Failure      409  {object}  resp.Response
// @Router       /api/discover/invites/{id}/respond [patch]
func Respond(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.invites.Respond"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		influencerID, ok := currentUser(w, r)
		if !ok {
			return
		}

		// ids are opaque to clients; one this service never issued matches nothing
		inviteID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Invite not found"))

			return
		}

		var req RespondRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		inv, err := svc.RespondInvite(r.Context(), influencerID, inviteID, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, marketplace.ErrInviteNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Invite not found"))
			case errors.Is(err, marketplace.ErrInviteNotPending):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("This invite has already been answered or has expired"))
			case errors.Is(err, marketplace.ErrInvalidStatus):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.FieldError("status", "Status must be accepted or rejected"))
			default:
				log.Error("failed to respond to invite", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Something went wrong"))
			}

			return
		}

		render.JSON(w, r, InviteResponse{
			Response: resp.OK(),
			Message:  RespondMessage(inv.Status),
			Invite:   inv,
		})
	}
}

// RespondMessage is the confirmation shown after answering an invite.
func RespondMessage(status models.InviteStatus) string {
	switch status {
	case models.InviteAccepted:
		return "Invite accepted."
	case models.InviteRejected:
		return "Invite rejected."
	}
	return ""
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
