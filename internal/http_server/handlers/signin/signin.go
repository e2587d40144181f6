package signin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/http_server/cookie"
	resp "marketplace/internal/lib/api/response"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	User models.PublicUser `json:"user"`
}

type UserSignIner interface {
	SignIn(ctx context.Context, email, password string) (models.User, string, error)
	SessionTTL() time.Duration
}

// New godoc
// @Summary      Sign in
// @Description  Checks email and password and sets the auth_token session cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  Request  true  "Email and password"
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response  "Validation error"
// @Failure      401  {object}  resp.Response  "Invalid email or password"
// @Failure      429  {object}  resp.Response  "Too many attempts"
// @Router       /api/auth/signin [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	svc UserSignIner,
	cookies cookie.Settings,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signin.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

			log.Info("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, token, err := svc.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid email or password"))

				return
			}

			log.Error("failed to sign in", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		cookies.SetSession(w, token, svc.SessionTTL())

		log.Info("user signed in")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.Public(),
		})
	}
}
