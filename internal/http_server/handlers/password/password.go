// Package password serves the forgot/reset password endpoints.
package password

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/auth"
	resp "marketplace/internal/lib/api/response"
	sl "marketplace/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Result discriminators sent in errorIn.
const (
	ErrorInInvalidToken = "invalid-token"
	ErrorInExpired      = "expired"
	ErrorInUserNotFound = "user-not-found"
)

type Service interface {
	ForgotPassword(ctx context.Context, email string) (time.Duration, error)
	ResendPasswordResetEmail(ctx context.Context, email string) (time.Duration, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

// CooldownResponse tells the client how long to disable the resend button.
type CooldownResponse struct {
	resp.Response
	Message  string `json:"message"`
	Cooldown int    `json:"cooldown"`
}

const sentMessage = "If an account exists for that email, a reset link is on its way."

// Forgot godoc
// @Summary      Request a password reset link
// @Description  Always answers 200 for well-formed emails so accounts cannot be enumerated.
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body  EmailRequest  true  "Account email"
// @Success      200  {object}  CooldownResponse
// @Failure      429  {object}  resp.Response  "Cooldown active (retryAfter)"
// @Router       /api/auth/forgot-password [post]
func Forgot(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return sendLink(log, validate, "handlers.password.Forgot", svc.ForgotPassword)
}

// ResendResetEmail sends another link with the longer resend cooldown.
func ResendResetEmail(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return sendLink(log, validate, "handlers.password.ResendResetEmail", svc.ResendPasswordResetEmail)
}

func sendLink(
	log *slog.Logger,
	validate *validator.Validate,
	op string,
	send func(ctx context.Context, email string) (time.Duration, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req EmailRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		cooldown, err := send(r.Context(), req.Email)
		if err != nil {
			var cd *auth.CooldownError
			if errors.As(err, &cd) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.RateLimited(cd.RetryAfter, nil, "Please wait before requesting another link"))

				return
			}

			log.Error("failed to send reset link", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		render.JSON(w, r, CooldownResponse{
			Response: resp.OK(),
			Message:  sentMessage,
			Cooldown: resp.Seconds(cooldown),
		})
	}
}

// Reset godoc
// @Summary      Reset password
// @Description  Consumes a single-use token. Failures carry errorIn: invalid-token,
// @Description  expired, user-not-found or rate-limited.
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body  ResetRequest  true  "Token and new password"
// @Success      200  {object}  resp.Response
// @Router       /api/auth/reset-password [post]
func Reset(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.password.Reset"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ResetRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		err := svc.ResetPassword(r.Context(), req.Token, req.NewPassword)
		switch {
		case err == nil:
			log.Info("password reset")
			render.JSON(w, r, resp.OK())

		case errors.Is(err, auth.ErrInvalidResetToken):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ErrorIn(ErrorInInvalidToken, "This reset link is invalid"))

		case errors.Is(err, auth.ErrResetTokenExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, resp.ErrorIn(ErrorInExpired, "This reset link has expired"))

		case errors.Is(err, auth.ErrPasswordTooLong):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.FieldError("newPassword", "Password must be at most 72 bytes"))

		case errors.Is(err, auth.ErrUserNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.ErrorIn(ErrorInUserNotFound, "No account matches this reset link"))

		default:
			log.Error("failed to reset password", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))
		}
	}
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

		log.Info("invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}
