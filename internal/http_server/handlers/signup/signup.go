// Package signup serves the email signup flow: request a code, resend it and
// verify it.
package signup

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

// RestartPath is where clients go when their reservation is gone.
const RestartPath = "/signup"

type Service interface {
	RequestSignupOTP(ctx context.Context, req auth.SignupRequest) (models.Reservation, error)
	ResendSignupOTP(ctx context.Context, email string) (models.Reservation, error)
	VerifySignupOTP(ctx context.Context, email, code string) (models.User, string, error)
	SessionTTL() time.Duration
}

type RequestOTPRequest struct {
	Role     models.Role `json:"role" validate:"required,role"`
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Username string      `json:"username" validate:"required,username"`
	Password string      `json:"password" validate:"required,strongpassword"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// ReservationResponse is what the client persists between the signup screens.
type ReservationResponse struct {
	resp.Response
	Email                string      `json:"email"`
	Username             string      `json:"username"`
	Role                 models.Role `json:"role"`
	ReservationExpiresAt time.Time   `json:"reservationExpiresAt"`
	OTPExpiresAt         time.Time   `json:"otpExpiresAt"`
	Cooldown             int         `json:"cooldown"`
}

type VerifyResponse struct {
	resp.Response
	User models.PublicUser `json:"user"`
}

// RequestOTP godoc
// @Summary      Start signup
// @Description  Reserves email and username for a short time and mails a 6-digit code.
// @Tags         signup
// @Accept       json
// @Produce      json
// @Param        body  body  RequestOTPRequest  true  "Signup details"
// @Success      200  {object}  ReservationResponse
// @Failure      409  {object}  resp.Response  "Email or username taken (field set)"
// @Failure      429  {object}  resp.Response  "Cooldown active (retryAfter, lastOtpSentAt)"
// @Router       /api/auth/signup/request-otp [post]
func RequestOTP(log *slog.Logger, validate *validator.Validate, svc Service, cooldown time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.RequestOTP"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req RequestOTPRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		res, err := svc.RequestSignupOTP(r.Context(), auth.SignupRequest{
			Role:     req.Role,
			Name:     req.Name,
			Email:    req.Email,
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		log.Info("signup code sent")

		render.JSON(w, r, reservationResponse(res, cooldown))
	}
}

// ResendOTP issues a fresh code for a live reservation.
func ResendOTP(log *slog.Logger, validate *validator.Validate, svc Service, cooldown time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.ResendOTP"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ResendOTPRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		res, err := svc.ResendSignupOTP(r.Context(), req.Email)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		log.Info("signup code resent")

		render.JSON(w, r, reservationResponse(res, cooldown))
	}
}

// VerifyOTP godoc
// @Summary      Verify signup code
// @Description  Creates the account and sets the auth_token cookie. Expired or
// @Description  exhausted reservations answer with redirectTo "/signup".
// @Tags         signup
// @Accept       json
// @Produce      json
// @Param        body  body  VerifyOTPRequest  true  "Email and code"
// @Success      201  {object}  VerifyResponse
// @Failure      400  {object}  resp.Response  "Invalid or expired code (field otp)"
// @Failure      410  {object}  resp.Response  "Reservation gone (redirectTo)"
// @Router       /api/auth/signup/verify-otp [post]
func VerifyOTP(log *slog.Logger, validate *validator.Validate, svc Service, cookies cookie.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.VerifyOTP"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req VerifyOTPRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		user, token, err := svc.VerifySignupOTP(r.Context(), req.Email, req.OTP)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		cookies.SetSession(w, token, svc.SessionTTL())

		log.Info("signup verified", slog.String("uid", user.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, VerifyResponse{
			Response: resp.OK(),
			User:     user.Public(),
		})
	}
}

func reservationResponse(res models.Reservation, cooldown time.Duration) ReservationResponse {
	sentAt := res.LastOTPSentAt

	out := ReservationResponse{
		Response:             resp.OK(),
		Email:                res.Email,
		Username:             res.Username,
		Role:                 res.Role,
		ReservationExpiresAt: res.ExpiresAt,
		OTPExpiresAt:         res.OTPExpiresAt,
		Cooldown:             resp.Seconds(cooldown),
	}
	out.LastOTPSentAt = &sentAt

	return out
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

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var cd *auth.CooldownError

	switch {
	case errors.As(err, &cd):
		var last *time.Time
		if !cd.LastSentAt.IsZero() {
			last = &cd.LastSentAt
		}
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, resp.RateLimited(cd.RetryAfter, last, "Please wait before requesting another code"))

	case errors.Is(err, auth.ErrEmailTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp.FieldError("email", "An account with this email already exists"))

	case errors.Is(err, auth.ErrUsernameTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp.FieldError("username", "This username is already taken"))

	case errors.Is(err, auth.ErrInvalidUsername):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("username", "Username may contain only lowercase letters, digits, dots and underscores"))

	case errors.Is(err, auth.ErrPasswordTooLong):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("password", "Password must be at most 72 bytes"))

	case errors.Is(err, auth.ErrInvalidRole):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("role", "Choose brand, influencer or manager"))

	case errors.Is(err, auth.ErrReservationExpired):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, resp.Redirect(RestartPath, "Your signup session expired, please start again"))

	case errors.Is(err, auth.ErrTooManyAttempts):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, resp.Redirect(RestartPath, "Too many incorrect codes, please start again"))

	case errors.Is(err, auth.ErrInvalidOTP):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("otp", "Invalid verification code"))

	case errors.Is(err, auth.ErrOTPExpired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("otp", "This code has expired, request a new one"))

	default:
		log.Error("signup failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Something went wrong"))
	}
}
