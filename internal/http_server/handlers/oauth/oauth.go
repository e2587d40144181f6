package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
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

const (
	cookiePath = "/api/auth"
	stateTTL   = 10 * time.Minute

	// SignInPath is where the browser lands when a social flow cannot continue.
	SignInPath = "/signin"
)

type Service interface {
	OAuthLogin(ctx context.Context, identity auth.OAuthIdentity) (auth.OAuthResult, error)
	PendingOAuthSession(ctx context.Context, id string) (models.OAuthSession, error)
	CompleteSocialSignup(ctx context.Context, sessionID, provider string, role models.Role, username string) (models.User, string, error)
	SessionTTL() time.Duration
}

// IdentityProvider is satisfied by *Provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identity(ctx context.Context, code string) (auth.OAuthIdentity, error)
	ProviderName() string
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

func (p *Provider) ProviderName() string {
	return p.Name
}

// Login redirects the browser to the provider's consent page.
func Login(log *slog.Logger, p IdentityProvider, cookies cookie.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Login"

		log := log.With(
			slog.String("op", op),
			slog.String("provider", p.ProviderName()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state, err := newState()
		if err != nil {
			log.Error("failed to generate state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		cookies.SetHTTPOnly(w, cookie.OAuthStateName, state, cookiePath, stateTTL)

		http.Redirect(w, r, p.AuthCodeURL(state), http.StatusTemporaryRedirect)
	}
}

// Callback finishes the provider redirect. Known users get a session cookie and
// land on the dashboard; first-time users are sent to complete their signup.
func Callback(
	log *slog.Logger,
	p IdentityProvider,
	svc Service,
	cookies cookie.Settings,
	frontendURL string,
	pendingTTL time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Callback"

		log := log.With(
			slog.String("op", op),
			slog.String("provider", p.ProviderName()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		fail := func(reason string) {
			http.Redirect(w, r, frontendURL+SignInPath+"?error="+url.QueryEscape(reason), http.StatusTemporaryRedirect)
		}

		state := cookie.Value(r, cookie.OAuthStateName)
		cookies.Clear(w, cookie.OAuthStateName, cookiePath)

		query := r.URL.Query()
		if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(query.Get("state"))) != 1 {
			log.Warn("oauth state mismatch")
			fail("oauth")

			return
		}

		if e := query.Get("error"); e != "" {
			log.Info("provider returned error", slog.String("error", e))
			fail("oauth")

			return
		}

		identity, err := p.Identity(r.Context(), query.Get("code"))
		if err != nil {
			log.Error("failed to fetch identity", sl.Err(err))
			fail("oauth")

			return
		}

		res, err := svc.OAuthLogin(r.Context(), identity)
		if err != nil {
			if errors.Is(err, auth.ErrOAuthEmailMissing) {
				fail("oauth_email")
				return
			}

			log.Error("oauth login failed", sl.Err(err))
			fail("oauth")

			return
		}

		if res.Pending() {
			cookies.SetHTTPOnly(w, cookie.OAuthSessionName, res.SessionID, cookiePath, pendingTTL)

			http.Redirect(w, r, frontendURL+"/complete-signup?provider="+url.QueryEscape(p.ProviderName()), http.StatusTemporaryRedirect)

			return
		}

		cookies.SetSession(w, res.Token, svc.SessionTTL())

		http.Redirect(w, r, frontendURL+"/dashboard", http.StatusTemporaryRedirect)
	}
}

type SessionResponse struct {
	resp.Response
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Session godoc
// @Summary      Pending social signup
// @Description  Returns the identity parked by the provider callback. Expired sessions answer 410 with redirectTo "/signin".
// @Tags         oauth
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Failure      410  {object}  resp.Response
// @Router       /api/auth/get-oauth-session [get]
func Session(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Session"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, err := svc.PendingOAuthSession(r.Context(), cookie.Value(r, cookie.OAuthSessionName))
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		render.JSON(w, r, SessionResponse{
			Response: resp.OK(),
			Email:    s.Email,
			Name:     s.Name,
			Provider: s.Provider,
		})
	}
}

type CompleteRequest struct {
	Role     models.Role `json:"role" validate:"required,role"`
	Username string      `json:"username" validate:"required,username"`
}

type CompleteResponse struct {
	resp.Response
	User models.PublicUser `json:"user"`
}

// Complete creates the account for the pending session. An empty provider
// accepts sessions from any provider.
func Complete(
	log *slog.Logger,
	validate *validator.Validate,
	svc Service,
	cookies cookie.Settings,
	provider string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.Complete"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CompleteRequest
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

		sessionID := cookie.Value(r, cookie.OAuthSessionName)

		user, token, err := svc.CompleteSocialSignup(r.Context(), sessionID, provider, req.Role, req.Username)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		cookies.Clear(w, cookie.OAuthSessionName, cookiePath)
		cookies.SetSession(w, token, svc.SessionTTL())

		log.Info("social signup completed", slog.String("uid", user.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CompleteResponse{
			Response: resp.OK(),
			User:     user.Public(),
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrOAuthSessionExpired):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, resp.Redirect(SignInPath, "Your sign-in session expired, please try again"))

	case errors.Is(err, auth.ErrProviderMismatch):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("This signup was started with a different provider"))

	case errors.Is(err, auth.ErrUsernameTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp.FieldError("username", "This username is already taken"))

	case errors.Is(err, auth.ErrEmailTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp.FieldError("email", "An account with this email already exists"))

	case errors.Is(err, auth.ErrInvalidUsername):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("username", "Username may contain only lowercase letters, digits, dots and underscores"))

	case errors.Is(err, auth.ErrInvalidRole):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.FieldError("role", "Choose brand, influencer or manager"))

	default:
		log.Error("social signup failed", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Something went wrong"))
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
