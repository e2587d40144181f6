// Package router assembles the API's chi routes and middleware.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/http_server/cookie"
	checkUsername "marketplace/internal/http_server/handlers/check_username"
	"marketplace/internal/http_server/handlers/campaigns"
	"marketplace/internal/http_server/handlers/health"
	"marketplace/internal/http_server/handlers/invites"
	"marketplace/internal/http_server/handlers/oauth"
	"marketplace/internal/http_server/handlers/password"
	"marketplace/internal/http_server/handlers/profile"
	"marketplace/internal/http_server/handlers/signin"
	"marketplace/internal/http_server/handlers/signout"
	"marketplace/internal/http_server/handlers/signup"
	"marketplace/internal/middleware/authn"
	"marketplace/internal/middleware/metrics"
	"marketplace/internal/middleware/ratelimit"
	"marketplace/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

// AuthService is everything the auth endpoints need.
type AuthService interface {
	signin.UserSignIner
	signup.Service
	password.Service
	checkUsername.UsernameChecker
	oauth.Service
}

type MarketplaceService interface {
	profile.Service
	campaigns.Service
	invites.Service
}

type Options struct {
	JWTSecret       string
	Cookies         cookie.Settings
	FrontendURL     string
	OTPCooldown     time.Duration
	OAuthSessionTTL time.Duration

	// Providers are the enabled social sign-in providers.
	Providers []oauth.IdentityProvider
	Health    map[string]health.Pinger
	Metrics   *metrics.Metrics
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authSvc AuthService,
	market MarketplaceService,
	opts Options,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/healthz", health.New(log, opts.Health))

	otpLimit := ratelimit.RequestOTP()
	forgotLimit := ratelimit.ForgotPassword()
	oauthLimit := ratelimit.OAuth()

	r.Route("/api/auth", func(r chi.Router) {
		r.With(ratelimit.SignIn()).Post("/signin", signin.New(log, validate, authSvc, opts.Cookies))
		r.Post("/signout", signout.New(log, opts.Cookies))
		r.With(ratelimit.CheckUsername()).Get("/check-username", checkUsername.New(log, authSvc))

		r.With(otpLimit).Post("/signup/request-otp", signup.RequestOTP(log, validate, authSvc, opts.OTPCooldown))
		r.With(otpLimit).Post("/signup/resend-otp", signup.ResendOTP(log, validate, authSvc, opts.OTPCooldown))
		r.With(ratelimit.VerifyOTP()).Post("/signup/verify-otp", signup.VerifyOTP(log, validate, authSvc, opts.Cookies))

		r.With(forgotLimit).Post("/forgot-password", password.Forgot(log, validate, authSvc))
		r.With(forgotLimit).Post("/resend-password-reset-email", password.ResendResetEmail(log, validate, authSvc))
		r.With(ratelimit.ResetPassword()).Post("/reset-password", password.Reset(log, validate, authSvc))

		for _, p := range opts.Providers {
			name := p.ProviderName()
			r.With(oauthLimit).Get("/"+name, oauth.Login(log, p, opts.Cookies))
			r.With(oauthLimit).Get("/"+name+"/callback", oauth.Callback(log, p, authSvc, opts.Cookies, opts.FrontendURL, opts.OAuthSessionTTL))
		}

		r.Get("/get-oauth-session", oauth.Session(log, authSvc))
		r.Post("/complete-social-auth", oauth.Complete(log, validate, authSvc, opts.Cookies, ""))
		r.Post("/complete-google-signup", oauth.Complete(log, validate, authSvc, opts.Cookies, auth.ProviderGoogle))
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.Authenticate(log, opts.JWTSecret, opts.Cookies.SessionName()))

		r.Get("/api/profile/me", profile.Get(log, market))

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireRole(models.RoleBrand))

			r.Get("/api/profile/brand", profile.Get(log, market))
			r.Patch("/api/profile/brand", profile.UpdateBrand(log, validate, market))
			r.Post("/api/campaigns", campaigns.Create(log, validate, market))
			r.Get("/api/campaigns", campaigns.List(log, market))
			r.Post("/api/invites", invites.Create(log, validate, market))
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireRole(models.RoleInfluencer))

			r.Get("/api/profile/influencer", profile.Get(log, market))
			r.Patch("/api/profile/influencer", profile.UpdateInfluencer(log, validate, market))
			r.Get("/api/discover/invites", invites.List(log, market))
			r.Patch("/api/discover/invites/{id}/respond", invites.Respond(log, validate, market))
		})
	})

	return r
}
