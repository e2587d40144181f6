package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	resp "marketplace/internal/lib/api/response"

	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

func SignIn() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func RequestOTP() func(http.Handler) http.Handler {
	return limitByIP(10, time.Hour)
}

func VerifyOTP() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func ForgotPassword() func(http.Handler) http.Handler {
	return limitByIP(5, 15*time.Minute)
}

func ResetPassword() func(http.Handler) http.Handler {
	return limitByIP(10, 15*time.Minute)
}

func CheckUsername() func(http.Handler) http.Handler {
	return limitByIP(120, time.Minute)
}

func OAuth() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

// limitByIP answers over-limit requests with 429 and errorIn "rate-limited",
// so reset-password clients can land on their rate-limited result view.
func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			retryAfter := window
			if s, err := strconv.Atoi(w.Header().Get("Retry-After")); err == nil && s > 0 {
				retryAfter = time.Duration(s) * time.Second
			}

			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, resp.RateLimited(retryAfter, nil, "Too many requests, please try again later"))
		}),
	)
}
