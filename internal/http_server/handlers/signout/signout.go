package signout

import (
	"log/slog"
	"net/http"

	"marketplace/internal/http_server/cookie"
	resp "marketplace/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// New clears the session cookie. Tokens are stateless, so there is nothing
// to revoke server-side.
func New(log *slog.Logger, cookies cookie.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signout.New"

		cookies.ClearSession(w)

		log.Info("user signed out",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		render.JSON(w, r, resp.OK())
	}
}
