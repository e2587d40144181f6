package checkUsername

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"marketplace/internal/auth"
	resp "marketplace/internal/lib/api/response"
	sl "marketplace/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type UsernameChecker interface {
	CheckUsername(ctx context.Context, raw string) (auth.UsernameAvailability, error)
}

type Response struct {
	resp.Response
	Username    string   `json:"username"`
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions"`
}

// New godoc
// @Summary      Check username availability
// @Description  Returns up to three free alternatives when the handle is taken or malformed.
// @Tags         signup
// @Produce      json
// @Param        username  query  string  true  "Desired username"
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Router       /api/auth/check-username [get]
func New(log *slog.Logger, checker UsernameChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.checkUsername.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		raw := strings.TrimSpace(r.URL.Query().Get("username"))
		if raw == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.FieldError("username", "field username is a required field"))

			return
		}

		res, err := checker.CheckUsername(r.Context(), raw)
		if err != nil {
			log.Error("failed to check username", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Something went wrong"))

			return
		}

		suggestions := res.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Username:    res.Username,
			Available:   res.Available,
			Suggestions: suggestions,
		})
	}
}
