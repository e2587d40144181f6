package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	resp "marketplace/internal/lib/api/response"
	sl "marketplace/internal/lib/logger/sl"

	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Response struct {
	resp.Response
	Checks map[string]string `json:"checks"`
}

// New pings every dependency concurrently. Any failure answers 503.
func New(log *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string, len(deps))
			g      errgroup.Group
		)

		for name, dep := range deps {
			g.Go(func() error {
				status := "ok"
				err := dep.Ping(ctx)
				if err != nil {
					status = "unavailable"
					log.Warn("dependency unhealthy", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
				}

				mu.Lock()
				checks[name] = status
				mu.Unlock()

				return err
			})
		}

		if err := g.Wait(); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			out := Response{Response: resp.Error("Service unavailable"), Checks: checks}
			render.JSON(w, r, out)

			return
		}

		render.JSON(w, r, Response{Response: resp.OK(), Checks: checks})
	}
}
