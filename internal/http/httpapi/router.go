package httpapi

import (
	"net/http"
	"time"

	"sitegen/internal/http/handlers"
	"sitegen/internal/infra"
	appmw "sitegen/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures the router.
type Options struct {
	// APIToken guards every route except health and docs. Empty disables auth.
	APIToken string
	// MutationLimit caps POST/DELETE calls per client and minute.
	MutationLimit int
	Logger        infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(opts.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/assets/*", app.DownloadAsset)

	r.Group(func(r chi.Router) {
		if opts.APIToken != "" {
			r.Use(appmw.BearerToken(opts.APIToken))
		}

		r.Get("/v1/generation", app.Progress)
		r.Get("/v1/content/failed", app.FailedSpecs)
		r.Get("/v1/images/queue", app.QueueStatistics)

		r.Group(func(r chi.Router) {
			if opts.MutationLimit > 0 {
				r.Use(appmw.RateLimit(opts.MutationLimit, time.Minute))
			}
			r.Delete("/v1/generation", app.Cancel)
			r.Post("/v1/generation/start", app.StartGeneration)
			r.Post("/v1/generation/pause", app.Pause)
			r.Post("/v1/generation/resume", app.Resume)
			r.Post("/v1/content/generate", app.GenerateAll)
			r.Post("/v1/content/retry", app.RetryContent)
			r.Post("/v1/images/process", app.ProcessImages)
			r.Post("/v1/images/retry", app.RetryImages)
		})
	})

	return r
}
