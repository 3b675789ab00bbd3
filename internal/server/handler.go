// Package server combines the JSON API, the web interface and the metrics
// endpoint into the single handler the HTTP server runs.
package server

import (
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/api"
	"github.com/mcoot/portfolio-leaderboard/internal/factory"
	"github.com/mcoot/portfolio-leaderboard/internal/web"
)

// MetricsEndpoint exposes a metrics handler at Path
type MetricsEndpoint struct {
	Path    string
	Handler http.Handler
}

// NewHandler routes /api/ to the API, the metrics path to metrics and
// everything else to the web interface. metrics may be nil.
func NewHandler(app *factory.App, metrics *MetricsEndpoint) http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:      app.Logger,
		Submission:  app.Submission,
		Leaderboard: app.Leaderboard,
		Metrics:     app.Metrics,
		Store:       app.Store,
	})

	webRouter := web.NewRouter(web.RouterConfig{
		Logger:      app.Logger,
		Submission:  app.Submission,
		Leaderboard: app.Leaderboard,
		Hub:         app.Hub,
		Metrics:     app.Metrics,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	if metrics != nil {
		mux.Handle(metrics.Path, metrics.Handler)
	}
	mux.Handle("/", webRouter)
	return mux
}
