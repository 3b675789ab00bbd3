package handler

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

// isHTMX reports whether the request was issued by htmx
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// render writes an HTML response, logging render failures
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, components ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, c := range components {
		if err := c.Render(r.Context(), w); err != nil {
			logger.Error("failed to render response",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}
