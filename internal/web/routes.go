package web

import (
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/web/handlers"
	"github.com/kozaktomas/backdrop/internal/web/static"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	processHandler := handlers.NewProcessHandler(s.pipeline)
	outputsHandler := handlers.NewOutputsHandler(s.pipeline.Storage())
	runsHandler := handlers.NewRunsHandler(s.recorder)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)
		r.Post("/process", processHandler.Process)
		r.Get("/runs", runsHandler.List)
	})

	// processed.png and final_output.png
	s.router.Get("/outputs/{name}", outputsHandler.Get)

	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the embedded single-page frontend
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		name := r.URL.Path
		data, err := static.Asset(name)
		if err != nil {
			// unknown paths fall back to the app shell
			name = static.IndexFile
			data, err = static.Asset(name)
		}
		if err == nil {
			w.Header().Set("Content-Type", static.ContentType(name))
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	// Fallback: placeholder page if no frontend is embedded
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	title := html.EscapeString(constants.AppTitle)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>` + title + `</title></head>
<body>
    <h1>` + title + `</h1>
    <p>Frontend assets are missing. The API is available at <a href="/api/v1/health">/api/v1/health</a>.</p>
</body>
</html>`))
}
