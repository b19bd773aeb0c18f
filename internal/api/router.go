package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/ping", PingHandler)

	r.Post("/detect", app.DetectHandler)

	r.Get("/alerts", app.AlertsHandler)
	r.Post("/alerts/mark-read", app.MarkAlertsReadHandler)
	r.Get("/logs", app.LogsHandler)
	r.Get("/detections", app.DetectionsHandler)
	r.Get("/evidence/{filename}", app.EvidenceHandler)

	r.Post("/auth/register", app.RegisterHandler)
	r.Post("/auth/login", app.LoginHandler)

	return r
}

// corsMiddleware lets the dashboard frontend call the API from another
// origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
