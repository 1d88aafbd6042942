package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ali-azain/GlassFlow-CRM/internal/infra/http/handlers"
	appmiddleware "github.com/ali-azain/GlassFlow-CRM/internal/infra/http/middleware"
)

type routes struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Leads     *handlers.LeadHandler
	Selection *handlers.SelectionHandler
	Tasks     *handlers.TaskHandler
	Imports   *handlers.ImportHandler
	Validate  *handlers.ValidationHandler

	Sessions    appmiddleware.SessionSource
	AuthLimiter *handlers.RateLimiter
}

func baseRouter(origins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Metrics)
	return r
}

func newRouter(origins []string, h routes) http.Handler {
	r := baseRouter(origins)

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", h.Auth.Session)
		r.Post("/sign-out", h.Auth.SignOut)
		r.Group(func(r chi.Router) {
			r.Use(h.AuthLimiter.Limit)
			r.Post("/sign-in", h.Auth.SignIn)
			r.Post("/sign-up", h.Auth.SignUp)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireSession(h.Sessions))
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/pipeline", h.Leads.Pipeline)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.Leads.List)
			r.Post("/", h.Leads.Create)
			r.Get("/preview", h.Leads.Preview)
			r.Post("/reload", h.Leads.Reload)
			r.Post("/validate", h.Validate.Handle)
			r.Delete("/error", h.Leads.DismissError)

			r.Patch("/{id}", h.Leads.Update)
			r.Delete("/{id}", h.Leads.Delete)
			r.Put("/{id}/stage", h.Leads.ChangeStage)
			r.Post("/{id}/touch", h.Leads.Touch)
			r.Get("/{id}/tasks", h.Tasks.ListForLead)
			r.Post("/{id}/tasks", h.Tasks.CreateForLead)
			r.Delete("/{id}/tasks/cache", h.Tasks.CollapseLead)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", h.Selection.Get)
			r.Delete("/", h.Selection.Clear)
			r.Post("/toggle", h.Selection.Toggle)
			r.Post("/toggle-all", h.Selection.ToggleAll)
			r.Post("/delete", h.Selection.Delete)
			r.Post("/save-list", h.Selection.SaveList)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.Tasks.List)
			r.Post("/", h.Tasks.Create)
			r.Patch("/{id}", h.Tasks.Update)
			r.Post("/{id}/toggle", h.Tasks.Toggle)
			r.Delete("/{id}", h.Tasks.Delete)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", h.Imports.Upload)
			r.Get("/{id}", h.Imports.Get)
			r.Put("/{id}/mapping", h.Imports.SetMapping)
			r.Post("/{id}/run", h.Imports.Run)
			r.Delete("/{id}", h.Imports.Cancel)
		})
	})

	return r
}

// configurationRouter answers every route with the setup instructions.
func configurationRouter(origins []string, missing []string) http.Handler {
	r := baseRouter(origins)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", handlers.ConfigurationError(missing))
	return r
}
