package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/taskminder-api/internal/application/auth"
	"github.com/taskminder-api/internal/application/todo"
	"github.com/taskminder-api/internal/config"
	"github.com/taskminder-api/internal/transport/http/handler"
	appmiddleware "github.com/taskminder-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:  deps.UserRepo,
		TokenProv: deps.JWTProvider,
		Hasher:    deps.Hasher,
		Mailer:    deps.Mailer,
		BaseURL:   cfg.BaseURL,
	})
	todoSvc := todo.NewService(deps.TodoRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	todoH := handler.NewTodoHandler(todoSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/resend-verification", authH.ResendVerification)
		r.Get("/verify/{token}", authH.Verify)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Get("/todos", todoH.List)
			r.Post("/todos", todoH.Create)
			r.Put("/todos/{id}", todoH.Update)
			r.Delete("/todos/{id}", todoH.Delete)
		})
	})

	return r
}
