package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mindfusion/backend/app"
	"github.com/mindfusion/backend/handlers"
	"github.com/mindfusion/backend/middleware"
	"github.com/mindfusion/backend/utils"
)

// requestTimeoutMargin leaves room for aggregation and encoding after the
// slowest provider call
const requestTimeoutMargin = 5 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewAccessLog(deps.Logger).Handler)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.Config.FanOut.PerCallTimeout + requestTimeoutMargin))

	origins := deps.Config.Server.AllowedOrigins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           300,
	}))

	var db handlers.HealthChecker
	if deps.DB != nil {
		db = deps.DB
	}
	health := handlers.NewHealthHandler(db, deps.Registry, deps.Logger)
	if deps.Audit != nil {
		health = health.WithAudit(deps.Audit)
	}
	exposeInternal := !deps.Config.IsProduction()
	chat := handlers.NewChatHandler(deps.Chat, deps.Logger, exposeInternal)

	// Liveness and readiness
	r.Get("/", health.HandleRoot)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chat.HandleChat)
		r.Get("/providers", health.HandleProviders)

		// Outcome trail lookup needs the database
		if deps.Outcomes != nil {
			outcomes := handlers.NewOutcomeHandler(deps.Outcomes, deps.Logger, exposeInternal)
			r.Get("/requests/{id}", outcomes.HandleGetRequest)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found", middleware.GetRequestIDFromContext(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", middleware.GetRequestIDFromContext(r.Context()))
	})

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
