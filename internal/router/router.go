package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"abundance-backend/internal/handlers"
	"abundance-backend/internal/middleware"
	"abundance-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	projectHandler *handlers.ProjectHandler,
	sectionHandler *handlers.SectionHandler,
	sessionHandler *handlers.SessionHandler,
	cleanupHandler *handlers.CleanupHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Assistant Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", chatHandler.Send)
			r.Get("/{id}/messages", chatHandler.ListMessages)
		})

		// ──── Project Routes ────
		r.Route("/projects", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", projectHandler.List)
			r.Get("/{id}", projectHandler.Get)
			r.Get("/{id}/status", projectHandler.Status)
			r.Get("/{id}/sections", sectionHandler.List)
			r.Get("/{id}/sections/{type}", sectionHandler.Resolve)
			r.Patch("/{id}/sections/{type}", sectionHandler.Update)
			r.Get("/{id}/sessions", sessionHandler.ListByProject)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", projectHandler.GetJob)
		})

		// ──── Session Routes ────
		// Reads and in-session actions are public: group members join with
		// the session code, not an account. Creation stays behind auth.
		r.Route("/sessions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/", sessionHandler.Create)
			})

			r.Get("/code/{code}", sessionHandler.GetByCode)
			r.Get("/{id}", sessionHandler.Get)
			r.Get("/{id}/sections", sessionHandler.Sections)
			r.Post("/{id}/progress", sessionHandler.Progress)
			r.Post("/{id}/pause", sessionHandler.Pause)
			r.Post("/{id}/resume", sessionHandler.Resume)
			r.Post("/{id}/conversation", sessionHandler.AddConversation)
		})

		// ──── Cleanup (token-authenticated, for cron) ────
		r.Post("/cleanup", cleanupHandler.Cleanup)
		r.Get("/cleanup", cleanupHandler.Probe)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
