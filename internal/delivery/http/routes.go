package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/shopfloor/backend/internal/middleware"
)

func NewRouter(handler *Handler, authMiddleware *middleware.AuthMiddleware, logger *zap.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "refresh_token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Post("/token/refresh", handler.RefreshToken)
		r.Post("/logout", handler.Logout)
	})

	// User routes
	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/me", handler.GetCurrentUser)
		r.Put("/password", handler.ChangePassword)

		// Admin-only user administration
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AdminOnly)
			r.Get("/", handler.ListUsers)
			r.Post("/", handler.CreateUser)
			r.Put("/", handler.UpdateUser)
			r.Put("/role", handler.UpdateUserRole)
			r.Get("/logins", handler.ListLoginEvents)
			r.Delete("/{userId}", handler.DeleteUser)
		})
	})

	return r
}
