package api

import (
	"net/http"
	"time"

	"judgehub/internal/api/handler"
	"judgehub/internal/app/service"
	"judgehub/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	gradingService *service.GradingService,
	playlistService *service.PlaylistService,
	userService *service.UserService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(120 * time.Second)) // Long enough for a full poll cycle

	// JWT Auth Middleware Setup
	// Verifies the token from "Authorization: Bearer T" and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// Problem routes (some public, some admin)
		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		// Submission routes (authenticated)
		submissionHandler := handler.NewSubmissionHandler(gradingService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		// Playlist routes (authenticated)
		playlistHandler := handler.NewPlaylistHandler(playlistService)
		v1.Route("/playlists", playlistHandler.RegisterRoutes)

		// Profile + leaderboard
		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", userHandler.RegisterRoutes)
	})

	return r
}
