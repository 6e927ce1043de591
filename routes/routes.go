package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/playvora/arena-engine/handlers"
	"github.com/playvora/arena-engine/middleware"
	"github.com/playvora/arena-engine/models"
)

// SetupRoutes mounts the full HTTP surface of the engine.
func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	matchHandler *handlers.MatchHandler,
	bracketHandler *handlers.BracketHandler,
	groupHandler *handlers.GroupHandler,
	statsHandler *handlers.StatsHandler,
	auditHandler *handlers.AuditHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", matchHandler.GetMatchHandler)

		// Captain actions.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/submit", matchHandler.SubmitResultHandler)
			r.Post("/confirm", matchHandler.ConfirmResultHandler)
			r.Post("/dispute", matchHandler.DisputeResultHandler)
			r.Post("/proof", matchHandler.UploadProofHandler)
		})

		// Admin actions.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Post("/approve", matchHandler.ApproveResultHandler)
			r.Post("/reject", matchHandler.RejectResultHandler)
			r.Put("/result", matchHandler.EditResultHandler)
			r.Get("/audit", matchHandler.ListMatchAuditHandler)
		})
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/matches", matchHandler.ListTournamentMatchesHandler)
		r.Get("/matches/number/{matchNumber}", matchHandler.GetMatchByNumberHandler)
		r.Get("/bracket", bracketHandler.GetBracketHandler)
		r.Get("/standings", bracketHandler.GroupStandingsHandler)
		r.Get("/groups", groupHandler.ListGroupsHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Post("/bracket", bracketHandler.GenerateBracketHandler)
			r.Post("/groups/stage", bracketHandler.GenerateGroupStageHandler)
			r.Post("/groups", groupHandler.AllocateGroupsHandler)
			r.Get("/audit", auditHandler.ListTournamentAuditHandler)
		})
	})

	router.Route("/registrations/{registrationID}", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin))
		r.Put("/group", groupHandler.ReassignGroupHandler)
	})

	router.Get("/teams/{teamID}/stats", statsHandler.TeamStatsHandler)
	router.Get("/players/{playerID}/stats", statsHandler.PlayerStatsHandler)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
