package routes

import (
	"github.com/dkhalitov/bracket-engine/handlers"
	"github.com/dkhalitov/bracket-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Report     *handlers.ReportHandler
	WebSocket  *handlers.WebSocketHandler
}

// InitRoutes wires the HTTP surface. Reads and the websocket feed are
// public; progression commands require the organizer role and score
// reporting requires a player token.
func InitRoutes(h Handlers, auth *middleware.Authenticator) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/bracket", h.Tournament.GetBracketHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRole(middleware.RoleOrganizer))

			r.Post("/", h.Tournament.CreateHandler)
			r.Put("/{tournamentID}", h.Tournament.UpdateHandler)
			r.Post("/{tournamentID}/players", h.Tournament.RegisterPlayerHandler)
			r.Post("/{tournamentID}/bracket", h.Tournament.BuildBracketHandler)
			r.Post("/{tournamentID}/rounds", h.Tournament.StartNextRoundHandler)
			r.Post("/{tournamentID}/complete", h.Tournament.CompleteHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}/reports", h.Report.ListByMatchHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRole(middleware.RoleOrganizer))

			r.Put("/{matchID}/result", h.Match.DeclareResultHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRole(middleware.RolePlayer, middleware.RoleOrganizer))

			r.Post("/{matchID}/reports", h.Report.SubmitHandler)
		})
	})

	router.Route("/reports", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RolePlayer, middleware.RoleOrganizer))

			r.Put("/{reportID}", h.Report.EditHandler)
			r.Delete("/{reportID}", h.Report.DeleteHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleOrganizer))

			r.Post("/{reportID}/accept", h.Report.AcceptHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
