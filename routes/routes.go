package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/UrThings/cs-ufe/handlers"
	"github.com/UrThings/cs-ufe/middleware"
	"github.com/UrThings/cs-ufe/models"
)

// SetupRoutes монтирует все маршруты API. Мутация турниров и ревью заявок
// закрыты ролью admin, командные действия проверяются в сервисах по
// владельцу команды.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	allowedOrigins []string,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	matchHandler *handlers.MatchHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticator([]byte(jwtSecret))
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", authHandler.Me)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", teamHandler.Create)
			r.Post("/join", teamHandler.Join)
			r.Put("/{teamID}", teamHandler.Update)
			r.Post("/{teamID}/leave", teamHandler.Leave)
			r.Delete("/{teamID}/members/{userID}", teamHandler.RemoveMember)
			r.Post("/{teamID}/code", teamHandler.RegenerateCode)
			r.Post("/{teamID}/logo", teamHandler.UploadLogo)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Patch("/{teamID}/paid", teamHandler.SetPaid)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/settings", tournamentHandler.GetSettings)
		r.Get("/{tournamentID}/matches/{matchID}", matchHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/requests", registrationHandler.RequestJoin)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", tournamentHandler.Create)
			r.Put("/{tournamentID}", tournamentHandler.Update)
			r.Put("/{tournamentID}/settings", tournamentHandler.UpdateSettings)
			r.Post("/{tournamentID}/logo", tournamentHandler.UploadLogo)
			r.Post("/{tournamentID}/seed", tournamentHandler.Seed)

			r.Get("/{tournamentID}/requests", registrationHandler.ListRequests)
			r.Post("/{tournamentID}/requests/{requestID}/approve", registrationHandler.Approve)
			r.Post("/{tournamentID}/requests/{requestID}/reject", registrationHandler.Reject)
			r.Delete("/{tournamentID}/participants/{teamID}", registrationHandler.RemoveParticipant)

			r.Post("/{tournamentID}/matches/{matchID}/resolve", matchHandler.Resolve)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Get("/dashboard/metrics", dashboardHandler.Metrics)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
