package handlers

import (
	"net/http"

	"geoquest-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Router groups everything the HTTP routes depend on
type Router struct {
	Validator      middleware.TokenValidator
	AdminToken     string
	AllowedOrigins []string

	Health     *HealthHandler
	Users      *UserHandler
	CheckIns   *CheckInHandler
	Quests     *QuestHandler
	Photos     *PhotoHandler
	Locations  *PlaceHandler
	Partners   *PlaceHandler
	WebSockets *WebSocketHandler
}

// Handler builds the chi router with all routes mounted
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: rt.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/", rt.Health.Banner)
		r.Get("/healthz", rt.Health.Check)
		r.Post("/auth/shopify/customer", rt.Users.Login)
		r.Get("/auth/shopify/customer/{customerID}", rt.Users.LoginByCustomerID)
		r.Get("/locations", rt.Locations.List)
		r.Get("/locations/nearby", rt.Locations.Nearby)
		r.Get("/locations/map", rt.Locations.Map)
		r.Get("/partners", rt.Partners.List)
		r.Get("/partners/nearby", rt.Partners.Nearby)
		r.Get("/quests", rt.Quests.ListQuests)
		r.Get("/quests/{questID}", rt.Quests.GetQuest)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.Validator))
			r.Post("/checkins", rt.CheckIns.CreateCheckIn)
			r.Post("/business-checkins", rt.CheckIns.CreateBusinessCheckIn)
			r.Post("/quests/{questID}/start", rt.Quests.StartQuest)
			r.Post("/quests/{questID}/complete-step", rt.Quests.CompleteStep)
			r.Post("/photos/upload-url", rt.Photos.UploadURL)
			r.Post("/photos", rt.Photos.RegisterPhoto)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Use(middleware.MatchUserParam("userID"))
				r.Get("/", rt.Users.GetUser)
				r.Get("/points", rt.Users.GetPoints)
				r.Get("/checkins", rt.CheckIns.ListCheckIns)
				r.Get("/quests", rt.Quests.ListUserQuests)
				r.Post("/redeem-points", rt.Users.RedeemPoints)
				r.Put("/push-token", rt.Users.UpdatePushToken)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminMiddleware(rt.AdminToken))
			r.Post("/locations", rt.Locations.Create)
			r.Post("/partners", rt.Partners.Create)
			r.Post("/quests", rt.Quests.CreateQuest)
		})
	})

	// WebSocket route
	r.Get("/ws", rt.WebSockets.HandleWebSocket)

	return r
}
