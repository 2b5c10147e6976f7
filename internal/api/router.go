package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/carlist-be/internal/api/handlers"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/logger"
	"github.com/isdelr/carlist-be/internal/services"
	"github.com/isdelr/carlist-be/internal/websocket"
)

// Dependencies are the collaborators the router wires into its handlers.
type Dependencies struct {
	AuthService    services.AuthServiceProvider
	ListingService services.ListingServiceProvider
	EventService   services.EventServiceProvider
	Tokens         auth.TokenVerifier
	Hub            *websocket.Hub
	Store          handlers.Pinger
	// Limiter throttles /register and /login. Nil disables rate limiting.
	Limiter     RateLimiter
	Metrics     *Metrics
	CORSOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	listingHandler := handlers.NewListingHandler(deps.ListingService)
	eventHandler := handlers.NewEventHandler(deps.EventService)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	r.Get("/healthz", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(RateLimit(deps.Limiter, metrics, "register")).Post("/register", authHandler.Register)
	r.With(RateLimit(deps.Limiter, metrics, "login")).Post("/login", authHandler.Login)

	r.With(auth.WebSocketMiddleware(deps.Tokens)).Get("/ws", wsHandler.Serve)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Tokens))

		r.Get("/me", authHandler.GetMe)
		r.Get("/events", eventHandler.GetRecent)

		r.Post("/create-item", listingHandler.Create)
		r.Get("/user-cars", listingHandler.Search)
		r.Get("/cars/{id}", listingHandler.Get)
		r.Route("/products/{id}", func(r chi.Router) {
			r.Put("/", listingHandler.Update)
			r.Delete("/", listingHandler.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
