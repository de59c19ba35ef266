package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"authgate/internal/config"
	"authgate/internal/handlers"
	"authgate/internal/metrics"
	"authgate/internal/middleware"
)

type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     handlers.Pinger

	Gate     *middleware.SessionGate
	Sessions handlers.SessionManager
	Resets   handlers.PasswordResetter
	Verifier handlers.EmailVerifier
	Users    handlers.UsernameChecker
	Avatars  handlers.AvatarUploader
	// Limiter guards the endpoints that send email. Nil disables limiting.
	Limiter *middleware.RateLimiter
	// Pages serves gated and public pages. Nil serves a placeholder.
	Pages http.Handler
}

func SetupRoutes(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health(deps.DB))
	r.Handle("/metrics", metrics.Handler())
	RegisterSwaggerRoutes(r)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", handlers.Root)
		RegisterAuthRoutes(r, deps)
		RegisterUserRoutes(r, deps)
	})

	RegisterPageRoutes(r, deps)

	return r
}
