package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/service"
	"github.com/utafrali/PostsGo/pkg/health"
	"github.com/utafrali/PostsGo/pkg/middleware"
)

// RouterConfig carries the settings the router needs beyond its handlers.
type RouterConfig struct {
	ServiceName       string
	AllowedOrigins    []string
	PprofAllowedCIDRs []string
	Cookies           CookieConfig
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	postService *service.PostService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	gatherer prometheus.Gatherer,
	httpMetrics *middleware.HTTPMetrics,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(httpMetrics.Middleware)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID()}, nil
	}
	requireAuth := middleware.Auth(tokenValidator, AccessTokenCookie)

	authHandler := NewAuthHandler(authService, cfg.Cookies, logger)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh-token", authHandler.Refresh)

		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	userHandler := NewUserHandler(userService, logger)
	r.Route("/api/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", userHandler.List)
		r.Get("/username/{username}", userHandler.GetByUsername)
		r.Get("/{id}", userHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
		})
	})

	postHandler := NewPostHandler(postService, logger)
	r.Route("/api/posts", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Get("/", postHandler.List)
		r.Get("/me", postHandler.Mine)
		r.Get("/{id}", postHandler.Get)
		r.Post("/", postHandler.Create)
		r.Put("/{id}", postHandler.Update)
		r.Delete("/{id}", postHandler.Delete)
	})

	return r
}
