// Package api assembles the HTTP router and middleware stack.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethioshop/marketplace/internal/api/handler"
	"github.com/ethioshop/marketplace/internal/api/middleware"
	"github.com/ethioshop/marketplace/internal/auth/token"
	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/service"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Orders        service.OrderService
	Payments      service.PaymentService
	Escrow        service.EscrowService
	Notifications service.NotificationService
	System        *service.AdminSystemService
}

// Config tunes the router middleware stack.
type Config struct {
	Logger            *slog.Logger
	Tokens            *token.Manager
	Cache             cache.Store
	ReplayTTL         time.Duration
	MetricsRegistry   *prometheus.Registry
	MetricsToken      string
	RequestsPerMinute int
	BodyLimitBytes    int64
	TrustedProxies    []string
}

// NewRouter wires middleware, handlers and routes. It panics on a nil
// required dependency since that is a programming error at startup.
func NewRouter(services Services, config Config) http.Handler {
	if services.Auth == nil {
		panic("api: nil auth service")
	}
	if services.Users == nil {
		panic("api: nil user service")
	}
	if services.Orders == nil {
		panic("api: nil order service")
	}
	if services.Payments == nil {
		panic("api: nil payment service")
	}
	if services.Escrow == nil {
		panic("api: nil escrow service")
	}
	if services.Notifications == nil {
		panic("api: nil notification service")
	}
	if config.Tokens == nil {
		panic("api: nil token manager")
	}
	if config.Cache == nil {
		panic("api: nil cache store")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := config.MetricsRegistry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	httpMetrics := middleware.NewMetrics(registry)

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if config.RequestsPerMinute > 0 {
		rateLimitCfg.RequestsPerMinute = config.RequestsPerMinute
	}
	rateLimitCfg.TrustedProxies = config.TrustedProxies

	loggingCfg := middleware.DefaultLoggingConfig()
	loggingCfg.Logger = logger

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(httpMetrics.Middleware)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.BodyLimit(config.BodyLimitBytes))
	r.Use(middleware.RateLimit(rateLimitCfg))
	r.Use(middleware.StructuredLogger(loggingCfg))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.With(middleware.MetricsGuard(config.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	authHandler := handler.NewAuth(services.Auth, logger)
	userHandler := handler.NewUser(services.Users, logger)
	orderHandler := handler.NewOrder(services.Orders, logger)
	paymentHandler := handler.NewPayment(services.Payments, services.Escrow, services.Orders, config.Cache, config.ReplayTTL, logger)
	notificationHandler := handler.NewNotification(services.Notifications, logger)

	userGuard := middleware.UserGuard(config.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(userGuard)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Put("/me/push-token", userHandler.RegisterPushToken)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Create)
				r.Get("/", orderHandler.List)
				r.Get("/{orderID}", orderHandler.Get)
				r.Post("/{orderID}/confirm", orderHandler.Confirm)
				r.Post("/{orderID}/ship", orderHandler.Ship)
				r.Post("/{orderID}/deliver", orderHandler.Deliver)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/capture", paymentHandler.Capture)
				r.Get("/{orderID}/status", paymentHandler.Status)
				r.Post("/refund", paymentHandler.Refund)
				r.Post("/escrow/release", paymentHandler.Release)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/{notificationID}/read", notificationHandler.MarkRead)
			})

			if services.System != nil {
				adminHandler := handler.NewAdmin(services.System, logger)
				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.AdminGuard())
					r.Get("/system/status", adminHandler.SystemStatus)
				})
			}
		})
	})

	return r
}
