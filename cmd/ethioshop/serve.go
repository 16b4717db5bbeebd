package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ethioshop/marketplace/internal/api"
	"github.com/ethioshop/marketplace/internal/async"
	"github.com/ethioshop/marketplace/internal/auth/token"
	"github.com/ethioshop/marketplace/internal/bootstrap"
	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/job"
	"github.com/ethioshop/marketplace/internal/migrations"
	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/payment"
	"github.com/ethioshop/marketplace/internal/repository/sqlite"
	"github.com/ethioshop/marketplace/internal/service"
	"github.com/ethioshop/marketplace/internal/support/hash"
	"github.com/ethioshop/marketplace/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the EthioShop server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	db, err := bootstrap.OpenSQLite(cfg.DB.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	store := sqlite.NewStore(db)

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return err
	}

	cacheStore := cache.NewStore(cache.Options{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "ethioshop",
	})
	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)

	pushQueue := async.NewPushQueue()
	emitter := notifier.NewStoreEmitter(store.Notifications(), pushQueue, logger)

	gateways := payment.NewRegistry(
		payment.NewTelebirrGateway(
			payment.NewRatePolicy(cfg.Payment.TelebirrApprovePct, rand.NewSource(time.Now().UnixNano())),
			cfg.Payment.ChargeTimeout,
			logger,
		),
		payment.NewCBEBirrGateway(
			payment.NewRatePolicy(cfg.Payment.CBEBirrApprovePct, rand.NewSource(time.Now().UnixNano())),
			cfg.Payment.ChargeTimeout,
			logger,
		),
	)

	scheduler := job.NewScheduler(logger)
	pushJob := job.NewSendPushJob(pushQueue, notifier.NewLogPushClient(store.Users(), logger), logger, cfg.Push.MaxRetries, cfg.Push.MaxInterval)
	if _, err := scheduler.Register("@every 10s", pushJob); err != nil {
		return err
	}
	reconcileJob := job.NewEscrowReconcileJob(store.Orders(), metrics, logger, cfg.Escrow.AutoReleaseAfter)
	if _, err := scheduler.Register(cfg.Escrow.ReconcileSpec, reconcileJob); err != nil {
		return err
	}
	scheduler.Start()

	services := api.Services{
		Auth:          service.NewAuthService(store.Users(), hasher, tokens, logger),
		Users:         service.NewUserService(store.Users(), logger),
		Orders:        service.NewOrderService(store.Orders(), store.Users(), emitter, logger),
		Payments:      service.NewPaymentService(store.Orders(), gateways, emitter, metrics, logger),
		Escrow:        service.NewEscrowService(store.Orders(), emitter, metrics, logger),
		Notifications: service.NewNotificationService(store.Notifications(), cacheStore, logger),
		System:        service.NewAdminSystemService(store, pushQueue),
	}

	router := api.NewRouter(services, api.Config{
		Logger:          logger,
		Tokens:          tokens,
		Cache:           cacheStore,
		ReplayTTL:       cfg.Payment.ReplayTTL,
		MetricsRegistry: registry,
	})

	server := bootstrap.NewHTTPServer(cfg, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
