package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehousepos/internal/handlers"
	"warehousepos/internal/jobs/background"
	"warehousepos/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), withJobs)
		},
	}
	cmd.Flags().BoolVar(&withJobs, "with-jobs", true, "also run the background jobs in this process")
	return cmd
}

func serve(parent context.Context, withJobs bool) (err error) {
	cfg, log, err := bootstrap("api")
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithField(ctx, "env", cfg.App.Env)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to bootstrap", err)
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	verifier, err := middleware.NewTokenVerifier(ctx, cfg.Auth, log)
	if err != nil {
		log.Error(ctx, "failed to build token verifier", err)
		return err
	}
	defer verifier.Close()

	var scheduler *background.JobScheduler
	if withJobs {
		if scheduler, err = a.newScheduler(prometheus.DefaultRegisterer); err != nil {
			log.Error(ctx, "failed to build job scheduler", err)
			return err
		}
		scheduler.Start()
	}

	e := handlers.NewRouter(a.httpHandlers(scheduler), handlers.RouterOptions{
		Log:         log,
		Auth:        middleware.JWTMiddleware(verifier, log),
		RBAC:        middleware.NewRBACMiddleware(a.rbac),
		CORSOrigins: cfg.App.CORSOrigins,
		BodyLimit:   cfg.App.BodyLimit,
		Metrics:     promhttp.Handler(),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", srv.Addr), "http server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server stopped", err)
			return multierr.Append(err, stopScheduler(scheduler))
		}
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Combine(srv.Shutdown(shutdownCtx), stopScheduler(scheduler))
}

func (a *app) httpHandlers(scheduler *background.JobScheduler) handlers.Handlers {
	h := handlers.Handlers{
		Health: handlers.NewHealthHandlers(version, map[string]handlers.CheckFunc{
			"database": a.pool.Ping,
			"redis":    a.cache.Ping,
			"storage":  a.minio.EnsureBucketExists,
		}),
		Auth:          handlers.NewAuthHandlers(a.rbac),
		Tenants:       handlers.NewTenantHandlers(a.tenants),
		Stores:        handlers.NewStoreHandlers(a.stores),
		Categories:    handlers.NewCategoryHandlers(a.catalog),
		Products:      handlers.NewProductHandlers(a.products),
		Stock:         handlers.NewStockHandlers(a.stock),
		Customers:     handlers.NewCustomerHandlers(a.customers),
		Orders:        handlers.NewOrderHandlers(a.orders, a.stores, a.quotes),
		Payments:      handlers.NewPaymentHandlers(a.payments),
		Zones:         handlers.NewZoneHandlers(a.zones),
		Riders:        handlers.NewRiderHandlers(a.riders),
		Deliveries:    handlers.NewDeliveryHandlers(a.delivery, a.riders),
		Portal:        handlers.NewPortalHandlers(a.portal),
		Analytics:     handlers.NewAnalyticsHandlers(a.analytics),
		Notifications: handlers.NewNotificationHandlers(a.broker, a.riders, a.log),
		Webhooks:      handlers.NewWebhookHandlers(a.payments, a.otp, a.cfg.SMS.HookSecret, a.log),
	}
	if scheduler != nil {
		h.Jobs = handlers.NewJobHandlers(scheduler)
	}
	return h
}

func stopScheduler(js *background.JobScheduler) error {
	if js == nil {
		return nil
	}
	return js.Stop()
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
