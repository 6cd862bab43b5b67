package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newWorkerCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background jobs without the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return work(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address serving /metrics; empty disables it")
	return cmd
}

func work(parent context.Context, metricsAddr string) (err error) {
	cfg, log, err := bootstrap("worker")
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

	scheduler, err := a.newScheduler(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error(ctx, "failed to build job scheduler", err)
		return err
	}

	var metricsSrv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server stopped", err)
			}
		}()
	}

	log.Info(ctx, "starting worker")
	scheduler.Start()
	<-ctx.Done()
	log.Info(ctx, "worker shutting down gracefully")

	err = scheduler.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, metricsSrv.Shutdown(shutdownCtx))
	}
	return err
}
