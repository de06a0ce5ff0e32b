package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"interview-mailer/internal/api"
	"interview-mailer/internal/audit"
	"interview-mailer/internal/config"
	"interview-mailer/internal/gemini"
	"interview-mailer/internal/generate"
	"interview-mailer/internal/ingest"
	"interview-mailer/internal/jobs"
	"interview-mailer/internal/logging"
	"interview-mailer/internal/mailer"
	"interview-mailer/internal/rowstore"
	"interview-mailer/internal/telemetry"
	"interview-mailer/internal/worker"
)

func main() {
	cfg := config.Load()
	logging.Init()
	log := logging.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	auditStore, err := audit.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer auditStore.Close()
	auditLog := audit.NewLog(auditStore, audit.NewMirror(cfg.DataDir))

	rows := rowstore.New(cfg)
	defer rows.Close()

	registry := jobs.NewRegistry()

	client := gemini.NewClient(cfg)
	generator := generate.New(client, cfg.OrgName, cfg.MaxAttempts, cfg.RegenAttempts, cfg.BackoffBase)
	mail := mailer.New(cfg)
	runner := worker.NewRunner(rows, registry, generator, mail, auditLog, cfg.HTMLTemplate)

	server := api.New(cfg, ingest.New(rows, registry), registry, runner, auditLog)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: telemetry.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics listener stopped")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("api listening")
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
}
