// @title Order Audit API
// @version 1.0
// @description Scores RPA order exports, pairs signed and unsigned cohorts, and keeps an immutable audit history.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"orderaudit/internal/config"
	"orderaudit/internal/email/noop"
	"orderaudit/internal/email/ses"
	"orderaudit/internal/handler"
	"orderaudit/internal/logger"
	"orderaudit/internal/metrics"
	"orderaudit/internal/normalizer"
	"orderaudit/internal/pairing"
	"orderaudit/internal/port"
	"orderaudit/internal/repository"
	"orderaudit/internal/router"
	"orderaudit/internal/rules"
	"orderaudit/internal/service"
	"orderaudit/internal/source"
	s3storage "orderaudit/internal/storage/s3"
	"orderaudit/internal/watch"
	"orderaudit/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer store.Close()

	catalog, err := rules.Load(cfg.Audit.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	// Object storage backs the s3 export source and the record archive.
	var objects port.ObjectStorage
	if cfg.Source.Provider == "s3" || cfg.S3.Archive {
		objects, err = s3storage.NewObjectStore(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	var exports port.ExportSource
	switch cfg.Source.Provider {
	case "s3":
		exports = source.NewObjectStoreSource(objects, cfg.S3.Bucket, cfg.Source.NameFilter)
	default:
		exports = source.NewLocalSource(cfg.Source.LocalRoot, cfg.Source.NameFilter)
	}

	var sender port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		sender, err = ses.NewSESSender(ctx, &cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		sender = noop.NewNoopSender(log, cfg.Email.DashboardURL)
	}

	var hooks port.Notifier
	if cfg.Webhook.Enabled() {
		hooks = webhook.NewNotifier(cfg.Webhook, log.With().Str("component", "webhook").Logger())
	}
	runMetrics := metrics.New()

	// Initialize services
	authSvc := service.NewAuthService(cfg.Auth.Clients, cfg.JWT)
	auditSvc := service.NewAuditService(service.AuditServiceDeps{
		Repo:       store.Records,
		Registry:   store.Registry,
		Normalizer: normalizer.New(cfg.Normalizer),
		Catalog:    catalog,
		Pairing:    pairing.NewEngine(log),
		Source:     exports,
		Storage:    objects,
		Email:      sender,
		Webhook:    hooks,
		Metrics:    runMetrics,
		AuditCfg:   cfg.Audit,
		S3Cfg:      cfg.S3,
		Log:        log.With().Str("component", "audit").Logger(),
	})

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	auditH := handler.NewAuditHandler(auditSvc, cfg.Server.MaxUploadMB)
	healthH := handler.NewHealthHandler(store.DB)

	r := router.Setup(log, cfg.CORS.AllowedOrigins, authSvc, authH, auditH, healthH, runMetrics.Handler())
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.DB.Driver).Str("rules", catalog.Version()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Watch.Enabled {
		if cfg.Source.Provider != "local" {
			log.Warn().Str("provider", cfg.Source.Provider).Msg("folder watch needs the local source; not started")
		} else {
			g.Go(func() error {
				return watchFolders(gctx, cfg, auditSvc, log)
			})
		}
	}

	return g.Wait()
}

func watchFolders(ctx context.Context, cfg *config.Config, auditSvc service.AuditService, log zerolog.Logger) error {
	trigger := func(ctx context.Context, folderID string, at time.Time) error {
		_, err := auditSvc.RunFolder(ctx, folderID, at)
		return err
	}
	return watch.New(cfg.Source.LocalRoot, cfg.Source.NameFilter, cfg.Watch.Debounce, trigger, log).Run(ctx)
}
