package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"nrsnotify/internal/backend"
	"nrsnotify/internal/cli"
	"nrsnotify/internal/core"
	apphttp "nrsnotify/internal/http"
	"nrsnotify/internal/i18n"
	"nrsnotify/internal/log"
	"nrsnotify/internal/nrs"
	"nrsnotify/internal/services"
	"nrsnotify/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	node := nrs.NewClient(cfg.NRSURL, cfg.NRSTimeout)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// Watermarks live in the browser cookie unless a shared store is configured.
	// Without AMQP, mark-as-read stays local.
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	stores := apphttp.CookieStores()
	if result.Store != nil {
		stores = apphttp.SharedStore(result.Store)
	}
	readyChecks := map[string]apphttp.ReadyCheck{"nrs": node.Ping}
	for name, check := range result.ReadyChecks {
		readyChecks[name] = apphttp.ReadyCheck(check)
	}

	registry := core.DefaultRegistry()
	notifier := services.NewNotificationService(node, result.Publisher, logger.WithComponent(log.ComponentNotify))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Sessions:       session.NewManager(registry, cfg.SessionCacheSize, cfg.SessionTTL),
		RefreshAfter:   cfg.RefreshAfter,
		Notifier:       notifier,
		Stores:         stores,
		Bundle:         i18n.NewBundle(),
		Language:       cfg.Language,
		DefaultAccount: cfg.DefaultAccount,
		Pages:          registry.Pages(),
		ReadyChecks:    readyChecks,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.NRSTimeout*2 + 5*time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting nrsnotify server", "port", cfg.Port, "backend", cfg.DataBackend, "node", cfg.NRSURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Warm the node connection so the first page view is not the one paying for it.
		if err := node.Ping(gctx); err != nil {
			logger.Warn("NRS node not reachable at startup", "url", cfg.NRSURL, log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
