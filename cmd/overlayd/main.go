package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/capoverlay/capsync/internal/bridge"
	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/cuestore"
	"github.com/capoverlay/capsync/internal/display"
	"github.com/capoverlay/capsync/internal/httpapi"
	"github.com/capoverlay/capsync/internal/persistence"
	"github.com/capoverlay/capsync/internal/session"
	"github.com/capoverlay/capsync/internal/timesync"
	"github.com/capoverlay/capsync/internal/translate"
	"github.com/capoverlay/capsync/pkg/log"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	settingsPath := config.RuntimeSettingsFilePath()
	opts := []config.Option{}
	if settings, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(settings))
	} else if !os.IsNotExist(err) {
		log.Warn("Ignoring unreadable settings file %s: %v", settingsPath, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to initialize settings store: %v", err)
	}

	backend, err := translate.NewHTTPBackend(translate.BackendConfig(cfg.Backend))
	if err != nil {
		log.Fatal("Failed to initialize translation backend: %v", err)
	}

	var translator translate.Backend = backend
	cache, err := persistence.NewSQLiteStore(cfg.System.DBPath,
		persistence.WithTTL(time.Duration(cfg.System.CacheTTLHours)*time.Hour))
	if err != nil {
		log.Warn("Translation cache unavailable, running without it: %v", err)
	} else {
		defer cache.Close()
		translator = translate.NewCachingBackend(backend, cache)
	}

	settings := session.SettingsFromConfig(cfg)
	resolverCfg := session.ResolverConfigFromConfig(cfg)
	br := bridge.NewBridge(func(probe timesync.SurfaceProbe, fetcher session.Fetcher, target display.RenderTarget) *session.Controller {
		return session.NewController(settings, resolverCfg, cuestore.NewStore(), fetcher, probe, target, translator)
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.System.SweepCronExpr, func() {
		evicted := br.Sweep()
		deleted := int64(0)
		if cache != nil {
			var err error
			deleted, err = cache.DeleteExpired(context.Background(), time.Now())
			if err != nil {
				log.Warn("Cache sweep failed: %v", err)
			}
		}
		if evicted > 0 || deleted > 0 {
			log.Info("Sweep evicted %d stale sessions, deleted %d expired cache rows", evicted, deleted)
		}
	}); err != nil {
		log.Fatal("Invalid sweep schedule %q: %v", cfg.System.SweepCronExpr, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := httpapi.NewServer(br,
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(br.ApplyRuntimeSettings),
		httpapi.WithSurfaceHandler(br.Handler()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.System.HTTPAddr)
		errCh <- server.ListenAndServe(cfg.System.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Shutdown failed: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: %v", err)
		}
	}
}
