package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"care-ledger/internal/app"
	"care-ledger/internal/domain/syncer"
	"care-ledger/internal/platform/config"
	"care-ledger/internal/router"
)

// @title care-ledger API
// @version 1.0
// @description API local del ledger de cuidados: registro de eventos, predicción de sueño y sync con el backend.
// @BasePath /
func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config.toml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(configPath, nil)
	cfg, err := loader.Load()
	if err != nil {
		app.NewLogger(config.Default().Log).Error("config load failed", map[string]any{"path": configPath, "err": err.Error()})
		return err
	}

	log := app.NewLogger(cfg.Log)
	loader.SetLogger(log)
	if err := loader.Watch(ctx); err != nil {
		log.Warn("config hot reload disabled", map[string]any{"path": configPath, "err": err.Error()})
	}

	ledger, closeStore, err := app.OpenLedger(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("ledger open failed", map[string]any{"err": err.Error()})
		return err
	}
	defer closeStore.Close()

	rem, closeRemote, err := app.OpenRemote(ctx, cfg.Remote, cfg.Sync)
	if err != nil {
		log.Error("remote store unavailable", map[string]any{"driver": cfg.Remote.Driver, "err": err.Error()})
		return err
	}
	defer closeRemote.Close()

	verifier, err := app.NewVerifier(cfg.Auth)
	if err != nil {
		log.Error("auth verifier config invalid", map[string]any{"err": err.Error()})
		return err
	}
	if verifier == nil {
		log.Warn("auth in dev mode: X-Debug-User-ID header is trusted", nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var eng *syncer.Engine
	if rem != nil && cfg.Sync.Enabled {
		eng = syncer.NewEngine(ledger, rem, syncer.Options{
			Config:  app.SyncConfig(cfg.Sync),
			Logger:  log,
			Metrics: syncer.NewMetrics(reg),
		})
	} else {
		log.Info("sync disabled", map[string]any{"remote": cfg.Remote.Driver, "enabled": cfg.Sync.Enabled})
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.NewRouter(router.Options{
			Ledger:       ledger,
			Engine:       eng,
			AuthVerifier: verifier,
			Logger:       log,
			Registry:     reg,
			AwakeWindow:  loader.AwakeWindowMinutes,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if eng != nil {
		g.Go(func() error {
			if err := eng.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(sctx)
	})

	err = g.Wait()

	// Último intento de dejar el ledger en disco.
	if ledger.Dirty() {
		if perr := ledger.Persist(context.Background()); perr != nil {
			log.Error("ledger not persisted on shutdown", map[string]any{"err": perr.Error()})
		}
	}
	if err != nil {
		log.Error("server error", map[string]any{"err": err.Error()})
	}
	return err
}
