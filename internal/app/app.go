// Package app arma los colaboradores a partir de la config. Lo comparten
// la API y carectl para que ambos lean el mismo ledger del mismo modo.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"care-ledger/internal/adapters/auth/identity"
	"care-ledger/internal/adapters/remote/rest"
	"care-ledger/internal/adapters/storage/filestore"
	"care-ledger/internal/adapters/storage/memory"
	pg "care-ledger/internal/adapters/storage/postgres"
	"care-ledger/internal/adapters/storage/sqlite"
	"care-ledger/internal/domain/events"
	"care-ledger/internal/domain/syncer"
	"care-ledger/internal/platform/config"
	"care-ledger/internal/platform/logger"
	"care-ledger/internal/ports/auth"
	"care-ledger/internal/ports/remote"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func NewLogger(cfg config.LogConfig) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Level),
		Format: logger.ParseFormat(cfg.Format),
		App:    cfg.App,
	})
}

// OpenStore devuelve el store local del documento del ledger.
func OpenStore(cfg config.StorageConfig) (events.Store, io.Closer, error) {
	switch cfg.Driver {
	case config.StorageFile:
		s, err := filestore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StorageMemory:
		return memory.NewSnapshotStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// OpenLedger abre store + ledger. Un documento corrupto no es fatal: se
// loguea y se sigue con el ledger vacío (el original quedó respaldado).
func OpenLedger(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*events.Ledger, io.Closer, error) {
	store, closer, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	l, err := events.OpenLedger(ctx, store, events.Options{Key: cfg.Key, Logger: log})
	if l == nil {
		_ = closer.Close()
		return nil, nil, err
	}
	if err != nil {
		log.Warn("ledger opened empty after corruption", map[string]any{"err": err.Error()})
	}
	return l, closer, nil
}

// OpenRemote devuelve nil (sin error) con driver "none": la app funciona
// offline sin sync.
func OpenRemote(ctx context.Context, cfg config.RemoteConfig, cl config.SyncConfig) (remote.EventStore, io.Closer, error) {
	switch cfg.Driver {
	case config.RemoteNone, "":
		return nil, nopCloser{}, nil
	case config.RemoteMemory:
		return memory.NewRemoteStore(), nopCloser{}, nil
	case config.RemoteREST:
		s, err := rest.New(rest.Config{
			BaseURL: cfg.URL,
			APIKey:  cfg.APIKey,
			Table:   cfg.Table,
			Timeout: cl.RequestTimeout.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.RemotePostgres:
		db, err := pg.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg.NewRemoteStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}
}

// NewVerifier devuelve nil si no hay auth.url (modo dev).
func NewVerifier(cfg config.AuthConfig) (auth.AuthVerifier, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}
	v, err := identity.NewVerifier(identity.Config{
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey,
		VerifyPath: cfg.VerifyPath,
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func SyncConfig(cfg config.SyncConfig) syncer.Config {
	return syncer.Config{
		RequestTimeout:   cfg.RequestTimeout.Duration,
		Debounce:         cfg.Debounce.Duration,
		MaxParallel:      cfg.MaxParallel,
		BackoffInitial:   cfg.BackoffInitial.Duration,
		BackoffMax:       cfg.BackoffMax.Duration,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown.Duration,
	}
}
