package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"care-ledger/internal/platform/logger"
)

// Loader mantiene la config vigente y la recarga cuando cambia el archivo.
// Solo algunos valores se leen en caliente (la ventana de vigilia); el resto
// se toma al arrancar.
type Loader struct {
	path string
	log  logger.Logger

	mu       sync.RWMutex
	cfg      *Config
	onChange []func(*Config)

	debounce time.Duration
}

func NewLoader(path string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{path: path, log: log, debounce: 100 * time.Millisecond}
}

// SetLogger reemplaza el logger (la config define el logger, así que se
// conoce recién después del primer Load).
func (l *Loader) SetLogger(log logger.Logger) {
	if log == nil {
		return
	}
	l.mu.Lock()
	l.log = log
	l.mu.Unlock()
}

func (l *Loader) currentLog() logger.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log
}

// Load lee archivo + env y valida.
func (l *Loader) Load() (*Config, error) {
	cfg, err := load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Config devuelve la config vigente (nil antes de Load).
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// AwakeWindowMinutes se consulta en cada predicción.
func (l *Loader) AwakeWindowMinutes() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cfg == nil {
		return Default().Prediction.AwakeWindowMinutes
	}
	return l.cfg.Prediction.AwakeWindowMinutes
}

// OnChange registra un callback que corre después de cada recarga exitosa.
// Registrar antes de Watch.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	l.onChange = append(l.onChange, cb)
	l.mu.Unlock()
}

// Watch observa el directorio del archivo hasta que ctx termine. Una config
// nueva inválida se descarta y sigue rigiendo la anterior.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Se observa el directorio: los editores suelen reemplazar el archivo.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go l.watchLoop(ctx, w)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(l.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(l.debounce, l.reload)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.currentLog().Warn("config: watcher error", map[string]any{"err": err.Error()})
		}
	}
}

func (l *Loader) reload() {
	cfg, err := load(l.path)
	if err != nil {
		l.currentLog().Warn("config: reload rejected", map[string]any{"path": l.path, "err": err.Error()})
		return
	}

	l.mu.Lock()
	old := l.cfg
	l.cfg = cfg
	cbs := append([]func(*Config){}, l.onChange...)
	l.mu.Unlock()

	fields := map[string]any{"path": l.path, "awake_window_minutes": cfg.Prediction.AwakeWindowMinutes}
	if old != nil && old.Prediction.AwakeWindowMinutes != cfg.Prediction.AwakeWindowMinutes {
		fields["previous_awake_window_minutes"] = old.Prediction.AwakeWindowMinutes
	}
	l.currentLog().Info("config: reloaded", fields)

	for _, cb := range cbs {
		cb(cfg)
	}
}
