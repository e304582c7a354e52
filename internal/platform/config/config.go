// Package config carga la configuración desde un archivo TOML con overrides
// por env (CARE_*). El archivo es opcional: sin archivo rigen los defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
	Storage    StorageConfig    `toml:"storage"`
	Remote     RemoteConfig     `toml:"remote"`
	Auth       AuthConfig       `toml:"auth"`
	Sync       SyncConfig       `toml:"sync"`
	Prediction PredictionConfig `toml:"prediction"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // text|json
	App    string `toml:"app"`
}

// Storage drivers del documento local.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"` // directorio (file) o archivo .db (sqlite)
	Key    string `toml:"key"`
}

// Remote drivers.
const (
	RemoteNone     = "none"
	RemoteREST     = "rest"
	RemotePostgres = "postgres"
	RemoteMemory   = "memory"
)

type RemoteConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	Table  string `toml:"table"`
	DSN    string `toml:"dsn"`
}

// AuthConfig: sin URL la API corre en modo dev (header X-Debug-User-ID).
type AuthConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	VerifyPath string `toml:"verify_path"`
}

type SyncConfig struct {
	Enabled          bool     `toml:"enabled"`
	RequestTimeout   Duration `toml:"request_timeout"`
	Debounce         Duration `toml:"debounce"`
	MaxParallel      int      `toml:"max_parallel"`
	BackoffInitial   Duration `toml:"backoff_initial"`
	BackoffMax       Duration `toml:"backoff_max"`
	BreakerThreshold int      `toml:"breaker_threshold"`
	BreakerCooldown  Duration `toml:"breaker_cooldown"`
}

type PredictionConfig struct {
	AwakeWindowMinutes float64 `toml:"awake_window_minutes"`
}

// maxAwakeWindowMinutes: un día. Coincide con el límite de la predicción.
const maxAwakeWindowMinutes = 24 * 60

// Duration acepta "10s", "5m" en TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{5 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			App:    "care-ledger",
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			Path:   defaultDataDir(),
			Key:    "care-ledger",
		},
		Remote: RemoteConfig{
			Driver: RemoteNone,
			Table:  "care_events",
		},
		Sync: SyncConfig{
			Enabled:          true,
			RequestTimeout:   Duration{10 * time.Second},
			Debounce:         Duration{500 * time.Millisecond},
			MaxParallel:      4,
			BackoffInitial:   Duration{time.Second},
			BackoffMax:       Duration{5 * time.Minute},
			BreakerThreshold: 5,
			BreakerCooldown:  Duration{time.Minute},
		},
		Prediction: PredictionConfig{
			AwakeWindowMinutes: 120,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "care-ledger")
	}
	return ".care-ledger"
}

// DefaultPath: $CARE_CONFIG o <user config dir>/care-ledger/config.toml.
func DefaultPath() string {
	if v := strings.TrimSpace(os.Getenv("CARE_CONFIG")); v != "" {
		return v
	}
	return filepath.Join(defaultDataDir(), "config.toml")
}

// LoadFile lee path sobre los defaults. Si el archivo no existe devuelve defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}

// Save escribe cfg como TOML (crea el directorio si hace falta).
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return f.Close()
}

// ApplyEnvOverrides aplica CARE_* (y PORT / DB_DSN por compatibilidad).
// Valores inválidos se ignoran; Validate se encarga de los rangos.
func (c *Config) ApplyEnvOverrides() {
	if v := env("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := env("CARE_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := env("CARE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("CARE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	if v := env("CARE_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := env("CARE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	if v := env("CARE_REMOTE_DRIVER"); v != "" {
		c.Remote.Driver = strings.ToLower(v)
	}
	if v := env("CARE_REMOTE_URL"); v != "" {
		c.Remote.URL = v
	}
	// Credenciales por env, no en el archivo.
	if v := env("CARE_REMOTE_API_KEY"); v != "" {
		c.Remote.APIKey = v
	}
	if v := env("DB_DSN"); v != "" {
		c.Remote.DSN = v
	}
	if v := env("CARE_REMOTE_DSN"); v != "" {
		c.Remote.DSN = v
	}

	if v := env("CARE_AUTH_URL"); v != "" {
		c.Auth.URL = v
	}
	if v := env("CARE_AUTH_API_KEY"); v != "" {
		c.Auth.APIKey = v
	}

	if v := env("CARE_SYNC_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Sync.Enabled = b
		}
	}
	if v := env("CARE_AWAKE_WINDOW_MINUTES"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Prediction.AwakeWindowMinutes = f
		}
	}
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case StorageFile, StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path required"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver))
	}

	switch c.Remote.Driver {
	case RemoteNone, RemoteMemory:
	case RemoteREST:
		if strings.TrimSpace(c.Remote.URL) == "" {
			errs = append(errs, errors.New("remote.url required for rest driver"))
		}
	case RemotePostgres:
		if strings.TrimSpace(c.Remote.DSN) == "" {
			errs = append(errs, errors.New("remote.dsn required for postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("remote.driver: unknown %q", c.Remote.Driver))
	}

	if aw := c.Prediction.AwakeWindowMinutes; math.IsNaN(aw) || math.IsInf(aw, 0) || aw <= 0 || aw > maxAwakeWindowMinutes {
		errs = append(errs, fmt.Errorf("prediction.awake_window_minutes must be in (0, %d]", maxAwakeWindowMinutes))
	}
	if c.Sync.MaxParallel < 0 || c.Sync.BreakerThreshold < 0 {
		errs = append(errs, errors.New("sync: max_parallel and breaker_threshold must be >= 0"))
	}

	return errors.Join(errs...)
}
