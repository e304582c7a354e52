// Package cli implementa carectl: comandos sobre el mismo ledger local que
// usa la API (misma config, mismo store).
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"care-ledger/internal/app"
	"care-ledger/internal/domain/events"
	"care-ledger/internal/platform/config"
	"care-ledger/internal/platform/logger"
)

// RootOptions son los flags globales.
type RootOptions struct {
	ConfigPath string
	NoColor    bool
	Verbose    bool
}

func New() *cobra.Command {
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "carectl",
		Short:         "Care event ledger on the command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if ro.NoColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&ro.ConfigPath, "config", "c", config.DefaultPath(),
		"Path to config.toml.")
	cmd.PersistentFlags().BoolVar(&ro.NoColor, "no-color", false,
		"Disable colored output.")
	cmd.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false,
		"Log debug output to stderr.")

	AddCommands(cmd, ro)
	return cmd
}

func AddCommands(topLevel *cobra.Command, ro *RootOptions) {
	addLog(topLevel, ro)
	addList(topLevel, ro)
	addDelete(topLevel, ro)
	addPredict(topLevel, ro)
	addSync(topLevel, ro)
	addConfig(topLevel, ro)
}

// session es lo que abre cada comando: config, logger y ledger.
type session struct {
	cfg    *config.Config
	log    logger.Logger
	ledger *events.Ledger
	closer io.Closer
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (ro *RootOptions) loadConfig() (*config.Config, error) {
	return config.NewLoader(ro.ConfigPath, nil).Load()
}

func (ro *RootOptions) newLogger(cfg *config.Config, errOut io.Writer) logger.Logger {
	level := logger.Warn
	if ro.Verbose {
		level = logger.Debug
	}
	return logger.New(logger.Options{
		Level:  level,
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    "carectl",
		Output: errOut,
	})
}

func (ro *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := ro.loadConfig()
	if err != nil {
		return nil, err
	}
	log := ro.newLogger(cfg, cmd.ErrOrStderr())

	l, closer, err := app.OpenLedger(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, ledger: l, closer: closer}, nil
}

// defaultActor: $CARE_ACTOR o el usuario del sistema.
func defaultActor() string {
	if v := strings.TrimSpace(os.Getenv("CARE_ACTOR")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("USER")); v != "" {
		return v
	}
	return "local"
}
