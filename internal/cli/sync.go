package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"care-ledger/internal/app"
	"care-ledger/internal/domain/syncer"
)

// ErrNoRemote se devuelve si la config no tiene remote.
var ErrNoRemote = errors.New("no remote configured (remote.driver = none)")

// SyncOptions
type SyncOptions struct {
	Timeout time.Duration
}

func addSync(topLevel *cobra.Command, ro *RootOptions) {
	so := &SyncOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push pending events and deletes to the remote once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if so.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, so.Timeout)
				defer cancel()
			}

			s, err := ro.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rem, closer, err := app.OpenRemote(ctx, s.cfg.Remote, s.cfg.Sync)
			if err != nil {
				return err
			}
			defer closer.Close()
			if rem == nil {
				return ErrNoRemote
			}

			eng := syncer.NewEngine(s.ledger, rem, syncer.Options{
				Config: app.SyncConfig(s.cfg.Sync),
				Logger: s.log,
			})
			res, err := eng.SyncOnce(ctx)
			if err != nil {
				return err
			}
			if perr := (printer{out: cmd.OutOrStdout(), json: oo.JSON}).SyncResult(res); perr != nil {
				return perr
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d sync operations failed", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&so.Timeout, "timeout", 2*time.Minute,
		"Give up on the pass after this long (0 = no limit).")
	cmd.Flags().BoolVar(&oo.JSON, "json", false,
		"Output as JSON.")

	topLevel.AddCommand(cmd)
}
