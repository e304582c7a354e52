package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"care-ledger/internal/domain/events"
)

// LogOptions
type LogOptions struct {
	Actor    string
	Metadata string
	At       string
}

func addLog(topLevel *cobra.Command, ro *RootOptions) {
	lo := &LogOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "log TYPE",
		Short: "Log a care event",
		Example: `
carectl log feed --meta '{"amount_ml": 120, "method": "bottle"}'
carectl log sleep --meta '{"duration_minutes": 45}' --at 2025-12-22T13:30:00-03:00
carectl log diaper --meta '{"kind": "wet"}'
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := events.EventType(strings.ToUpper(strings.TrimSpace(args[0])))
			if !t.Valid() {
				return fmt.Errorf("unknown event type %q", args[0])
			}

			var at time.Time
			if v := strings.TrimSpace(lo.At); v != "" {
				parsed, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				at = parsed
			}

			m, err := events.DecodeMetadata(t, json.RawMessage(lo.Metadata))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := ro.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.ledger.LogEventAt(ctx, lo.Actor, t, m, at)
			if err != nil {
				// Sin persistir el evento se pierde al salir.
				return err
			}
			return printer{out: cmd.OutOrStdout(), json: oo.JSON}.Event(e)
		},
	}

	cmd.Flags().StringVar(&lo.Actor, "actor", defaultActor(),
		"Actor ID recorded on the event ($CARE_ACTOR).")
	cmd.Flags().StringVarP(&lo.Metadata, "meta", "m", "{}",
		"Event metadata as a JSON object.")
	cmd.Flags().StringVar(&lo.At, "at", "",
		"When it happened (RFC3339). Defaults to now.")
	cmd.Flags().BoolVar(&oo.JSON, "json", false,
		"Output as JSON.")

	topLevel.AddCommand(cmd)
}
