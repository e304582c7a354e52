package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"care-ledger/internal/domain/events"
)

// ListOptions
type ListOptions struct {
	Types    []string
	Limit    int
	Since    time.Duration
	Unsynced bool
}

func (o *ListOptions) filter(now time.Time) (events.ListFilter, error) {
	var f events.ListFilter
	for _, raw := range o.Types {
		for _, p := range strings.Split(raw, ",") {
			t := events.EventType(strings.ToUpper(strings.TrimSpace(p)))
			if t == "" {
				continue
			}
			if !t.Valid() {
				return events.ListFilter{}, fmt.Errorf("unknown event type %q", p)
			}
			f.Types = append(f.Types, t)
		}
	}
	if o.Limit < 0 {
		return events.ListFilter{}, fmt.Errorf("--limit must be >= 0")
	}
	f.Limit = o.Limit
	if o.Since > 0 {
		from := now.Add(-o.Since)
		f.From = &from
	}
	return f, nil
}

func addList(topLevel *cobra.Command, ro *RootOptions) {
	lo := &ListOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List logged events, newest first",
		Example: `
carectl list
carectl list --type sleep,feed --since 24h
carectl list --unsynced --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := lo.filter(time.Now())
			if err != nil {
				return err
			}

			s, err := ro.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var evs []events.CareEvent
			if lo.Unsynced {
				evs = s.ledger.Unsynced()
			} else {
				evs = s.ledger.List(f)
			}
			return printer{out: cmd.OutOrStdout(), json: oo.JSON}.Events(evs)
		},
	}

	cmd.Flags().StringSliceVarP(&lo.Types, "type", "t", nil,
		"Only these event types (repeatable or comma separated).")
	cmd.Flags().IntVarP(&lo.Limit, "limit", "n", 0,
		"Maximum number of events (0 = all).")
	cmd.Flags().DurationVar(&lo.Since, "since", 0,
		"Only events newer than this (e.g. 24h).")
	cmd.Flags().BoolVar(&lo.Unsynced, "unsynced", false,
		"Only events not yet pushed to the remote, oldest first.")
	cmd.Flags().BoolVar(&oo.JSON, "json", false,
		"Output as JSON.")

	topLevel.AddCommand(cmd)
}
