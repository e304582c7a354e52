package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addDelete(topLevel *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete events from the local ledger",
		Long: `Delete events from the local ledger. Deleting an unknown id is not an error.
If the event was already synced, the delete is pushed on the next sync.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := ro.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range args {
				known := s.ledger.Contains(id)
				if err := s.ledger.DeleteEvent(ctx, id); err != nil {
					return err
				}
				if known {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "not found %s\n", id)
				}
			}
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
