package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"care-ledger/internal/domain/prediction"
)

// PredictOptions
type PredictOptions struct {
	AwakeWindow float64
	At          string
}

func addPredict(topLevel *cobra.Command, ro *RootOptions) {
	po := &PredictOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Show sleep pressure and the next nap window",
		Example: `
carectl predict
carectl predict --awake-window 90
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if v := strings.TrimSpace(po.At); v != "" {
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = t
			}

			s, err := ro.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			window := s.cfg.Prediction.AwakeWindowMinutes
			if cmd.Flags().Changed("awake-window") {
				if !prediction.ValidAwakeWindow(po.AwakeWindow) {
					return fmt.Errorf("--awake-window must be in (0, %d] minutes", prediction.MaxAwakeWindowMinutes)
				}
				window = po.AwakeWindow
			}

			f := prediction.Estimate(s.ledger.InsertionOrder(), now, window)
			return printer{out: cmd.OutOrStdout(), json: oo.JSON}.Forecast(f, now)
		},
	}

	cmd.Flags().Float64Var(&po.AwakeWindow, "awake-window", 0,
		"Awake window in minutes (defaults to the configured one).")
	cmd.Flags().StringVar(&po.At, "at", "",
		"Evaluate at this instant (RFC3339) instead of now.")
	cmd.Flags().BoolVar(&oo.JSON, "json", false,
		"Output as JSON.")

	topLevel.AddCommand(cmd)
}
