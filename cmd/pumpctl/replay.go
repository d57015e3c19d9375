package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liftstation/pumpkernel/internal/config"
)

// newReplayCommand runs consecutive ticks carrying one RuntimeTracker
// forward — the minimal multi-tick loop the Non-goals carve-out leaves
// in scope (SPEC_FULL.md §5).
func newReplayCommand() *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run consecutive decision ticks from --from to --to, printing one Decision per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to < from {
				return fmt.Errorf("--to (%d) must be >= --from (%d)", to, from)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			driver, err := buildDriver(cfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for idx := from; idx <= to; idx++ {
				state, err := driver.StateAt(idx)
				if err != nil {
					return fmt.Errorf("state_at(%d): %w", idx, err)
				}
				decision, err := driver.Decide(context.Background(), state)
				if err != nil {
					return fmt.Errorf("decide(%d): %w", idx, err)
				}
				if err := enc.Encode(decision); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "first historical dataset row index")
	cmd.Flags().IntVar(&to, "to", 0, "last historical dataset row index (inclusive)")
	return cmd
}
