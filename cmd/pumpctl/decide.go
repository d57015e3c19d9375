package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liftstation/pumpkernel/internal/config"
)

func newDecideCommand() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run one decision tick against a historical row and print the Decision as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			driver, err := buildDriver(cfg)
			if err != nil {
				return err
			}

			state, err := driver.StateAt(index)
			if err != nil {
				return fmt.Errorf("state_at(%d): %w", index, err)
			}

			decision, err := driver.Decide(context.Background(), state)
			if err != nil {
				return fmt.Errorf("decide: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decision)
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "historical dataset row index to decide against")
	return cmd
}
