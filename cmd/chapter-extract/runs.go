// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chapter-extract/internal/ledger"
	"github.com/pdiddy/chapter-extract/internal/pipeline"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded extraction runs",
	Long: `Runs lists the extraction runs recorded in the ledger, newest first.
Use "runs show <id>" to see the per-chapter results of one run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the chapter results of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		format, _ := cmd.Flags().GetString("format")

		store, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		switch format {
		case "text", "":
			d, err := store.Detail(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), d.Run, d.Results)
			return nil
		case ledger.FormatYAML, ledger.FormatJSON:
			return store.Export(cmd.Context(), id, format, cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported format %q: use text, yaml or json", format)
		}
	},
}

// openLedger opens the ledger for the configured output directory.
func openLedger(cmd *cobra.Command) (*ledger.Store, error) {
	cfg := types.RunConfig{
		Output: types.OutputConfig{Dir: viper.GetString("output.dir")},
		Ledger: types.LedgerConfig{Dir: viper.GetString("ledger.dir")},
	}
	if dir, _ := cmd.Flags().GetString("output"); dir != "" {
		cfg.Output.Dir = dir
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	return ledger.Open(types.LedgerConfig{Enabled: true, Dir: pipeline.LedgerDir(cfg)})
}

func init() {
	runsCmd.PersistentFlags().String("output", "", "output directory holding the ledger (default output)")
	runsCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	runsShowCmd.Flags().String("format", "text", "output format: text, yaml or json")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
