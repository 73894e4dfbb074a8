// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chapter-extract/internal/catalog"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a chapter catalog without extracting",
	Long: `Validate loads the catalog, checks it against the catalog schema and
the job rules (unique ids, start >= 1, end >= start), and lists its chapters.
It exits non-zero on the first problem found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		if path == "" {
			path = viper.GetString("extraction.catalog")
		}
		if path == "" {
			return fmt.Errorf("--catalog is required")
		}

		c, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if c.Title() != "" {
			fmt.Fprintln(out, c.Title())
		}
		for _, j := range c.Load() {
			fmt.Fprintf(out, "  %-24s  pages %4d-%-4d  %s\n", j.ID, j.StartPage, j.EndPage, j.Description)
		}
		fmt.Fprintf(out, "\n%s: %d chapters OK\n", path, c.Len())
		return nil
	},
}

func init() {
	validateCmd.Flags().String("catalog", "", "chapter catalog (YAML)")
	rootCmd.AddCommand(validateCmd)
}
