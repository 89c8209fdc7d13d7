package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Drop the cached document and load it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Progress.ForceRefresh()
			doc, err := c.app.Progress.Document(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reload progress: %w", err)
			}

			source := "local only"
			if c.app.Progress.RemoteConfigured() {
				source = "remote sync on"
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Reloaded %d exercises, %d records (%s)\n", len(doc), doc.Count(), source)
			return nil
		},
	}
}
