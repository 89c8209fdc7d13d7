package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bassista/go_gym/internal/progress"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) newAddCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:     "add <exercise> <weight>",
		Aliases: []string{"a"},
		Short:   "Log a weight for an exercise",
		Long: `Log a weight for an exercise. The date defaults to today.

A record that could not be pushed to the remote store is still saved in the
local file; gymctl prints a warning and exits successfully.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exercise := strings.TrimSpace(args[0])
			weight, err := strconv.ParseFloat(strings.Replace(args[1], ",", ".", 1), 64)
			if err != nil || math.IsInf(weight, 0) || math.IsNaN(weight) {
				return fmt.Errorf("invalid weight: %s", args[1])
			}
			if date == "" {
				date = progress.Today(c.now())
			}

			out := cmd.OutOrStdout()
			err = c.app.Progress.AppendRecord(cmd.Context(), exercise, weight, date)
			switch {
			case err == nil:
				color.New(color.FgGreen).Fprintf(out, "✓ Added %s\n", exercise)
			case errors.Is(err, progress.ErrSyncFailed):
				color.New(color.FgYellow).Fprintf(out, "! Added %s locally, remote sync failed\n", exercise)
				fmt.Fprintf(out, "  %s\n", color.New(color.Faint).Sprint(strings.ReplaceAll(err.Error(), "\n", "; ")))
			default:
				return err
			}
			fmt.Fprintf(out, "  %s  %s\n", date, formatWeight(weight))
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "record date ("+repository.DateLayout+")")
	return cmd
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
