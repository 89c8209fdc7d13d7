package main

import (
	"fmt"

	"github.com/bassista/go_gym/internal/repository"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <exercise>",
		Aliases: []string{"ls", "l"},
		Short:   "List the records of an exercise, oldest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.app.Progress.QueryRecords(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No records for %s.\n", args[0])
				return nil
			}

			faint := color.New(color.Faint)
			for i, r := range records {
				change := ""
				if i > 0 {
					change = faint.Sprintf(" (%+g)", r.Weight-records[i-1].Weight)
				}
				fmt.Fprintf(out, "%s  %s%s\n", faint.Sprint(r.Date), formatWeight(r.Weight), change)
			}

			sum := repository.Summarize(records)
			fmt.Fprintf(out, "Last %s · Best %s · Change %+g\n",
				color.New(color.Bold).Sprint(formatWeight(sum.Last)), formatWeight(sum.Best), sum.Change)
			return nil
		},
	}
}
