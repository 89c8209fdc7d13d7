package main

import (
	"fmt"

	"github.com/bassista/go_gym/internal/plan"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show this week's plan completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Progress.Document(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load progress: %w", err)
			}

			now := c.now()
			p := c.app.Plan.Current()
			st := plan.WeekStats(p, doc.Records, now)

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			done := color.New(color.FgGreen)
			faint := color.New(color.Faint)

			bold.Fprintf(out, "Week %s - %s: %d/%d (%.1f%%)\n", st.Monday, st.Sunday, st.Completed, st.Total, st.Percentage)
			for _, d := range plan.Annotate(p, doc.Records, now) {
				if len(d.Exercises) == 0 {
					faint.Fprintf(out, "\n%s: rest\n", d.Name)
					continue
				}
				fmt.Fprintf(out, "\n%s\n", dayHeading(d))
				for _, e := range d.Exercises {
					if e.Completed {
						done.Fprintf(out, "  ✓ %s\n", e.Name)
					} else {
						faint.Fprintf(out, "  · %s\n", e.Name)
					}
				}
			}
			return nil
		},
	}
}

func dayHeading(d plan.DayStatus) string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}
