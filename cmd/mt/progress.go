package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"github.com/zulandar/mentortrack/internal/report"
)

func newProgressCmd() *cobra.Command {
	var (
		configPath string
		menteeID   uint
		weeks      int
	)

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show per-product-group progress for a mentee",
		Long: `Aggregates the mentee's weekly reports into one row per product group:
current stage, days in that stage, weeks since the group's first report and
a status (good, warning, danger, completed, cancelled).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd, configPath, menteeID, weeks)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&menteeID, "mentee", 0, "mentee user ID (required)")
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "look-back window in weeks (default from config)")
	cmd.MarkFlagRequired("mentee")
	return cmd
}

func runProgress(cmd *cobra.Command, configPath string, menteeID uint, weeks int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	mentee, err := account.RequireRole(gormDB, menteeID, models.RoleMentee)
	if err != nil {
		return err
	}

	weeks = progress.ClampWeeks(weeks, cfg.Progress.WindowWeeks)
	summaries, err := report.NewAggregator(gormDB).Compute(cmd.Context(), menteeID, weeks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Progress for %s (last %d weeks)\n\n", mentee.Name, weeks)
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No reports in this window.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tSTATUS\tSTAGE\tPIPELINE\tDAYS IN STAGE\tWEEKS\tREPORTS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			truncate(s.Name, 30), statusBadge(s.Status), s.CurrentStage.Label(),
			stageBar(s.CurrentStage), s.StageDuration, s.WeeksSinceStart, len(s.Reports))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var attention []string
	for _, s := range summaries {
		if s.Status == progress.StatusDanger {
			attention = append(attention, s.Name)
		}
	}
	if len(attention) > 0 {
		fmt.Fprintf(out, "\nNeeds attention: %s\n", strings.Join(attention, ", "))
	}
	return nil
}
