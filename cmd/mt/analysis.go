package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"github.com/zulandar/mentortrack/internal/report"
)

func newAnalysisCmd() *cobra.Command {
	var (
		configPath string
		menteeID   uint
		weeks      int
	)

	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Show week-by-week report activity for a mentee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, configPath, menteeID, weeks)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&menteeID, "mentee", 0, "mentee user ID (required)")
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "number of weeks (default from config)")
	cmd.MarkFlagRequired("mentee")
	return cmd
}

func runAnalysis(cmd *cobra.Command, configPath string, menteeID uint, weeks int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	mentee, err := account.RequireRole(gormDB, menteeID, models.RoleMentee)
	if err != nil {
		return err
	}

	weeks = progress.ClampWeeks(weeks, cfg.Progress.AnalysisWeeks)
	a, err := report.NewAggregator(gormDB).Analyze(cmd.Context(), menteeID, weeks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Weekly analysis for %s (last %d weeks)\n\n", mentee.Name, weeks)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WEEK OF\tREPORTS\tAVG EVAL\tSTAGES")
	for _, b := range a.Weeks {
		avg := "-"
		if b.Reports > 0 {
			avg = fmt.Sprintf("%.1f", b.AverageSelfEvaluation)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", b.WeekStart.Format("2006-01-02"), b.Reports, avg, formatStageCounts(b.Stages))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal reports: %d", a.TotalReports)
	if a.TotalReports > 0 {
		fmt.Fprintf(out, ", average self evaluation %.2f", a.AverageSelfEvaluation)
	}
	fmt.Fprintln(out)
	return nil
}

// formatStageCounts lists stage counts in pipeline order, cancelled last.
func formatStageCounts(counts map[progress.Stage]int) string {
	if len(counts) == 0 {
		return "-"
	}
	stages := make([]progress.Stage, 0, len(counts))
	for s := range counts {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		a, b := stages[i].Index(), stages[j].Index()
		if a < 0 {
			a = len(progress.Pipeline)
		}
		if b < 0 {
			b = len(progress.Pipeline)
		}
		if a != b {
			return a < b
		}
		return stages[i] < stages[j]
	})

	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("%s×%d", s.Label(), counts[s])
	}
	return strings.Join(parts, ", ")
}
