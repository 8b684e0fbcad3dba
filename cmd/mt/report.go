package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/models"
	"github.com/zulandar/mentortrack/internal/progress"
	"github.com/zulandar/mentortrack/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Weekly report commands",
	}

	cmd.AddCommand(newReportSubmitCmd())
	cmd.AddCommand(newReportListCmd())
	cmd.AddCommand(newReportShowCmd())
	cmd.AddCommand(newReportCommentCmd())
	return cmd
}

func newReportSubmitCmd() *cobra.Command {
	var (
		configPath string
		date       string
		opts       report.SubmitOpts
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a weekly report",
		Long: `Submits a weekly report for one product group.

Stages, in pipeline order: pre_proposal, estimate_completed, sample_approved,
decision_obtained, pre_production_sample_confirmed, first_order,
temporarily_listed, listing_live, second_lot_ordered. Use project_cancelled
to close a group without completing it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				opts.ReportDate = d
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			r, err := report.Submit(gormDB, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted report %d: %s at %s\n", r.ID, r.ProductGroupName, progress.Stage(r.PlanningStage).Label())
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&opts.MenteeID, "mentee", 0, "mentee user ID (required)")
	cmd.Flags().UintVar(&opts.ProductGroupID, "group", 0, "product group ID (required)")
	cmd.Flags().StringVar(&opts.Stage, "stage", "", "planning stage code (required)")
	cmd.Flags().IntVar(&opts.SelfEvaluation, "eval", 2, "self evaluation (1=stalled, 2=some progress, 3=on track)")
	cmd.Flags().StringVar(&opts.ProgressItems, "progress", "", "what moved forward this week")
	cmd.Flags().StringVar(&opts.ActionsTaken, "actions", "", "actions taken")
	cmd.Flags().StringVar(&opts.InsightsConcerns, "insights", "", "insights and concerns")
	cmd.Flags().StringVar(&opts.Reflections.TimeConsumingTask, "time-consuming", "", "task that took the most time")
	cmd.Flags().StringVar(&opts.Reflections.DifficultDecision, "difficult-decision", "", "hardest decision this week")
	cmd.Flags().StringVar(&opts.Reflections.LearnedFromSenior, "learned", "", "what you learned from a senior")
	cmd.Flags().StringVar(&opts.Reflections.OwnDecision, "own-decision", "", "a decision you made on your own")
	cmd.Flags().StringVar(&opts.Reflections.RedidTask, "redid", "", "a task you had to redo")
	cmd.Flags().StringVar(&date, "date", "", "report date, YYYY-MM-DD (default today)")
	cmd.MarkFlagRequired("mentee")
	cmd.MarkFlagRequired("group")
	cmd.MarkFlagRequired("stage")
	return cmd
}

func newReportListCmd() *cobra.Command {
	var (
		configPath string
		filters    report.ListFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			reports, err := report.List(gormDB, filters)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No reports found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tMENTEE\tGROUP\tSTAGE\tEVAL")
			for _, r := range reports {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%d\n",
					r.ID, r.ReportDate.Format("2006-01-02"), r.MenteeID,
					truncate(r.ProductGroupName, 30), r.PlanningStage, r.SelfEvaluation)
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&filters.MenteeID, "mentee", 0, "filter by mentee ID")
	cmd.Flags().UintVar(&filters.ProductGroupID, "group", 0, "filter by product group ID")
	cmd.Flags().IntVar(&filters.Limit, "limit", 0, "maximum number of reports")
	return cmd
}

func newReportShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a report with the previous week's report and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			r, err := report.Get(gormDB, id)
			if err != nil {
				return err
			}
			prev, err := report.Previous(gormDB, r)
			if err != nil {
				return err
			}
			return printReport(cmd, r, prev)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func printReport(cmd *cobra.Command, r, prev *models.WeeklyReport) error {
	out := cmd.OutOrStdout()
	refl, err := report.DecodeReflections(r)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Report %d\n", r.ID)
	fmt.Fprintf(out, "Mentee:          %d\n", r.MenteeID)
	fmt.Fprintf(out, "Product group:   %s\n", r.ProductGroupName)
	fmt.Fprintf(out, "Stage:           %s\n", progress.Stage(r.PlanningStage).Label())
	fmt.Fprintf(out, "Self evaluation: %d\n", r.SelfEvaluation)
	fmt.Fprintf(out, "Date:            %s (week of %s)\n", r.ReportDate.Format("2006-01-02"), r.WeekStart.Format("2006-01-02"))

	printSection(out, "Progress", r.ProgressItems)
	printSection(out, "Actions", r.ActionsTaken)
	printSection(out, "Insights / concerns", r.InsightsConcerns)
	printSection(out, "Most time-consuming task", refl.TimeConsumingTask)
	printSection(out, "Difficult decision", refl.DifficultDecision)
	printSection(out, "Learned from a senior", refl.LearnedFromSenior)
	printSection(out, "Own decision", refl.OwnDecision)
	printSection(out, "Redone task", refl.RedidTask)

	if prev != nil {
		fmt.Fprintf(out, "\nPrevious week: report %d, %s, %s\n",
			prev.ID, prev.ProductGroupName, progress.Stage(prev.PlanningStage).Label())
	}

	if len(r.Comments) > 0 {
		fmt.Fprintln(out, "\nComments:")
		for _, c := range r.Comments {
			fmt.Fprintf(out, "  [%s] mentor %d: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.MentorID, c.Body)
		}
	}
	return nil
}

func newReportCommentCmd() *cobra.Command {
	var (
		configPath string
		mentorID   uint
		body       string
	)

	cmd := &cobra.Command{
		Use:   "comment <report-id>",
		Short: "Add mentor feedback to a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			c, err := report.AddComment(gormDB, id, mentorID, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added comment %d to report %d\n", c.ID, id)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&mentorID, "mentor", 0, "mentor user ID (required)")
	cmd.Flags().StringVar(&body, "body", "", "comment text (required)")
	cmd.MarkFlagRequired("mentor")
	cmd.MarkFlagRequired("body")
	return cmd
}
