package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/notify"
	"github.com/zulandar/mentortrack/internal/report"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Progress digest commands",
	}

	cmd.AddCommand(newDigestSendCmd())
	return cmd
}

func newDigestSendCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the progress digest now",
		Long:  "Computes every mentee's progress and posts groups needing attention to the configured Slack and Discord channels.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigestSend(cmd, configPath, dryRun)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	return cmd
}

func runDigestSend(cmd *cobra.Command, configPath string, dryRun bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if dryRun {
		mentees, err := notify.MenteesFromDB(gormDB)(cmd.Context())
		if err != nil {
			return err
		}
		d, err := notify.BuildDigest(cmd.Context(), report.NewAggregator(gormDB), mentees, cfg.Progress.WindowWeeks, cfg.Digest.IncludeWarning)
		if err != nil {
			return err
		}
		msg := d.Message(d.Entries)
		fmt.Fprintln(out, msg.Text)
		for _, item := range msg.Items {
			fmt.Fprintf(out, "  %s: %s\n", item.Title, item.Body)
		}
		return nil
	}

	notifiers, err := buildNotifiers(cfg.Digest)
	if err != nil {
		return err
	}
	if len(notifiers) == 0 {
		return fmt.Errorf("no chat platform configured: set digest.slack or digest.discord in %s", configPath)
	}

	sched, err := newScheduler(cfg, gormDB, notifiers)
	if err != nil {
		return err
	}
	n, err := sched.RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Digest sent: %d product group(s) need attention\n", n)
	return nil
}
