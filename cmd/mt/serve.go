package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/dashboard"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noDigest   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MentorTrack API server",
		Long:  "Serves the JSON API and, when a chat platform is configured, runs the scheduled progress digest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noDigest)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	cmd.Flags().BoolVar(&noDigest, "no-digest", false, "do not run the scheduled digest")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noDigest bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if !noDigest {
		notifiers, err := buildNotifiers(cfg.Digest)
		if err != nil {
			return err
		}
		if len(notifiers) > 0 {
			sched, err := newScheduler(cfg, gormDB, notifiers)
			if err != nil {
				return err
			}
			go func() {
				if err := sched.Start(ctx); err != nil {
					log.Printf("serve: digest scheduler: %v", err)
				}
			}()
			fmt.Fprintf(out, "Digest scheduled (%s), next run %s\n",
				cfg.Digest.Schedule, sched.Next(time.Now()).Format("2006-01-02 15:04"))
		}
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:            gormDB,
		Port:          port,
		Out:           out,
		CORSOrigins:   cfg.Server.CORSOrigins,
		WindowWeeks:   cfg.Progress.WindowWeeks,
		AnalysisWeeks: cfg.Progress.AnalysisWeeks,
	})
}
