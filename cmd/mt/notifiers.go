package main

import (
	"github.com/zulandar/mentortrack/internal/config"
	"github.com/zulandar/mentortrack/internal/notify"
	"github.com/zulandar/mentortrack/internal/notify/discord"
	"github.com/zulandar/mentortrack/internal/notify/slack"
	"github.com/zulandar/mentortrack/internal/report"
	"gorm.io/gorm"
)

// buildNotifiers returns a notifier for every chat platform enabled in cfg.
func buildNotifiers(cfg config.DigestConfig) ([]notify.Notifier, error) {
	var out []notify.Notifier
	if cfg.Slack.Enabled() {
		n, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if cfg.Discord.Enabled() {
		n, err := discord.New(discord.Opts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// newScheduler wires the digest scheduler to the database and configured notifiers.
func newScheduler(cfg *config.Config, gormDB *gorm.DB, notifiers []notify.Notifier) (*notify.Scheduler, error) {
	return notify.NewScheduler(notify.SchedulerOpts{
		Schedule:       cfg.Digest.Schedule,
		Aggregator:     report.NewAggregator(gormDB),
		Mentees:        notify.MenteesFromDB(gormDB),
		Notifiers:      notifiers,
		WindowWeeks:    cfg.Progress.WindowWeeks,
		IncludeWarning: cfg.Digest.IncludeWarning,
		DedupeTTL:      cfg.Digest.DedupeWindow(),
	})
}
