// Package config provides YAML (or TOML) configuration loading for MentorTrack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level MentorTrack configuration, loaded from mentortrack.yaml.
type Config struct {
	Database DatabaseConfig  `yaml:"database" toml:"database"`
	Server   ServerConfig    `yaml:"server" toml:"server"`
	Progress ProgressConfig  `yaml:"progress" toml:"progress"`
	Digest   DigestConfig    `yaml:"digest" toml:"digest"`
	Backup   BackupConfig    `yaml:"backup" toml:"backup"`
	Accounts []AccountConfig `yaml:"accounts" toml:"accounts"`
}

// DatabaseConfig selects and locates the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" toml:"driver"` // sqlite or mysql
	Path     string `yaml:"path" toml:"path"`     // sqlite file
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Name     string `yaml:"name" toml:"name"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port        int      `yaml:"port" toml:"port"`
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

// ProgressConfig holds the default look-back windows, in weeks.
type ProgressConfig struct {
	WindowWeeks   int `yaml:"window_weeks" toml:"window_weeks"`
	AnalysisWeeks int `yaml:"analysis_weeks" toml:"analysis_weeks"`
}

// DigestConfig controls the scheduled progress digest.
type DigestConfig struct {
	Schedule       string     `yaml:"schedule" toml:"schedule"`
	IncludeWarning bool       `yaml:"include_warning" toml:"include_warning"`
	DedupeTTL      string     `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
	Slack          ChatConfig `yaml:"slack" toml:"slack"`
	Discord        ChatConfig `yaml:"discord" toml:"discord"`

	dedupeTTL time.Duration
}

// ChatConfig identifies a bot and the channel digests are posted to.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token" toml:"bot_token"`
	ChannelID string `yaml:"channel_id" toml:"channel_id"`
}

// Enabled reports whether both the token and channel are set.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// BackupConfig controls archive creation.
type BackupConfig struct {
	Dir       string   `yaml:"dir" toml:"dir"`
	Root      string   `yaml:"root" toml:"root"`
	DataPaths []string `yaml:"data_paths" toml:"data_paths"`
	CodePaths []string `yaml:"code_paths" toml:"code_paths"`
	S3        S3Config `yaml:"s3" toml:"s3"`
}

// S3Config points at an optional S3-compatible bucket for off-machine copies.
type S3Config struct {
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Prefix    string `yaml:"prefix" toml:"prefix"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	Region    string `yaml:"region" toml:"region"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// AccountConfig is a user account seeded by `mt db init`.
type AccountConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Email  string `yaml:"email" toml:"email"`
	Role   string `yaml:"role" toml:"role"`
	Mentor string `yaml:"mentor" toml:"mentor"` // mentor's email, mentees only
}

// Load reads a config file from path and returns a validated Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML unmarshals TOML bytes into a validated Config.
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse toml: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DedupeWindow returns the parsed digest dedupe TTL.
func (d DigestConfig) DedupeWindow() time.Duration { return d.dedupeTTL }

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = filepath.Join("instance", "mentortrack.db")
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "mentortrack"
		}
	}
	c.Database.Password = os.ExpandEnv(c.Database.Password)

	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Progress.WindowWeeks == 0 {
		c.Progress.WindowWeeks = 16
	}
	if c.Progress.AnalysisWeeks == 0 {
		c.Progress.AnalysisWeeks = 12
	}

	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * 1"
	}
	if c.Digest.DedupeTTL == "" {
		c.Digest.DedupeTTL = "24h"
	}
	c.Digest.Slack.BotToken = os.ExpandEnv(c.Digest.Slack.BotToken)
	c.Digest.Discord.BotToken = os.ExpandEnv(c.Digest.Discord.BotToken)

	if c.Backup.Dir == "" {
		c.Backup.Dir = "backups"
	}
	if c.Backup.Root == "" {
		c.Backup.Root = "."
	}
	if len(c.Backup.DataPaths) == 0 {
		c.Backup.DataPaths = []string{"instance", filepath.Join("static", "uploads")}
	}
	if len(c.Backup.CodePaths) == 0 {
		c.Backup.CodePaths = []string{"cmd", "internal", "static", "go.mod", "go.sum", "mentortrack.yaml"}
	}
	c.Backup.S3.AccessKey = os.ExpandEnv(c.Backup.S3.AccessKey)
	c.Backup.S3.SecretKey = os.ExpandEnv(c.Backup.S3.SecretKey)

	for i := range c.Accounts {
		if c.Accounts[i].Role == "" {
			c.Accounts[i].Role = "mentee"
		}
		c.Accounts[i].Email = strings.ToLower(strings.TrimSpace(c.Accounts[i].Email))
		c.Accounts[i].Mentor = strings.ToLower(strings.TrimSpace(c.Accounts[i].Mentor))
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string

	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port %d out of range", c.Database.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if w := c.Progress.WindowWeeks; w < 1 || w > 52 {
		errs = append(errs, fmt.Sprintf("progress.window_weeks %d must be between 1 and 52", w))
	}
	if w := c.Progress.AnalysisWeeks; w < 1 || w > 52 {
		errs = append(errs, fmt.Sprintf("progress.analysis_weeks %d must be between 1 and 52", w))
	}

	if _, err := cron.ParseStandard(c.Digest.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("digest.schedule %q: %v", c.Digest.Schedule, err))
	}
	ttl, err := time.ParseDuration(c.Digest.DedupeTTL)
	if err != nil || ttl < 0 {
		errs = append(errs, fmt.Sprintf("digest.dedupe_ttl %q is not a valid duration", c.Digest.DedupeTTL))
	}
	c.Digest.dedupeTTL = ttl
	if (c.Digest.Slack.BotToken == "") != (c.Digest.Slack.ChannelID == "") {
		errs = append(errs, "digest.slack requires both bot_token and channel_id")
	}
	if (c.Digest.Discord.BotToken == "") != (c.Digest.Discord.ChannelID == "") {
		errs = append(errs, "digest.discord requires both bot_token and channel_id")
	}

	if c.Backup.S3.Enabled() && c.Backup.S3.Region == "" {
		errs = append(errs, "backup.s3.region is required when a bucket is set")
	}

	emails := make(map[string]string, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("accounts[%d].name is required", i))
		}
		if a.Email == "" {
			errs = append(errs, fmt.Sprintf("accounts[%d].email is required", i))
		} else if _, dup := emails[a.Email]; dup {
			errs = append(errs, fmt.Sprintf("accounts[%d].email %q is duplicated", i, a.Email))
		}
		switch a.Role {
		case "admin", "mentor", "mentee":
		default:
			errs = append(errs, fmt.Sprintf("accounts[%d].role %q must be admin, mentor or mentee", i, a.Role))
		}
		emails[a.Email] = a.Role
	}
	for i, a := range c.Accounts {
		if a.Mentor == "" {
			continue
		}
		if a.Role != "mentee" {
			errs = append(errs, fmt.Sprintf("accounts[%d].mentor is only valid for mentees", i))
			continue
		}
		if role, ok := emails[a.Mentor]; !ok || role == "mentee" {
			errs = append(errs, fmt.Sprintf("accounts[%d].mentor %q is not a configured mentor", i, a.Mentor))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
