package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/config"
	"github.com/zulandar/mentortrack/internal/db"
	"gorm.io/gorm"
)

const defaultConfigPath = "mentortrack.yaml"

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to MentorTrack config file")
}

// connectFromConfig loads the config and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}
