// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Slack (Socket Mode)
	SlackBotToken string `envconfig:"SCRIBE_SLACK_BOT_TOKEN"`
	SlackAppToken string `envconfig:"SCRIBE_SLACK_APP_TOKEN"` // xapp- token for Socket Mode
	// Moderators may end or cancel sprints they did not create.
	Moderators []string `envconfig:"SCRIBE_MODERATORS"`

	// Storage
	DBPath string `envconfig:"SCRIBE_DB_PATH" default:"scribe.db"`

	// Scheduler. The tick bounds scheduling precision: sprint starts/ends can
	// be late by up to one tick.
	DispatcherTick time.Duration `envconfig:"DISPATCHER_TICK" default:"30s"`

	// Sprints
	SprintDefaultLength int `envconfig:"SPRINT_DEFAULT_LENGTH" default:"20"` // minutes
	SprintMaxLength     int `envconfig:"SPRINT_MAX_LENGTH" default:"60"`     // minutes
	SprintDefaultDelay  int `envconfig:"SPRINT_DEFAULT_DELAY" default:"2"`   // minutes
	SprintMaxDelay      int `envconfig:"SPRINT_MAX_DELAY" default:"1440"`    // minutes
	WPMCeiling          int `envconfig:"SPRINT_WPM_CEILING" default:"150"`

	// Reminders
	ReminderStaleCutoff time.Duration `envconfig:"REMINDER_STALE_CUTOFF" default:"59m"`

	// Management API
	MgmtListenAddr string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAPIKey     string `envconfig:"MGMT_API_KEY"`
}

// SlackEnabled returns true if Slack tokens are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// Validate checks configuration invariants that envconfig defaults can't express.
func (c *Config) Validate() error {
	if c.DispatcherTick <= 0 {
		return fmt.Errorf("DISPATCHER_TICK must be positive, got %s", c.DispatcherTick)
	}
	if c.SprintMaxLength <= 0 || c.SprintDefaultLength <= 0 || c.SprintDefaultLength > c.SprintMaxLength {
		return fmt.Errorf("invalid sprint length bounds: default=%d max=%d", c.SprintDefaultLength, c.SprintMaxLength)
	}
	if c.WPMCeiling <= 0 {
		return fmt.Errorf("SPRINT_WPM_CEILING must be positive, got %d", c.WPMCeiling)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
