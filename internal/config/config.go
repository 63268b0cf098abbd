// Package config loads the client's HCL configuration file and applies
// environment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-client/internal/client"
)

// Environment variable names that override the file
const (
	EnvServer   = "HOLDEM_SERVER"
	EnvPlayer   = "HOLDEM_PLAYER"
	EnvRoom     = "HOLDEM_ROOM"
	EnvLogLevel = "HOLDEM_LOG_LEVEL"
)

// Config represents the complete client configuration
type Config struct {
	Server ServerConnection `hcl:"server,block"`
	Player PlayerSettings   `hcl:"player,block"`
	UI     *UISettings      `hcl:"ui,block"`
	Log    *LogSettings     `hcl:"log,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL               string `hcl:"url,optional"`
	ConnectTimeout    int    `hcl:"connect_timeout,optional"`    // seconds
	ReconnectAttempts int    `hcl:"reconnect_attempts,optional"` // retries after the first failure
	ReconnectDelayMS  int    `hcl:"reconnect_delay_ms,optional"`
	PingInterval      int    `hcl:"ping_interval,optional"` // seconds
	SendBuffer        int    `hcl:"send_buffer,optional"`
}

// PlayerSettings says who to sit down as, and where
type PlayerSettings struct {
	Name string `hcl:"name,optional"`
	Room string `hcl:"room,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	NoColor  bool   `hcl:"no_color,optional"`
}

// LogSettings controls rotation of the log file
type LogSettings struct {
	MaxSizeMB  int `hcl:"max_size_mb,optional"`
	MaxBackups int `hcl:"max_backups,optional"`
	MaxAgeDays int `hcl:"max_age_days,optional"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Server: ServerConnection{
			URL:               "ws://localhost:3000/ws",
			ConnectTimeout:    10,
			ReconnectAttempts: 5,
			ReconnectDelayMS:  1000,
			PingInterval:      54,
			SendBuffer:        256,
		},
		Player: PlayerSettings{
			Room: "default",
		},
		UI: &UISettings{
			LogLevel: "warn",
			LogFile:  "holdem-client.log",
		},
		Log: &LogSettings{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults; zero values in the file are replaced by defaults as well.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.ConnectTimeout == 0 {
		c.Server.ConnectTimeout = defaults.Server.ConnectTimeout
	}
	if c.Server.ReconnectAttempts == 0 {
		c.Server.ReconnectAttempts = defaults.Server.ReconnectAttempts
	}
	if c.Server.ReconnectDelayMS == 0 {
		c.Server.ReconnectDelayMS = defaults.Server.ReconnectDelayMS
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = defaults.Server.PingInterval
	}
	if c.Server.SendBuffer == 0 {
		c.Server.SendBuffer = defaults.Server.SendBuffer
	}

	if c.Player.Room == "" {
		c.Player.Room = defaults.Player.Room
	}

	if c.UI == nil {
		c.UI = defaults.UI
	}
	if c.UI.LogLevel == "" {
		c.UI.LogLevel = defaults.UI.LogLevel
	}
	if c.UI.LogFile == "" {
		c.UI.LogFile = defaults.UI.LogFile
	}

	if c.Log == nil {
		c.Log = defaults.Log
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = defaults.Log.MaxAgeDays
	}
}

// ApplyEnv overrides settings from HOLDEM_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvPlayer); v != "" {
		c.Player.Name = v
	}
	if v := os.Getenv(EnvRoom); v != "" {
		c.Player.Room = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.UI.LogLevel = strings.ToLower(v)
	}
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}

	if c.Player.Name == "" {
		return fmt.Errorf("player name is required")
	}

	if c.Player.Room == "" {
		return fmt.Errorf("room is required")
	}

	if c.Server.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}

	if c.Server.ReconnectAttempts < 0 {
		return fmt.Errorf("reconnect attempts cannot be negative")
	}

	if c.Server.ReconnectDelayMS <= 0 {
		return fmt.Errorf("reconnect delay must be positive")
	}

	if c.Server.PingInterval <= 0 {
		return fmt.Errorf("ping interval must be positive")
	}

	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.UI.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings cannot be negative")
	}

	return nil
}

// ClientOptions converts the server settings into connection manager options
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		URL:               c.Server.URL,
		ConnectTimeout:    time.Duration(c.Server.ConnectTimeout) * time.Second,
		ReconnectAttempts: c.Server.ReconnectAttempts,
		ReconnectDelay:    time.Duration(c.Server.ReconnectDelayMS) * time.Millisecond,
		PingInterval:      time.Duration(c.Server.PingInterval) * time.Second,
		SendBuffer:        c.Server.SendBuffer,
	}
}
