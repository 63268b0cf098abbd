package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-client/internal/config"
	"github.com/lox/holdem-client/internal/logging"
)

// Globals are flags shared by every command. They override the config file
// and the environment.
type Globals struct {
	Config   string `short:"c" default:"holdem-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   string `short:"p" help:"Player name (overrides config)"`
	Room     string `short:"r" help:"Room to join (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
	NoColor  bool   `help:"Disable colors"`
}

// loadConfig merges file, environment and flags, in that order. When the
// player name is still missing and prompt is set, it is read from in.
func (g *Globals) loadConfig(in io.Reader, prompt io.Writer) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	cfg.ApplyEnv()

	if g.Server != "" {
		cfg.Server.URL = g.Server
	}
	if g.Player != "" {
		cfg.Player.Name = g.Player
	}
	if g.Room != "" {
		cfg.Player.Room = g.Room
	}
	if g.LogLevel != "" {
		cfg.UI.LogLevel = strings.ToLower(g.LogLevel)
	}
	if g.LogFile != "" {
		cfg.UI.LogFile = g.LogFile
	}
	if g.NoColor {
		cfg.UI.NoColor = true
	}

	if cfg.Player.Name == "" && in != nil {
		fmt.Fprint(prompt, "Enter your player name: ")
		line, _ := bufio.NewReader(in).ReadString('\n')
		cfg.Player.Name = strings.TrimSpace(line)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		File:       cfg.UI.LogFile,
		Level:      cfg.UI.LogLevel,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}
