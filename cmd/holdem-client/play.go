package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-client/internal/client"
	"github.com/lox/holdem-client/internal/tui"
)

type PlayCmd struct{}

func (p *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if cfg.UI.NoColor {
		tui.SetNoColor()
	}

	logger.Info("Starting Holdem Client",
		"server", cfg.Server.URL,
		"player", cfg.Player.Name,
		"room", cfg.Player.Room,
		"config", g.Config)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	c := client.New(cfg.ClientOptions(), logger)
	defer func() { _ = c.Close() }()
	sub := c.Subscribe()

	model := tui.NewModel(c, logger, tui.Options{
		ServerURL:  cfg.Server.URL,
		RoomID:     cfg.Player.Room,
		PlayerName: cfg.Player.Name,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	if err := c.Join(cfg.Player.Room, cfg.Player.Name); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		err := tui.Pump(gctx, sub, program)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	grp.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	if err := grp.Wait(); err != nil {
		return err
	}

	if err := c.Err(); err != nil {
		return fmt.Errorf("session ended: %w", err)
	}
	return nil
}
