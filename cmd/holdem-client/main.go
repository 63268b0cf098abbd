package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" default:"1" help:"Join a room and play in the terminal UI"`
	Watch   WatchCmd         `cmd:"" help:"Join a room and print every event without a UI"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem-client"),
		kong.Description("Terminal client for multiplayer Texas Hold'em rooms"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
