// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "WaniKani username (optional when only one user is registered)",
	}
}

// setupCommand initializes the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// registerCommand exchanges a WaniKani token for a local API key
func registerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register a WaniKani API token and issue a local key",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "token",
				Aliases:  []string{"t"},
				Usage:    "WaniKani personal access token",
				Required: true,
			},
		},
		Action: r.Register,
	}
}

// syncCommand handles sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize WaniKani data into the local mirror",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every user whose data is stale",
			},
		},
		Action: r.Sync,
		Commands: []*cli.Command{
			{
				Name:   "subjects",
				Usage:  "Refresh the shared subject catalog",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.SyncSubjects,
			},
		},
	}
}

// serveCommand runs the HTTP surface and the background scheduler
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP HTTP server with the background sync scheduler",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override the configured listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
			&cli.BoolFlag{
				Name:  "no-scheduler",
				Usage: "Serve without the periodic sync loop",
			},
		},
		Action: r.Serve,
	}
}

// statusCommand prints the study snapshot
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show lessons, reviews, and level for a user",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// leechesCommand prints problem items
func leechesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "leeches",
		Usage: "Show items that keep failing reviews",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of leeches to return",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Leeches,
	}
}

// forecastCommand prints upcoming review volume
func forecastCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Show upcoming reviews bucketed by hour",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Forecast,
	}
}
