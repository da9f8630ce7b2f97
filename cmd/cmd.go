// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand starts the interactive download prompt.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Interactive download prompt (default command)",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Run,
	}
}

// authCommand handles the browser-based Spotify login.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SpotifyAuth,
	}
}

// historyCommand reads and exports the download log.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect the download history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print recent download batches",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Export history to CSV",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}

// libraryCommand reads and exports the SQLite download catalog.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Inspect the download catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print cataloged tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to show",
						Value: 0,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.LibraryList,
			},
			{
				Name:  "export",
				Usage: "Export the catalog to CSV",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// setupCommand writes the starter config and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and run database migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level TUI command for browsing history and library.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive browser for history and library",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
