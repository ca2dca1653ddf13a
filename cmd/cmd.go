// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/formatter"
)

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tabx",
		Usage:   "Sync Spotify playlists to Ultimate Guitar",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func playlistFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "playlist",
			Aliases: []string{"p"},
			Usage:   "Spotify playlist ID (defaults to sync.playlist_id)",
		},
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "Ultimate Guitar playlist name (defaults to the Spotify playlist name)",
		},
	}
}

func reportFlags() []cli.Flag {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "report",
			Aliases: []string{"o"},
			Usage:   "Write the report to this file",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Report format: " + strings.Join(names, ", ") + " (inferred from --report when unset)",
		},
	}
}

// syncCommand runs a full sync
func syncCommand(r *Runner) *cli.Command {
	flags := append(playlistFlags(),
		&cli.StringFlag{
			Name:  "description",
			Usage: "Description for a newly created playlist",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Pick the playlist in the interactive UI",
		},
	)
	return &cli.Command{
		Name:   "sync",
		Usage:  "Add the tabs matching a Spotify playlist to an Ultimate Guitar playlist",
		Flags:  append(flags, reportFlags()...),
		Action: r.Sync,
	}
}

// previewCommand matches without changing anything
func previewCommand(r *Runner) *cli.Command {
	flags := append(playlistFlags(),
		&cli.BoolFlag{
			Name:  "list-only",
			Usage: "Only list the Spotify tracks, without searching Ultimate Guitar",
		},
	)
	return &cli.Command{
		Name:   "preview",
		Usage:  "Show what a sync would add, without modifying any playlist",
		Flags:  append(flags, reportFlags()...),
		Action: r.Preview,
	}
}

func diagnoseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "diagnose",
		Usage:  "Check config, Spotify access, the browser and the Ultimate Guitar login",
		Flags:  playlistFlags()[:1],
		Action: r.Diagnose,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to show",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, the history database or the Ultimate Guitar session",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "ug",
				Usage: "Import an Ultimate Guitar session from a browser 'Copy as cURL'",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
				},
				Action: r.SetupUltimateGuitar,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status (completed, aborted, failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run (by ID or sequence number) and its outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "run",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.HistoryShow,
			},
		},
	}
}

// tuiCommand launches the interactive UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Pick a playlist and run a preview or sync interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Ultimate Guitar playlist name (defaults to the Spotify playlist name)",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Description for a newly created playlist",
			},
		},
		Action: r.TUI,
	}
}
