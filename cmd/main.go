package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podspot/internal/services"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("PODSPOT_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	var spotifyService *services.SpotifyService

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotifyService = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Spotify: spotifyService,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "podspot",
		Usage:    "Download Spotify albums, playlists, and liked songs as iPod-ready AAC M4A",
		Version:  "0.3.0",
		Commands: runner.register(),
		Action:   runner.Run, // bare `podspot` drops into the prompt
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
