package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podspot/internal/fetch"
	"github.com/desertthunder/podspot/internal/services"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	spotify   *services.SpotifyService
	fetcher   fetch.Fetcher
	converter fetch.Converter
	logger    *log.Logger
	output    io.Writer
	input     io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Spotify   *services.SpotifyService
	Fetcher   fetch.Fetcher
	Converter fetch.Converter
	Logger    *log.Logger
	Output    io.Writer
	Input     io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.NewSpotdlFetcher()
	}
	if opts.Converter == nil {
		opts.Converter = fetch.NewFFmpegConverter()
	}

	return &Runner{
		config:    opts.Config,
		spotify:   opts.Spotify,
		fetcher:   opts.Fetcher,
		converter: opts.Converter,
		logger:    opts.Logger,
		output:    opts.Output,
		input:     opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, historyCommand, libraryCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner's logger, e.g. to a file logger while a TUI owns the screen.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reloads configuration from the command's --config flag when the
// file exists, falling back to the runner's current config.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil {
		if config, err := shared.LoadConfig(path); err == nil {
			r.config = config
			return config
		} else {
			r.logger.Warnf("failed to load config, using defaults %v", err)
		}
	}

	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// ensureSpotify builds the Spotify service from config credentials and installs
// the persisted user token when present.
func (r *Runner) ensureSpotify(ctx context.Context, config *shared.Config) error {
	if r.spotify == nil {
		if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
			return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
		}
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		svc.SetRateLimit(config.Downloads.RateLimit)
		r.spotify = svc
	}

	if token := config.Credentials.Spotify.Token(); token != nil {
		if err := r.spotify.OAuthenticate(ctx, token); err != nil {
			r.logger.Warnf("failed to install saved token %v", err)
		}
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
