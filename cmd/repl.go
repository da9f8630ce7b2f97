package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/desertthunder/podspot/internal/targets"
	"github.com/desertthunder/podspot/internal/tasks"
	"github.com/desertthunder/podspot/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run starts the interactive download prompt.
//
// A missing spotdl binary is a fatal startup error; everything after that is
// reported at the prompt and the loop keeps running.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if err := r.fetcher.Check(ctx); err != nil {
		return fmt.Errorf("spotdl is required to download audio: %w", err)
	}

	if err := r.ensureSpotify(ctx, config); err != nil {
		return err
	}

	hist := history.NewLog(config.Downloads.HistoryPath())

	var catalog *library.Repository
	if db, err := shared.NewDatabase(config.Database.Path); err != nil {
		r.logger.Warnf("library catalog unavailable %v", err)
	} else {
		defer db.Close()
		if err := shared.RunMigrations(db); err != nil {
			r.logger.Warnf("failed to run migrations %v", err)
		} else {
			catalog = library.NewRepository(db)
		}
	}

	engine := tasks.NewEngine(tasks.EngineOpts{
		Metadata:  r.spotify,
		Fetcher:   r.fetcher,
		Converter: r.converter,
		History:   hist,
		Catalog:   catalog,
		Downloads: config.Downloads,
		Logger:    shared.WithLogger(r.logger, "component", "dispatch"),
	})

	return r.repl(ctx, engine, hist)
}

// repl reads one line per iteration and runs each dispatch to completion
// before prompting again.
func (r *Runner) repl(ctx context.Context, engine tasks.DispatchEngine, hist *history.Log) error {
	r.writePlain("%s\n", ui.Title("PodSpot — Spotify downloads for iPod"))
	r.writePlain("%s\n\n", ui.Help(targets.UsageHint))

	scanner := bufio.NewScanner(r.input)
	for {
		r.writePlain("> ")
		if !scanner.Scan() {
			// EOF or interrupt ends the session
			r.writePlain("\n")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		target, err := targets.Classify(line)
		if err != nil {
			r.writePlain("%s\n%s\n", ui.Warn("Unrecognized input."), ui.Help(targets.UsageHint))
			continue
		}

		switch target.Kind {
		case models.KindExit:
			return nil
		case models.KindHistory:
			if err := r.printHistory(hist, 10); err != nil {
				r.writePlain("%s\n", ui.Err(fmt.Sprintf("Failed to read history: %v", err)))
			}
			continue
		}

		r.dispatch(ctx, engine, target)
	}
}

// dispatch runs one pipeline pass and prints a styled summary. Errors are
// reported at the prompt, never propagated: the loop must survive them.
func (r *Runner) dispatch(ctx context.Context, engine tasks.DispatchEngine, target models.Target) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		for update := range progress {
			r.writePlain("%s\n", ui.Help(update.Message))
		}
		close(done)
	}()

	result, err := engine.Dispatch(ctx, progress, target)
	close(progress)
	<-done

	if err != nil {
		r.writePlain("%s\n", ui.Err(fmt.Sprintf("✗ %s: %v", target.Describe(), err)))
		return
	}

	summary := fmt.Sprintf("%s - %s (%d songs, %s)",
		result.Meta.Artist, result.Meta.Album, result.Converted, result.Format)

	switch result.Status {
	case models.StatusSuccess:
		r.writePlain("%s\n", ui.OK("✓ Finished: "+summary))
	case models.StatusPartial:
		r.writePlain("%s\n", ui.Warn("⚠ Partial: "+summary))
	default:
		r.writePlain("%s\n", ui.Err("✗ Failed: "+summary))
	}
}

func (r *Runner) printHistory(hist *history.Log, n int) error {
	entries, err := hist.Recent(n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.writePlain("%s\n", ui.Help("No downloads recorded yet."))
		return nil
	}
	for _, entry := range entries {
		r.writePlain("%s\n", history.FormatEntry(entry))
	}
	return nil
}
