package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/podspot/internal/formatter"
	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the most recent download batches from the log.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	hist := history.NewLog(config.Downloads.HistoryPath())
	entries, err := hist.Recent(int(limit))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if useJSON {
		return r.writeJSON(entries, pretty)
	}

	if len(entries) == 0 {
		return r.writePlain("No downloads recorded yet.\n")
	}

	for _, entry := range entries {
		r.writePlain("%s\n", history.FormatEntry(entry))
	}
	return nil
}

// HistoryExport writes the full history to a CSV file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	output := cmd.String("output")

	hist := history.NewLog(config.Downloads.HistoryPath())
	entries, err := hist.Recent(0)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	written, err := formatter.WriteHistoryExport(entries, output)
	if err != nil {
		return err
	}

	r.logger.Infof("exported %v history entries", len(entries))
	return r.writePlain("✓ History exported to %s\n", written)
}

// openCatalog opens the SQLite catalog for read commands.
// The returned closer must be deferred by the caller.
func (r *Runner) openCatalog(config *shared.Config) (*library.Repository, func(), error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return library.NewRepository(db), func() { db.Close() }, nil
}

// LibraryList prints cataloged tracks in artist/album/track order.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	catalog, closeDB, err := r.openCatalog(config)
	if err != nil {
		return err
	}
	defer closeDB()

	items, err := catalog.List(int(limit))
	if err != nil {
		return fmt.Errorf("failed to list library: %w", err)
	}

	if useJSON {
		return r.writeJSON(items, pretty)
	}

	if len(items) == 0 {
		return r.writePlain("Library is empty.\n")
	}

	r.writePlain("%s", formatter.LibraryToText(items))
	return nil
}

// LibraryExport writes the catalog to a CSV file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	output := cmd.String("output")

	catalog, closeDB, err := r.openCatalog(config)
	if err != nil {
		return err
	}
	defer closeDB()

	items, err := catalog.List(0)
	if err != nil {
		return fmt.Errorf("failed to list library: %w", err)
	}

	written, err := formatter.WriteLibraryExport(items, output)
	if err != nil {
		return err
	}

	r.logger.Infof("exported %v library rows", len(items))
	return r.writePlain("✓ Library exported to %s\n", written)
}
