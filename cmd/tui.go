package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/shared"
	"github.com/desertthunder/podspot/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive browser for history and library.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/podspot-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

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

	model := ui.NewModel(hist, catalog)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
