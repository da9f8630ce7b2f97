// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view browser over local state:
//  1. [HistoryView] : Scroll past download batches from the history log
//  2. [LibraryView] : Scroll cataloged tracks from the SQLite library
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Both stores load asynchronously on Init via tea.Cmd messages.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, q) with contextual
// help displayed via charmbracelet/bubbles/help. The package also exports the
// lipgloss render helpers the REPL uses for styled status lines.
package ui
