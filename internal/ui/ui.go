package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podspot/internal/history"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HistoryView ViewState = iota
	LibraryView
)

// historyListLimit bounds how many log entries the browser loads.
const historyListLimit = 100

// Model represents the TUI application state.
type Model struct {
	view        ViewState
	historyLog  *history.Log
	catalog     *library.Repository
	width       int
	height      int
	historyList list.Model
	libraryList list.Model
	hasCatalog  bool
	err         error
	help        help.Model
	keys        keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	toggle key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		toggle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch view"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.toggle, k.quit},
	}
}

type historyLoadedMsg struct {
	entries []models.HistoryEntry
	err     error
}

type libraryLoadedMsg struct {
	items []library.Item
	err   error
}

// NewModel creates a new TUI model with the provided stores.
// A nil catalog disables the library view.
func NewModel(historyLog *history.Log, catalog *library.Repository) *Model {
	return &Model{
		view:       HistoryView,
		historyLog: historyLog,
		catalog:    catalog,
		hasCatalog: catalog != nil,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init loads history and library entries.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadHistory(), m.loadLibrary())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.historyList.SetSize(msg.Width-4, msg.Height-8)
		m.libraryList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.hasCatalog {
				if m.view == HistoryView {
					m.view = LibraryView
				} else {
					m.view = HistoryView
				}
			}
			return m, nil
		}

	case historyLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.entries))
		for i, entry := range msg.entries {
			items[i] = historyItem{entry: entry}
		}
		m.historyList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.historyList.Title = "Download History"
		m.historyList.SetSize(m.width-4, m.height-8)
		return m, nil

	case libraryLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.items))
		for i, item := range msg.items {
			items[i] = libraryItem{item: item}
		}
		m.libraryList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.libraryList.Title = "Library"
		m.libraryList.SetSize(m.width-4, m.height-8)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case HistoryView:
		m.historyList, cmd = m.historyList.Update(msg)
	case LibraryView:
		m.libraryList, cmd = m.libraryList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case HistoryView:
		body = m.historyList.View()
	case LibraryView:
		body = m.libraryList.View()
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.historyLog.Recent(historyListLimit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		if m.catalog == nil {
			return libraryLoadedMsg{}
		}
		items, err := m.catalog.List(0)
		return libraryLoadedMsg{items: items, err: err}
	}
}
