package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/podspot/internal/library"
	"github.com/desertthunder/podspot/internal/models"
)

var (
	_ list.Item = historyItem{}
	_ list.Item = libraryItem{}
)

// historyItem wraps [models.HistoryEntry] to implement [list.Item].
type historyItem struct {
	entry models.HistoryEntry
}

func (i historyItem) FilterValue() string { return i.entry.Description }
func (i historyItem) Title() string       { return i.entry.Description }
func (i historyItem) Description() string {
	return fmt.Sprintf("%d songs • %s • %s",
		i.entry.SongCount, i.entry.Status, i.entry.Timestamp.Format("2006-01-02 15:04"))
}

// libraryItem wraps [library.Item] to implement [list.Item].
type libraryItem struct {
	item library.Item
}

func (i libraryItem) FilterValue() string { return i.item.Title }
func (i libraryItem) Title() string {
	return fmt.Sprintf("%02d - %s", i.item.TrackNumber, i.item.Title)
}
func (i libraryItem) Description() string {
	return fmt.Sprintf("%s • %s", i.item.Artist, i.item.Album)
}
