package models

import (
	"fmt"
	"time"
)

// Kind identifies what a line of user input resolved to.
type Kind string

const (
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindTrack    Kind = "track"
	KindLiked    Kind = "liked"

	// Control kinds never reach the dispatch engine.
	KindHistory Kind = "history"
	KindExit    Kind = "exit"
)

// Status records how a dispatch ended.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Target is a classified download target, immutable once created.
type Target struct {
	Kind Kind
	ID   string // Spotify resource ID, or "liked" for the saved-tracks collection
	URL  string // original input URL, empty for keyword targets
}

// Control reports whether the target is a REPL control keyword rather than
// something that can be dispatched.
func (t Target) Control() bool {
	return t.Kind == KindHistory || t.Kind == KindExit
}

// Describe returns a short human-readable label for status output and logging.
func (t Target) Describe() string {
	switch t.Kind {
	case KindLiked:
		return "Liked Songs"
	case KindHistory, KindExit:
		return string(t.Kind)
	default:
		return fmt.Sprintf("%s %s", t.Kind, t.ID)
	}
}

// TrackMeta is the per-track metadata used for tagging and output naming.
type TrackMeta struct {
	Number  int
	Title   string
	Artists string
	Album   string
}

// TargetMeta is the resolved metadata for a dispatch target.
//
// Artist and Album name the output folder ("Artist - Album"). For playlists
// the owner's display name stands in for the artist; for liked songs both are
// fixed sentinels.
type TargetMeta struct {
	Artist     string
	Album      string
	Tracks     []TrackMeta
	ArtworkURL string
}

// OutputItem is a playable file produced by a completed dispatch.
type OutputItem struct {
	Artist      string
	Album       string
	Title       string
	TrackNumber int
	Path        string
}

// HistoryEntry is one record of the append-only download log.
type HistoryEntry struct {
	Timestamp   time.Time
	Status      Status
	Description string // "Artist - Album"
	SongCount   int
	Format      string // e.g. "AAC M4A (from flac)"
}

// DispatchResult summarizes one complete run of the download pipeline.
type DispatchResult struct {
	Target    Target
	Meta      *TargetMeta
	Items     []OutputItem
	Converted int
	Status    Status
	Format    string // intermediate format the fetcher actually delivered
}
