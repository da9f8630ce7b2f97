package tasks

import (
	"fmt"

	"github.com/desertthunder/podspot/internal/fetch"
	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/sweep"
)

// ProgressUpdate represents a progress event during a dispatch.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Pipeline phase enumeration
type Phase int

const (
	PhaseMetadata Phase = iota
	PhaseFetch
	PhaseConvert
	PhaseSweep
	PhaseRecord
)

func (p Phase) String() string {
	switch p {
	case PhaseMetadata:
		return "metadata"
	case PhaseFetch:
		return "fetch"
	case PhaseConvert:
		return "convert"
	case PhaseSweep:
		return "sweep"
	case PhaseRecord:
		return "record"
	default:
		return ""
	}
}

func resolvingUpdate(target models.Target) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseMetadata,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching metadata for %s...", target.Describe()),
	}
}

func resolvedUpdate(meta *models.TargetMeta) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseMetadata,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found: %s - %s (%d tracks)", meta.Artist, meta.Album, len(meta.Tracks)),
		Data:    meta,
	}
}

func fetchingUpdate(format string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Downloading (%s)...", format),
	}
}

func fetchedUpdate(result *fetch.FetchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Download finished as %s after %d attempt(s)", result.Format, result.Attempts),
		Data:    result,
	}
}

func convertTrackUpdate(step, total int, track models.TrackMeta) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseConvert,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Converting: %s", step, total, track.Title),
	}
}

func convertedUpdate(converted, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseConvert,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Converted %d/%d tracks to AAC M4A", converted, total),
	}
}

func sweepUpdate(result sweep.Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSweep,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Swept %d intermediate file(s), kept %d", result.Removed, result.Kept),
		Data:    result,
	}
}

func recordUpdate(entry models.HistoryEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRecord,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s: %s (%d songs)", entry.Status, entry.Description, entry.SongCount),
		Data:    entry,
	}
}
