package tasks

import (
	"fmt"

	"github.com/desertthunder/tabx/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Authenticate
	EnsurePlaylist
	SearchTracks
	RecordOutcome
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Authenticate:
		return "authenticate"
	case EnsurePlaylist:
		return "ensure_playlist"
	case SearchTracks:
		return "search_tracks"
	case RecordOutcome:
		return "record_outcome"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchingSourceUpdate(name, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist %s from %s...", playlistID, name),
	}
}

func foundPlaylistUpdate(pl *models.Playlist, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, total),
		Data:    pl,
	}
}

func authenticateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signing in to %s...", name),
	}
}

func ensurePlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnsurePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving playlist %q...", name),
	}
}

func playlistReadyUpdate(h *models.PlaylistHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnsurePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist ready: %s", h.Name),
		Data:    h,
	}
}

func searchTrackUpdate(step, total int, d models.TrackDescriptor) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, d),
	}
}

func outcomeUpdate(step, total int, o models.SyncOutcome) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s %s", step, total, o.Status, o.Descriptor)
	if o.Error != "" {
		msg = fmt.Sprintf("%s: %s", msg, o.Error)
	}
	return ProgressUpdate{
		Phase:   RecordOutcome,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    o,
	}
}

func completeUpdate(r *models.SyncReport) ProgressUpdate {
	c := r.Counts()
	msg := fmt.Sprintf("Done: %d tracks, %d synced, %d not found, %d ambiguous, %d failed",
		r.Len(), c.Synced(), c.NotFound, c.Ambiguous, c.Failed)
	if r.Aborted() {
		msg = fmt.Sprintf("Aborted after %d tracks", r.Len())
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    r.Len(),
		Total:   r.Len(),
		Message: msg,
		Data:    r,
	}
}
