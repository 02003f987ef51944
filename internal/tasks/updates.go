package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display. The engine
// never blocks on the channel, so slow consumers only miss updates.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchTopTracks Phase = iota
	FetchRecentPlays
	ResolveArtists
	FetchFeatures
	PersistBatch
	RecordRun
)

func (p Phase) String() string {
	switch p {
	case FetchTopTracks:
		return "fetch_top_tracks"
	case FetchRecentPlays:
		return "fetch_recent_plays"
	case ResolveArtists:
		return "resolve_artists"
	case FetchFeatures:
		return "fetch_features"
	case PersistBatch:
		return "persist_batch"
	case RecordRun:
		return "record_run"
	default:
		return ""
	}
}

func resolvingArtistUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving artist genres (%d/%d)...", step, total),
	}
}

func phaseUpdate(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Step: 1, Total: 1, Message: message}
}
