package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tabx/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
	_ list.Item = outcomeItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.TrackDescriptor] to implement [list.Item].
type trackItem struct {
	track models.TrackDescriptor
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

// outcomeItem wraps [models.SyncOutcome] for the result list.
type outcomeItem struct {
	outcome models.SyncOutcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Descriptor.Title }
func (i outcomeItem) Title() string {
	return fmt.Sprintf("%s %s", styles.Status(i.outcome.Status).Render(i.outcome.Status.String()), i.outcome.Descriptor)
}
func (i outcomeItem) Description() string {
	switch {
	case i.outcome.Error != "":
		return i.outcome.Error
	case i.outcome.Match != nil && i.outcome.Match.Candidate != nil:
		return fmt.Sprintf("%s (%.2f)", i.outcome.Match.Candidate, i.outcome.Match.Confidence)
	default:
		return "no candidates"
	}
}
