package ui

import (
	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/tasks"
)

// playlistsFetchedMsg carries the source playlists for [PlaylistListView].
type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

// tracksFetchedMsg carries the selected playlist and its descriptors for [TrackListView].
type tracksFetchedMsg struct {
	playlist *models.Playlist
	tracks   []models.TrackDescriptor
	err      error
}

// progressUpdateMsg forwards a [tasks.ProgressUpdate] from the running engine.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg is sent once the engine returns.
type syncCompleteMsg struct {
	report *models.SyncReport
	err    error
}
