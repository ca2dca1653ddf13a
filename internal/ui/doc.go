// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for a playlist sync:
//  1. [PlaylistListView] : Browse and select Spotify playlists
//  2. [TrackListView] : Inspect the source tracks
//  3. [ConfirmView] : Choose a sync or a preview run
//  4. [SyncView] : Monitor progress updates from the engine
//  5. [ResultView] : Browse the per-track outcomes and counts
//
// Progress updates flow through a channel from the SyncEngine; the final report arrives as a single message once the run returns.
// Stopping a run cancels its context, so the engine finishes the current track and reports the processed prefix.
package ui
