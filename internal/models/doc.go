// Package models defines domain entities and persistence interfaces for tabx.
//
// The package contains three groups of types:
//
// 1. Source and target data, exchanged with the services package
//   - [TrackDescriptor] : one Spotify track (title, credited artists, album, duration)
//   - [Candidate] : one Ultimate Guitar search result
//   - [Playlist] and [PlaylistHandle] : a source playlist and a resolved target playlist
//   - [AddResult] : whether an add created an entry or found it already there
//
// 2. Run results, built by the sync engine
//   - [MatchResult] and [Decision] : the matcher's verdict for one track
//   - [SyncOutcome] and [Status] : the per-track result, in source order
//   - [SyncReport] : the immutable result of a run, created through [ReportBuilder]
//
// 3. Persistent entities
//   - [RunRecord] : a summary of one run, stored by the history command
//
// Persistent entities implement the Model interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
