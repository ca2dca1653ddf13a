package models

import (
	"fmt"
	"strings"
)

// TrackDescriptor identifies a song from the source playlist.
//
// Its identity is its position in the fetched sequence; SourceID is informational.
type TrackDescriptor struct {
	Title      string `json:"title" yaml:"title"`
	Artist     string `json:"artist" yaml:"artist"`
	Album      string `json:"album,omitempty" yaml:"album,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	SourceID   string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
}

func (d TrackDescriptor) String() string {
	if d.Artist == "" {
		return d.Title
	}
	return fmt.Sprintf("%s - %s", d.Title, d.Artist)
}

// Artists splits the credited artist string into individual names.
func (d TrackDescriptor) Artists() []string {
	var names []string
	for part := range strings.SplitSeq(d.Artist, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PrimaryArtist is the first credited artist.
func (d TrackDescriptor) PrimaryArtist() string {
	if names := d.Artists(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Candidate is a single search result from the target site, not yet confirmed to match.
type Candidate struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist,omitempty" yaml:"artist,omitempty"`
	URL    string `json:"url" yaml:"url"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

func (c Candidate) String() string {
	s := c.Title
	if c.Artist != "" {
		s = fmt.Sprintf("%s - %s", c.Title, c.Artist)
	}
	if c.Kind != "" {
		s = fmt.Sprintf("%s [%s]", s, c.Kind)
	}
	return s
}

// Playlist represents a playlist on either side of a sync.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	URL         string `json:"url,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// PlaylistHandle is the resolved destination playlist for a run.
type PlaylistHandle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AddResult is the driver's report of an add action.
type AddResult int

const (
	AddResultAdded AddResult = iota
	AddResultAlreadyPresent
)

func (r AddResult) String() string {
	if r == AddResultAlreadyPresent {
		return "already_present"
	}
	return "added"
}
