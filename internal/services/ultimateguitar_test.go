package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

const searchStoreFixture = `{
	"store": {
		"page": {
			"data": {
				"results": [
					{"id": 1001, "song_name": "Wonderwall", "artist_name": "Oasis", "type": "Chords",
						"tab_url": "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-chords-27596"},
					{"marketing_type": "TabProAd", "tab_url": "https://example.com/ad"},
					{"id": 1002, "song_name": "Wonderwall", "artist_name": "Oasis", "type": "Pro",
						"tab_url": "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-guitar-pro-1"},
					{"id": "1003", "song_name": "Wonderwall", "artist_name": "Oasis", "type": "Tab",
						"tab_url": "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-tabs-2"},
					{"id": 1004, "song_name": "Wonderwall", "artist_name": "Oasis", "type": "Chords",
						"tab_url": "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-chords-27596/"},
					{"id": 1005, "song_name": "Wonderwall", "artist_name": "Oasis", "type": "Official",
						"tab_url": "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-official-3"}
				]
			}
		}
	}
}`

func TestParseSearchStore(t *testing.T) {
	t.Run("keeps ranked user tabs", func(t *testing.T) {
		got, err := parseSearchStore(searchStoreFixture)
		if err != nil {
			t.Fatalf("parseSearchStore() error = %v", err)
		}

		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
		}
		if got[0].ID != "1001" || got[0].Kind != "Chords" || got[0].Title != "Wonderwall" || got[0].Artist != "Oasis" {
			t.Errorf("unexpected first candidate %+v", got[0])
		}
		if got[1].ID != "1003" || got[1].Kind != "Tab" {
			t.Errorf("unexpected second candidate %+v", got[1])
		}
	})

	t.Run("empty results", func(t *testing.T) {
		got, err := parseSearchStore(`{"store": {"page": {"data": {}}}}`)
		if err != nil {
			t.Fatalf("parseSearchStore() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no candidates, got %+v", got)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		if _, err := parseSearchStore(`{not json`); !errors.Is(err, shared.ErrDriver) {
			t.Errorf("expected ErrDriver, got %v", err)
		}
	})
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://www.ultimate-guitar.com/", " Don't Stop Me Now Queen ")
	want := "https://www.ultimate-guitar.com/search.php?search_type=title&value=Don%27t+Stop+Me+Now+Queen"
	if got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
}

func TestTabKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute url", "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-chords-27596", "/tab/oasis/wonderwall-chords-27596"},
		{"trailing slash and query", "https://tabs.ultimate-guitar.com/tab/Oasis/Wonderwall-Chords-27596/?ref=x", "/tab/oasis/wonderwall-chords-27596"},
		{"relative path", "/tab/oasis/wonderwall-chords-27596", "/tab/oasis/wonderwall-chords-27596"},
		{"no path", "Opaque", "opaque"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tabKey(tt.in); got != tt.want {
				t.Errorf("tabKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFindPlaylist(t *testing.T) {
	entries := []playlistEntry{
		{Name: "Road Trip", URL: "https://www.ultimate-guitar.com/user/playlist/view/42"},
		{Name: "Campfire"},
	}

	t.Run("case insensitive", func(t *testing.T) {
		e, ok := findPlaylist(entries, "  road trip ")
		if !ok || e.Name != "Road Trip" {
			t.Errorf("findPlaylist() = %+v, %v", e, ok)
		}
		if id := playlistID(e); id != "42" {
			t.Errorf("playlistID() = %q, want 42", id)
		}
	})

	t.Run("falls back to name for id", func(t *testing.T) {
		e, _ := findPlaylist(entries, "Campfire")
		if id := playlistID(e); id != "campfire" {
			t.Errorf("playlistID() = %q, want campfire", id)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, ok := findPlaylist(entries, "Unknown"); ok {
			t.Error("expected no match")
		}
	})
}

func TestAddScript(t *testing.T) {
	script := addScript(`Dad's "Best" Songs`)
	if !strings.Contains(script, `("Dad's \"Best\" Songs")`) {
		t.Errorf("playlist name not safely embedded:\n%s", script)
	}
}

func TestInterpretAdd(t *testing.T) {
	tests := []struct {
		outcome string
		want    models.AddResult
		wantErr bool
	}{
		{"added", models.AddResultAdded, false},
		{"already_present", models.AddResultAlreadyPresent, false},
		{"no_button", models.AddResultAdded, true},
		{"no_playlist", models.AddResultAdded, true},
		{"", models.AddResultAdded, true},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got, err := interpretAdd(tt.outcome)
			if (err != nil) != tt.wantErr {
				t.Fatalf("interpretAdd() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, shared.ErrDriver) {
				t.Errorf("expected ErrDriver, got %v", err)
			}
			if err == nil && got != tt.want {
				t.Errorf("interpretAdd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUltimateGuitarService(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := NewUltimateGuitarService(UltimateGuitarOpts{BaseURL: "https://example.com/"})
		if svc.opts.BaseURL != "https://example.com" {
			t.Errorf("BaseURL = %q", svc.opts.BaseURL)
		}
		if svc.opts.Timeout != 20*time.Second {
			t.Errorf("Timeout = %v", svc.opts.Timeout)
		}
		if svc.Name() != "Ultimate Guitar" {
			t.Errorf("Name() = %q", svc.Name())
		}
	})

	t.Run("missing credentials fail without a browser", func(t *testing.T) {
		svc := NewUltimateGuitarService(UltimateGuitarOpts{})
		err := svc.Authenticate(context.Background(), map[string]string{"username": "u"})
		if !errors.Is(err, shared.ErrAuthFailed) || !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrAuthFailed and ErrMissingCredentials, got %v", err)
		}
		if svc.browserCtx != nil {
			t.Error("browser should not have been started")
		}
	})

	t.Run("snapshot hits skip the browser", func(t *testing.T) {
		svc := NewUltimateGuitarService(UltimateGuitarOpts{})
		handle := &models.PlaylistHandle{ID: "42", Name: "Road Trip"}
		svc.contents["42"] = map[string]bool{"/tab/oasis/wonderwall-chords-27596": true}

		got, err := svc.Add(context.Background(), handle, models.Candidate{
			URL: "https://tabs.ultimate-guitar.com/tab/oasis/wonderwall-chords-27596",
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if got != models.AddResultAlreadyPresent {
			t.Errorf("Add() = %v, want already present", got)
		}
	})

	t.Run("nil playlist handle", func(t *testing.T) {
		svc := NewUltimateGuitarService(UltimateGuitarOpts{})
		if _, err := svc.Add(context.Background(), nil, models.Candidate{}); !errors.Is(err, shared.ErrDriver) {
			t.Errorf("expected ErrDriver, got %v", err)
		}
	})

	t.Run("close without start", func(t *testing.T) {
		svc := NewUltimateGuitarService(UltimateGuitarOpts{})
		if err := svc.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}
