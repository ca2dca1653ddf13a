package matcher

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

func mustMatcher(t *testing.T, cfg Config) *Matcher {
	t.Helper()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"high of one", Config{High: 1, Low: 0.5, TitleWeight: 1}, false},
		{"low equals high", Config{High: 0.7, Low: 0.7, TitleWeight: 1}, true},
		{"low above high", Config{High: 0.5, Low: 0.7, TitleWeight: 1}, true},
		{"zero low", Config{High: 0.9, Low: 0, TitleWeight: 1}, true},
		{"high above one", Config{High: 1.2, Low: 0.5, TitleWeight: 1}, true},
		{"negative weight", Config{High: 0.9, Low: 0.5, TitleWeight: -1, ArtistWeight: 2}, true},
		{"zero weights", Config{High: 0.9, Low: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestMatcherMatch(t *testing.T) {
	m := mustMatcher(t, DefaultConfig())

	t.Run("qualifiers do not affect an exact match", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Song (Live)", Artist: "Artist"}
		got := m.Match(d, []models.Candidate{{Title: "song", Artist: "artist"}})

		if got.Decision != models.DecisionMatched {
			t.Errorf("Decision = %v, want MATCHED", got.Decision)
		}
		if math.Abs(got.Confidence-1) > 1e-9 {
			t.Errorf("Confidence = %v, want 1.0", got.Confidence)
		}
	})

	t.Run("titles opening with brackets keep them", func(t *testing.T) {
		tests := []struct {
			title, candidate, artist string
		}{
			{"(I Can't Get No) Satisfaction", "I Can't Get No Satisfaction", "The Rolling Stones"},
			{"(Don't Fear) The Reaper", "Dont Fear The Reaper", "Blue Öyster Cult"},
			{"(Sittin' On) The Dock of the Bay - Remastered", "Sittin On The Dock Of The Bay", "Otis Redding"},
		}
		for _, tt := range tests {
			d := models.TrackDescriptor{Title: tt.title, Artist: tt.artist}
			got := m.Match(d, []models.Candidate{{Title: tt.candidate, Artist: tt.artist}})
			if got.Decision != models.DecisionMatched {
				t.Errorf("%q: got %v (%.2f), want MATCHED", tt.title, got.Decision, got.Confidence)
			}
		}
	})

	t.Run("leading featuring word is part of the title", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Ft. Lauderdale", Artist: "Artist"}
		got := m.Match(d, []models.Candidate{{Title: "Featuring Nobody", Artist: "Artist"}})
		if got.Decision == models.DecisionMatched {
			t.Errorf("got MATCHED (%.2f) for an unrelated title", got.Confidence)
		}

		got = m.Match(d, []models.Candidate{{Title: "Ft. Lauderdale", Artist: "Artist"}})
		if got.Decision != models.DecisionMatched {
			t.Errorf("got %v (%.2f), want MATCHED", got.Decision, got.Confidence)
		}
	})

	t.Run("qualifier-only titles do not match each other", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "(Live)", Artist: "Artist"}
		got := m.Match(d, []models.Candidate{{Title: "[Remastered]", Artist: "Artist"}})
		if got.Decision == models.DecisionMatched {
			t.Errorf("got MATCHED (%.2f) for unrelated titles", got.Confidence)
		}
	})

	t.Run("empty candidates are not found", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Song", Artist: "Artist"}
		got := m.Match(d, nil)

		if got.Decision != models.DecisionNotFound {
			t.Errorf("Decision = %v, want NOT_FOUND", got.Decision)
		}
		if got.Confidence != 0 {
			t.Errorf("Confidence = %v, want 0", got.Confidence)
		}
		if got.Candidate != nil {
			t.Errorf("Candidate = %v, want nil", got.Candidate)
		}
	})

	t.Run("unrelated candidate is not found", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"}
		got := m.Match(d, []models.Candidate{{Title: "Purple Haze", Artist: "Jimi Hendrix"}})

		if got.Decision != models.DecisionNotFound {
			t.Errorf("Decision = %v (%.2f), want NOT_FOUND", got.Decision, got.Confidence)
		}
		if got.Candidate == nil || got.Candidate.Title != "Purple Haze" {
			t.Errorf("best candidate should still be reported, got %v", got.Candidate)
		}
	})

	t.Run("right title with wrong artist is ambiguous", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Hallelujah", Artist: "Jeff Buckley"}
		got := m.Match(d, []models.Candidate{{Title: "Hallelujah", Artist: "Leonard Cohen"}})

		if got.Decision != models.DecisionAmbiguous {
			t.Errorf("Decision = %v (%.2f), want AMBIGUOUS", got.Decision, got.Confidence)
		}
	})

	t.Run("best candidate wins over earlier weaker ones", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"}
		cands := []models.Candidate{
			{ID: "1", Title: "Wonderwall", Artist: "Ryan Adams"},
			{ID: "2", Title: "Wonderwall", Artist: "Oasis"},
		}
		got := m.Match(d, cands)

		if got.Candidate == nil || got.Candidate.ID != "2" {
			t.Errorf("Candidate = %v, want ID 2", got.Candidate)
		}
		if got.Decision != models.DecisionMatched {
			t.Errorf("Decision = %v, want MATCHED", got.Decision)
		}
	})

	t.Run("ties keep the earlier candidate", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"}
		cands := []models.Candidate{
			{ID: "first", Title: "Wonderwall", Artist: "Oasis"},
			{ID: "second", Title: "Wonderwall (Acoustic)", Artist: "Oasis"},
		}
		got := m.Match(d, cands)

		if got.Candidate == nil || got.Candidate.ID != "first" {
			t.Errorf("Candidate = %v, want first", got.Candidate)
		}
	})

	t.Run("missing candidate artist is neutral", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"}
		got := m.Match(d, []models.Candidate{{Title: "Wonderwall"}})

		want := 0.7 + 0.3*neutralArtist
		if math.Abs(got.Confidence-want) > 1e-9 {
			t.Errorf("Confidence = %v, want %v", got.Confidence, want)
		}
		if got.Decision == models.DecisionNotFound {
			t.Errorf("Decision = %v, want a title-only match to clear the low threshold", got.Decision)
		}
	})

	t.Run("one of several credited artists is enough", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Under Pressure", Artist: "Queen, David Bowie"}
		got := m.Match(d, []models.Candidate{{Title: "Under Pressure", Artist: "David Bowie"}})

		if got.Decision != models.DecisionMatched {
			t.Errorf("Decision = %v (%.2f), want MATCHED", got.Decision, got.Confidence)
		}
	})

	t.Run("diacritics and punctuation are ignored", func(t *testing.T) {
		d := models.TrackDescriptor{Title: "Déjà Vu", Artist: "Beyoncé"}
		got := m.Match(d, []models.Candidate{{Title: "Deja Vu", Artist: "Beyonce"}})

		if got.Decision != models.DecisionMatched || math.Abs(got.Confidence-1) > 1e-9 {
			t.Errorf("got %v (%.2f), want MATCHED 1.0", got.Decision, got.Confidence)
		}
	})
}

func TestMatcherDeterminism(t *testing.T) {
	m := mustMatcher(t, DefaultConfig())
	d := models.TrackDescriptor{Title: "Smells Like Teen Spirit", Artist: "Nirvana"}
	cands := []models.Candidate{
		{ID: "a", Title: "Smells Like Teen Spirit", Artist: "Nirvana"},
		{ID: "b", Title: "Smells Like Teen Spirit", Artist: "Tori Amos"},
		{ID: "c", Title: "Come As You Are", Artist: "Nirvana"},
	}

	first := m.Match(d, cands)
	for range 10 {
		if got := m.Match(d, cands); !reflect.DeepEqual(got, first) {
			t.Fatalf("Match() not deterministic: %+v != %+v", got, first)
		}
	}
}

func TestMatcherThresholdsAreConfigurable(t *testing.T) {
	d := models.TrackDescriptor{Title: "Hallelujah", Artist: "Jeff Buckley"}
	cands := []models.Candidate{{Title: "Hallelujah", Artist: "Leonard Cohen"}}

	tests := []struct {
		name string
		cfg  Config
		want models.Decision
	}{
		{"strict", Config{High: 0.99, Low: 0.95, TitleWeight: 0.7, ArtistWeight: 0.3}, models.DecisionNotFound},
		{"lenient", Config{High: 0.5, Low: 0.2, TitleWeight: 0.7, ArtistWeight: 0.3}, models.DecisionMatched},
		{"title only", Config{High: 0.9, Low: 0.5, TitleWeight: 1, ArtistWeight: 0}, models.DecisionMatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMatcher(t, tt.cfg)
			if got := m.Match(d, cands); got.Decision != tt.want {
				t.Errorf("Decision = %v (%.2f), want %v", got.Decision, got.Confidence, tt.want)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{High: 0.5, Low: 0.9, TitleWeight: 1}); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"abc", "", 0},
		{"", "abc", 0},
		{"abc", "abc", 1},
		{"abcd", "abce", 0.75},
		{"kitten", "sitting", 1 - 3.0/7.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		d    models.TrackDescriptor
		want string
	}{
		{"title and artist", models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"}, "Wonderwall Oasis"},
		{"strips qualifiers", models.TrackDescriptor{Title: "Let It Be - Remastered 2009", Artist: "The Beatles"}, "Let It Be The Beatles"},
		{"primary artist only", models.TrackDescriptor{Title: "Under Pressure", Artist: "Queen, David Bowie"}, "Under Pressure Queen"},
		{"no artist", models.TrackDescriptor{Title: "Intro (Live)"}, "Intro"},
		{"keeps title brackets", models.TrackDescriptor{Title: "(I Can't Get No) Satisfaction", Artist: "The Rolling Stones"}, "(I Can't Get No) Satisfaction The Rolling Stones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Query(tt.d); got != tt.want {
				t.Errorf("Query() = %q, want %q", got, tt.want)
			}
		})
	}
}
