package models

import (
	"testing"
	"time"
)

func buildReport(t *testing.T) (*ReportBuilder, *SyncReport) {
	t.Helper()
	b := NewReportBuilder(RunInfo{RunID: "run-1", Mode: ModeSync, StartedAt: time.Unix(0, 0)}, 2)
	b.SetTarget(PlaylistHandle{ID: "42", Name: "Road Trip"})
	b.Record(SyncOutcome{
		Descriptor: TrackDescriptor{Title: "Wonderwall", Artist: "Oasis"},
		Status:     StatusAdded,
		Match: &MatchResult{
			Candidate:  &Candidate{ID: "1", Title: "Wonderwall", URL: "https://tabs.example.com/tab/1"},
			Confidence: 0.97,
			Decision:   DecisionMatched,
		},
	})
	b.Record(SyncOutcome{Descriptor: TrackDescriptor{Title: "Unknown"}, Status: StatusNotFound})
	return b, b.Build(time.Unix(10, 0), false)
}

func TestSyncReport(t *testing.T) {
	t.Run("counts and indexes", func(t *testing.T) {
		_, r := buildReport(t)
		if r.Len() != 2 || r.Counts().Added != 1 || r.Counts().NotFound != 1 {
			t.Errorf("unexpected counts: %+v", r.Counts())
		}
		for i, o := range r.Outcomes() {
			if o.Index != i {
				t.Errorf("outcome %d has index %d", i, o.Index)
			}
		}
		if r.Duration() != 10*time.Second {
			t.Errorf("Duration() = %v", r.Duration())
		}
	})

	t.Run("outcome copies do not alias the report", func(t *testing.T) {
		_, r := buildReport(t)

		o := r.Outcomes()
		o[0].Status = StatusFailed
		o[0].Match.Confidence = 0.1
		o[0].Match.Candidate.URL = "https://elsewhere.example.com"

		got := r.Outcomes()[0]
		if got.Status != StatusAdded {
			t.Errorf("status changed to %v", got.Status)
		}
		if got.Match.Confidence != 0.97 {
			t.Errorf("confidence changed to %v", got.Match.Confidence)
		}
		if got.Match.Candidate.URL != "https://tabs.example.com/tab/1" {
			t.Errorf("candidate URL changed to %q", got.Match.Candidate.URL)
		}
	})

	t.Run("builder changes after build do not leak", func(t *testing.T) {
		b, r := buildReport(t)
		b.outcomes[0].Match.Candidate.Title = "Changed"
		b.SetTarget(PlaylistHandle{ID: "7", Name: "Other"})

		if got := r.Outcomes()[0].Match.Candidate.Title; got != "Wonderwall" {
			t.Errorf("candidate title changed to %q", got)
		}
		if r.Info().Target.ID != "42" {
			t.Errorf("target changed to %+v", r.Info().Target)
		}
	})

	t.Run("info target is copied", func(t *testing.T) {
		_, r := buildReport(t)
		r.Info().Target.Name = "Changed"
		if r.Info().Target.Name != "Road Trip" {
			t.Errorf("target name changed to %q", r.Info().Target.Name)
		}
	})
}
