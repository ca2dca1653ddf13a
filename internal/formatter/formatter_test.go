package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
	th "github.com/desertthunder/tabx/internal/testing"
)

var started = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func sampleReport(mode models.Mode, aborted bool) *models.SyncReport {
	b := models.NewReportBuilder(models.RunInfo{
		RunID:              "run-1",
		Mode:               mode,
		SourcePlaylistID:   "pl1",
		SourcePlaylistName: "Road Trip",
		TargetName:         "Road Trip Tabs",
		StartedAt:          started,
	}, 3)
	b.SetTarget(models.PlaylistHandle{ID: "42", Name: "Road Trip Tabs", URL: "https://ug.example/playlist/42"})

	wonderwall := models.TrackDescriptor{Title: "Wonderwall", Artist: "Oasis", Album: "Morning Glory"}
	first := models.StatusAdded
	if mode == models.ModePreview {
		first = models.StatusWouldAdd
	}
	b.Record(models.SyncOutcome{
		Descriptor: wonderwall,
		Status:     first,
		Attempts:   1,
		Match: &models.MatchResult{
			Descriptor: wonderwall,
			Candidate:  &models.Candidate{ID: "1", Title: "Wonderwall", Artist: "Oasis", URL: "https://ug.example/tab/1", Kind: "Chords"},
			Confidence: 1,
			Decision:   models.DecisionMatched,
		},
	})
	b.Record(models.SyncOutcome{
		Descriptor: models.TrackDescriptor{Title: "Unknown | Song", Artist: "Nobody"},
		Status:     models.StatusNotFound,
		Attempts:   1,
		Match:      &models.MatchResult{Decision: models.DecisionNotFound},
	})
	b.Record(models.SyncOutcome{
		Descriptor: models.TrackDescriptor{Title: "Creep", Artist: "Radiohead"},
		Status:     models.StatusFailed,
		Attempts:   3,
		Error:      "driver action failed: timeout",
	})
	return b.Build(started.Add(90*time.Second), aborted)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"TXT", FormatText, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"csv", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("FormatFromPath", func(t *testing.T) {
		cases := map[string]Format{
			"out/report.yaml": FormatYAML,
			"report.md":       FormatMarkdown,
			"report.csv":      FormatCSV,
			"report":          FormatText,
			"report.bin":      FormatText,
		}
		for path, want := range cases {
			if got := FormatFromPath(path); got != want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
			}
		}
	})
}

func TestRenderReport(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderReport(&buf, sampleReport(models.ModeSync, false), nil); err != nil {
			t.Fatalf("RenderReport failed: %v", err)
		}
		output := buf.String()

		for _, want := range []string{
			"Playlist: Road Trip (pl1)",
			"Target: Road Trip Tabs <https://ug.example/playlist/42>",
			"Mode: sync",
			"Run: run-1",
			"  1. [ADDED] Wonderwall - Oasis (→ Wonderwall - Oasis [Chords], 1.00)",
			"  2. [NOT_FOUND] Unknown | Song - Nobody",
			"  3. [FAILED] Creep - Radiohead: driver action failed: timeout",
			"ADDED 1, ALREADY_PRESENT 0, NOT_FOUND 1, AMBIGUOUS 0, FAILED 1",
			"Success rate: 1/3 (33.3%)",
			"Duration: 1m30s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "WOULD_ADD") {
			t.Errorf("sync summary should not mention WOULD_ADD")
		}
		if strings.Contains(output, "Aborted") {
			t.Errorf("completed run should not be marked aborted")
		}
	})

	t.Run("preview summary", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderReport(&buf, sampleReport(models.ModePreview, false), nil); err != nil {
			t.Fatalf("RenderReport failed: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[WOULD_ADD] Wonderwall") {
			t.Errorf("expected WOULD_ADD outcome, got:\n%s", output)
		}
		if !strings.Contains(output, "WOULD_ADD 1, NOT_FOUND 1, AMBIGUOUS 0, FAILED 1") {
			t.Errorf("unexpected preview summary:\n%s", output)
		}
	})

	t.Run("aborted", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderReport(&buf, sampleReport(models.ModeSync, true), nil); err != nil {
			t.Fatalf("RenderReport failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Aborted after 3 tracks") {
			t.Errorf("expected aborted marker, got:\n%s", buf.String())
		}
	})

	t.Run("painter", func(t *testing.T) {
		var buf bytes.Buffer
		seen := map[models.Status]bool{}
		paint := func(s models.Status, text string) string {
			seen[s] = true
			return "<" + text + ">"
		}
		if err := RenderReport(&buf, sampleReport(models.ModeSync, false), paint); err != nil {
			t.Fatalf("RenderReport failed: %v", err)
		}
		if !strings.Contains(buf.String(), "<[ADDED]>") {
			t.Errorf("painter not applied, got:\n%s", buf.String())
		}
		for _, s := range []models.Status{models.StatusAdded, models.StatusNotFound, models.StatusFailed} {
			if !seen[s] {
				t.Errorf("painter never called for %s", s)
			}
		}
	})

	t.Run("write error", func(t *testing.T) {
		if err := RenderReport(&th.FWriter{}, sampleReport(models.ModeSync, false), nil); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestRenderPreview(t *testing.T) {
	playlist := &models.Playlist{ID: "pl1", Name: "Road Trip", Description: "Songs for the car", Owner: "alice"}
	tracks := []models.TrackDescriptor{
		{Title: "Wonderwall", Artist: "Oasis"},
		{Title: "Creep", Artist: "Radiohead"},
	}

	t.Run("with target", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderPreview(&buf, playlist, tracks, "Tabs"); err != nil {
			t.Fatalf("RenderPreview failed: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"Playlist: Road Trip",
			"Description: Songs for the car",
			"Owner: alice",
			"Total tracks: 2",
			"  1. Wonderwall - Oasis",
			"  2. Creep - Radiohead",
			"Target playlist: Tabs",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("target defaults to playlist name", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderPreview(&buf, &models.Playlist{Name: "Road Trip"}, nil, ""); err != nil {
			t.Fatalf("RenderPreview failed: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "Target playlist: Road Trip") {
			t.Errorf("expected default target, got:\n%s", output)
		}
		if strings.Contains(output, "Description:") || strings.Contains(output, "Owner:") {
			t.Errorf("empty fields should be omitted, got:\n%s", output)
		}
	})

	t.Run("write error", func(t *testing.T) {
		w := th.NewLimitedWriter(0, 0, &bytes.Buffer{})
		if err := RenderPreview(&w, playlist, tracks, ""); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestExporters(t *testing.T) {
	report := sampleReport(models.ModeSync, false)

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(report)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Index,Title,Artist,Album,Status,Candidate,URL,Confidence,Attempts,Error" {
			t.Errorf("unexpected headers: %v", records[0])
		}

		first := records[1]
		if first[0] != "1" || first[1] != "Wonderwall" || first[4] != "ADDED" {
			t.Errorf("unexpected first row: %v", first)
		}
		if first[6] != "https://ug.example/tab/1" || first[7] != "1.000" {
			t.Errorf("unexpected match columns: %v", first)
		}
		if records[3][8] != "3" || records[3][9] != "driver action failed: timeout" {
			t.Errorf("unexpected failed row: %v", records[3])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(report)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Road Trip",
			"**Target**: Road Trip Tabs",
			"**Tracks**: 3",
			"- ADDED: 1",
			"- FAILED: 1",
			"| 1 | Wonderwall - Oasis | ADDED | [Wonderwall](https://ug.example/tab/1) 1.00 |",
			`| 2 | Unknown \| Song - Nobody | NOT_FOUND |  |`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "- AMBIGUOUS") {
			t.Errorf("zero counts should be omitted")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(report)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "[ADDED] Wonderwall - Oasis") {
			t.Errorf("text export missing outcome, got:\n%s", data)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := ExportReport(report, FormatJSON)
		if err != nil {
			t.Fatalf("ExportReport failed: %v", err)
		}

		var decoded struct {
			RunID    string `json:"run_id"`
			Mode     string `json:"mode"`
			Counts   models.Counts
			Outcomes []struct {
				Status string `json:"status"`
			} `json:"outcomes"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-1" || decoded.Mode != "sync" {
			t.Errorf("unexpected header: %+v", decoded)
		}
		if decoded.Counts.Added != 1 || decoded.Counts.Failed != 1 {
			t.Errorf("unexpected counts: %+v", decoded.Counts)
		}
		if len(decoded.Outcomes) != 3 || decoded.Outcomes[1].Status != "NOT_FOUND" {
			t.Errorf("unexpected outcomes: %+v", decoded.Outcomes)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(report)
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var decoded map[string]any
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if decoded["run_id"] != "run-1" {
			t.Errorf("expected inlined run_id, got %v", decoded["run_id"])
		}
		if decoded["target_name"] != "Road Trip Tabs" {
			t.Errorf("unexpected target_name: %v", decoded["target_name"])
		}
		outcomes, ok := decoded["outcomes"].([]any)
		if !ok || len(outcomes) != 3 {
			t.Fatalf("expected 3 outcomes, got %v", decoded["outcomes"])
		}
		if !strings.Contains(string(data), "status: ADDED") {
			t.Errorf("statuses should be encoded by name, got:\n%s", data)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := ExportReport(report, Format("xml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteReport(t *testing.T) {
	report := sampleReport(models.ModeSync, false)

	t.Run("infers format from extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "run.md")

		written, err := WriteReport(report, path, "")
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Road Trip") {
			t.Errorf("expected markdown, got:\n%s", content)
		}
	})

	t.Run("explicit format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.out")

		if _, err := WriteReport(report, path, FormatCSV); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "Index,Title") {
			t.Errorf("expected CSV, got:\n%s", content)
		}
	})

	t.Run("default path", func(t *testing.T) {
		t.Chdir(t.TempDir())

		written, err := WriteReport(report, "", FormatYAML)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if written != "run-1_report.yaml" {
			t.Errorf("unexpected default path %s", written)
		}
		th.AssertFileExists(t, written)
	})

	t.Run("unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if _, err := WriteReport(report, blocker, FormatText); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		if _, err := WriteReport(report, filepath.Join(blocker, "nested.txt"), ""); err == nil {
			t.Error("expected error writing beneath a regular file")
		}
	})
}
