// package formatter renders sync reports for the terminal and exports them to files (text, Markdown, CSV, JSON, YAML)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON, FormatYAML}

// ParseFormat resolves a format name; "md", "txt" and "yml" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, s)
}

// FormatFromPath guesses the format from a file extension, falling back to text.
func FormatFromPath(path string) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return FormatText
}

// Painter colors a rendered fragment according to the outcome status.
//
// A nil Painter renders plain text.
type Painter func(status models.Status, s string) string

func (p Painter) paint(status models.Status, s string) string {
	if p == nil {
		return s
	}
	return p(status, s)
}

// RenderReport writes the human-readable summary of a run.
func RenderReport(w io.Writer, report *models.SyncReport, paint Painter) error {
	var buf bytes.Buffer
	info := report.Info()

	buf.WriteString(fmt.Sprintf("Playlist: %s (%s)\n", info.SourcePlaylistName, info.SourcePlaylistID))
	target := info.TargetName
	if info.Target != nil && info.Target.URL != "" {
		target = fmt.Sprintf("%s <%s>", info.Target.Name, info.Target.URL)
	}
	buf.WriteString(fmt.Sprintf("Target: %s\n", target))
	buf.WriteString(fmt.Sprintf("Mode: %s\n", info.Mode))
	buf.WriteString(fmt.Sprintf("Run: %s\n", info.RunID))
	if report.Aborted() {
		buf.WriteString(paint.paint(models.StatusFailed, fmt.Sprintf("Aborted after %d tracks", report.Len())))
		buf.WriteString("\n")
	}
	buf.WriteString("\n")

	for _, o := range report.Outcomes() {
		buf.WriteString(OutcomeLine(o, paint))
		buf.WriteString("\n")
	}

	buf.WriteString("\n")
	buf.WriteString(summaryLine(report.Counts(), report.Mode()))
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("Success rate: %d/%d (%.1f%%)\n", report.Counts().Synced(), report.Len(), report.SuccessRate()))
	buf.WriteString(fmt.Sprintf("Duration: %s\n", report.Duration().Round(time.Second)))

	_, err := w.Write(buf.Bytes())
	return err
}

// OutcomeLine renders one numbered outcome, as in [RenderReport].
func OutcomeLine(o models.SyncOutcome, paint Painter) string {
	line := fmt.Sprintf("%3d. %s %s", o.Index+1, paint.paint(o.Status, "["+o.Status.String()+"]"), o.Descriptor)
	if o.Match != nil && o.Match.Candidate != nil && o.Status != models.StatusNotFound {
		line = fmt.Sprintf("%s (→ %s, %.2f)", line, o.Match.Candidate, o.Match.Confidence)
	}
	if o.Error != "" {
		line = fmt.Sprintf("%s: %s", line, o.Error)
	}
	return line
}

func summaryLine(c models.Counts, mode models.Mode) string {
	parts := make([]string, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		switch {
		case mode == models.ModePreview && (s == models.StatusAdded || s == models.StatusAlreadyPresent):
			continue
		case mode == models.ModeSync && s == models.StatusWouldAdd:
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d", s, c.Of(s)))
	}
	return strings.Join(parts, ", ")
}

// RenderPreview writes the source listing shown before a sync: playlist details, numbered tracks and the target name.
func RenderPreview(w io.Writer, playlist *models.Playlist, tracks []models.TrackDescriptor, target string) error {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", playlist.Description))
	}
	if playlist.Owner != "" {
		buf.WriteString(fmt.Sprintf("Owner: %s\n", playlist.Owner))
	}
	buf.WriteString(fmt.Sprintf("Total tracks: %d\n\n", len(tracks)))

	for i, t := range tracks {
		buf.WriteString(fmt.Sprintf("%3d. %s - %s\n", i+1, t.Title, t.Artist))
	}

	if target == "" {
		target = playlist.Name
	}
	buf.WriteString(fmt.Sprintf("\nTarget playlist: %s\n", target))

	_, err := w.Write(buf.Bytes())
	return err
}

// ExportReport encodes a report in the given format.
func ExportReport(report *models.SyncReport, format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ExportToText(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	case FormatCSV:
		return ExportToCSV(report)
	case FormatJSON:
		return shared.MarshalJSON(report, true)
	case FormatYAML:
		return ExportToYAML(report)
	}
	return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
}

// ExportToText renders the plain terminal summary without colors.
func ExportToText(report *models.SyncReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, report, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts a report to CSV with one row per outcome.
func ExportToCSV(report *models.SyncReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Album", "Status", "Candidate", "URL", "Confidence", "Attempts", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range report.Outcomes() {
		var candidate, url, confidence string
		if o.Match != nil {
			confidence = strconv.FormatFloat(o.Match.Confidence, 'f', 3, 64)
			if o.Match.Candidate != nil {
				candidate = o.Match.Candidate.String()
				url = o.Match.Candidate.URL
			}
		}
		record := []string{
			strconv.Itoa(o.Index + 1),
			o.Descriptor.Title,
			o.Descriptor.Artist,
			o.Descriptor.Album,
			o.Status.String(),
			candidate,
			url,
			confidence,
			strconv.Itoa(o.Attempts),
			o.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a report to a Markdown document with a counts list and an outcome table.
func ExportToMarkdown(report *models.SyncReport) ([]byte, error) {
	var buf bytes.Buffer
	info := report.Info()

	buf.WriteString(fmt.Sprintf("# %s\n\n", info.SourcePlaylistName))
	buf.WriteString(fmt.Sprintf("**Target**: %s\n", info.TargetName))
	buf.WriteString(fmt.Sprintf("**Mode**: %s\n", info.Mode))
	buf.WriteString(fmt.Sprintf("**Run**: %s\n", info.RunID))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", report.Len()))
	if report.Aborted() {
		buf.WriteString("**Aborted**: yes\n")
	}
	buf.WriteString("\n## Summary\n\n")
	c := report.Counts()
	for _, s := range models.Statuses {
		if n := c.Of(s); n > 0 {
			buf.WriteString(fmt.Sprintf("- %s: %d\n", s, n))
		}
	}

	buf.WriteString("\n## Tracks\n\n")
	buf.WriteString("| # | Track | Status | Match |\n")
	buf.WriteString("|---|-------|--------|-------|\n")
	for _, o := range report.Outcomes() {
		match := ""
		if o.Match != nil && o.Match.Candidate != nil {
			match = fmt.Sprintf("[%s](%s) %.2f", mdEscape(o.Match.Candidate.Title), o.Match.Candidate.URL, o.Match.Confidence)
		}
		if o.Error != "" {
			match = mdEscape(o.Error)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", o.Index+1, mdEscape(o.Descriptor.String()), o.Status, match))
	}

	return buf.Bytes(), nil
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToYAML encodes the report with [yaml.v3].
func ExportToYAML(report *models.SyncReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(report.View()); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteReport exports a report to path.
//
// An empty format is inferred from the file extension. An empty path defaults to {run_id}_report.{ext}.
func WriteReport(report *models.SyncReport, path string, format Format) (string, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	if path == "" {
		path = fmt.Sprintf("%s_report.%s", report.RunID(), extension(format))
	}

	data, err := ExportReport(report, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s report: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

func extension(f Format) string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}
