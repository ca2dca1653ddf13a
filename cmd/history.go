package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/formatter"
	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/repositories"
	"github.com/desertthunder/tabx/internal/shared"
	"github.com/desertthunder/tabx/internal/ui"
)

type historyEntry struct {
	ID         string        `json:"id"`
	Sequence   int           `json:"sequence"`
	Mode       models.Mode   `json:"mode"`
	Status     string        `json:"status"`
	Playlist   string        `json:"playlist"`
	PlaylistID string        `json:"playlist_id"`
	Target     string        `json:"target"`
	Tracks     int           `json:"tracks"`
	Counts     models.Counts `json:"counts"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

func newHistoryEntry(rec *models.RunRecord) historyEntry {
	return historyEntry{
		ID:         rec.ID(),
		Sequence:   rec.Sequence(),
		Mode:       rec.Mode(),
		Status:     rec.Status(),
		Playlist:   rec.SourcePlaylistName(),
		PlaylistID: rec.SourcePlaylistID(),
		Target:     rec.TargetName(),
		Tracks:     rec.TracksTotal(),
		Counts:     rec.Counts(),
		Error:      rec.ErrorMessage(),
		StartedAt:  rec.StartedAt(),
		FinishedAt: rec.FinishedAt(),
	}
}

func (r *Runner) historyRepository() (func() error, *repositories.RunRepository, error) {
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db.Close, repositories.NewRunRepository(db), nil
}

// HistoryList prints the most recent runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	closeDB, repo, err := r.historyRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, len(runs))
		for i, rec := range runs {
			entries[i] = newHistoryEntry(rec)
		}
		return r.writeJSON(entries, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet.\n")
		return nil
	}

	for _, rec := range runs {
		c := rec.Counts()
		r.writePlain("#%-4d %s  %-7s %-9s %s → %s  (%d tracks, %d synced, %d not found, %d ambiguous, %d failed)\n",
			rec.Sequence(), rec.StartedAt().Local().Format("2006-01-02 15:04"), rec.Mode(), rec.Status(),
			displayName(rec), rec.TargetName(), rec.TracksTotal(), c.Synced(), c.NotFound, c.Ambiguous, c.Failed)
	}
	return nil
}

// HistoryShow prints one run, looked up by ID or sequence number, with its outcomes.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("run")
	if key == "" {
		return fmt.Errorf("%w: run ID or sequence", shared.ErrMissingArgument)
	}

	closeDB, repo, err := r.historyRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	rec, err := repo.Get(key)
	if errors.Is(err, shared.ErrRecordNotFound) {
		if seq, convErr := strconv.Atoi(key); convErr == nil {
			rec, err = repo.GetBySequence(seq)
		}
	}
	if err != nil {
		return err
	}

	outcomes, err := repo.Outcomes(rec.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			historyEntry
			Outcomes []models.SyncOutcome `json:"outcomes"`
		}{newHistoryEntry(rec), outcomes}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d (%s)", rec.Sequence(), rec.ID()))
	r.writePlain("Playlist: %s\n", displayName(rec))
	r.writePlain("Target: %s\n", rec.TargetName())
	r.writePlain("Mode: %s\n", rec.Mode())
	r.writePlain("Status: %s\n", rec.Status())
	r.writePlain("Started: %s\n", rec.StartedAt().Local().Format(time.RFC1123))
	if finished := rec.FinishedAt(); finished != nil {
		r.writePlain("Duration: %s\n", finished.Sub(rec.StartedAt()).Round(time.Second))
	}
	if msg := rec.ErrorMessage(); msg != "" {
		r.writePlain("Error: %s\n", msg)
	}

	if len(outcomes) > 0 {
		r.writePlain("\n")
		paint := ui.StatusPainter()
		for _, o := range outcomes {
			r.writePlain("%s\n", formatter.OutcomeLine(o, paint))
		}
	}
	return nil
}

func displayName(rec *models.RunRecord) string {
	if name := rec.SourcePlaylistName(); name != "" {
		return name
	}
	return rec.SourcePlaylistID()
}
