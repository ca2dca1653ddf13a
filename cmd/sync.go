package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/formatter"
	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
	"github.com/desertthunder/tabx/internal/tasks"
	"github.com/desertthunder/tabx/internal/ui"
)

// Sync runs a full Spotify → Ultimate Guitar reconciliation.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		return r.TUI(ctx, cmd)
	}
	return r.run(ctx, cmd, models.ModeSync)
}

// Preview matches every track without creating the playlist or adding anything.
//
// With --list-only it prints the source playlist and stops before the driver is started.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("list-only") {
		return r.listSource(ctx, cmd)
	}
	return r.run(ctx, cmd, models.ModePreview)
}

func (r *Runner) request(cmd *cli.Command, mode models.Mode) (tasks.Request, error) {
	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID = r.config.Sync.PlaylistID
	}
	if playlistID == "" {
		return tasks.Request{}, fmt.Errorf("%w: --playlist (or sync.playlist_id / %s)", shared.ErrMissingArgument, shared.EnvSpotifyPlaylistID)
	}

	target := cmd.String("target")
	if target == "" {
		target = r.config.Sync.TargetName
	}

	return tasks.Request{
		PlaylistID:  playlistID,
		TargetName:  target,
		Description: cmd.String("description"),
		Mode:        mode,
		Credentials: r.config.Credentials.UltimateGuitar.Map(),
	}, nil
}

func (r *Runner) listSource(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	req, err := r.request(cmd, models.ModePreview)
	if err != nil {
		return err
	}

	playlist, err := r.spotify.GetPlaylist(ctx, req.PlaylistID)
	if err != nil {
		return err
	}
	tracks, err := r.spotify.FetchPlaylistTracks(ctx, req.PlaylistID)
	if err != nil {
		return err
	}
	r.saveTokens()

	return formatter.RenderPreview(r.output, playlist, tracks, req.TargetName)
}

func (r *Runner) run(ctx context.Context, cmd *cli.Command, mode models.Mode) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	req, err := r.request(cmd, mode)
	if err != nil {
		return err
	}

	var reportFormat formatter.Format
	if cmd.IsSet("format") {
		if reportFormat, err = formatter.ParseFormat(cmd.String("format")); err != nil {
			return err
		}
	}

	driver := r.newDriver(r.config, r.logger)
	defer func() {
		if err := driver.Close(); err != nil {
			r.logger.Warn("failed to close driver", "error", err)
		}
	}()

	engine, err := r.newEngine(driver)
	if err != nil {
		return err
	}

	r.logger.Info("starting run", "mode", mode, "playlist", req.PlaylistID, "target", req.TargetName)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.printProgress(update)
		}
	}()

	report, runErr := engine.Run(ctx, req, progress)
	close(progress)
	<-done

	r.saveTokens()
	r.recordRun(req, report, runErr)

	if report == nil {
		return runErr
	}

	r.writePlain("\n")
	if err := formatter.RenderReport(r.output, report, ui.StatusPainter()); err != nil {
		return err
	}

	if path := cmd.String("report"); path != "" || reportFormat != "" {
		written, err := formatter.WriteReport(report, path, reportFormat)
		if err != nil {
			return err
		}
		r.writePlain("\n✓ Report written to %s\n", written)
	}

	return runErr
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchSource:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.Authenticate:
		r.writePlain("🔑 %s\n", update.Message)
	case tasks.EnsurePlaylist:
		r.writePlain("📝 %s\n", update.Message)
	case tasks.SearchTracks:
		if update.Step == 1 {
			r.writePlain("\n🔍 Matching %d tracks\n", update.Total)
		}
	case tasks.RecordOutcome:
		r.writePlain("   %s\n", update.Message)
	case tasks.Complete:
		r.writePlain("\n%s\n", update.Message)
	}
}

// recordRun stores the run in the history database when enabled. Failures are logged, never returned.
func (r *Runner) recordRun(req tasks.Request, report *models.SyncReport, runErr error) {
	db, repo, err := r.openHistory()
	if err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		return
	}
	if repo == nil {
		return
	}
	defer db.Close()

	if report != nil {
		record, err := repo.SaveReport(report)
		if err != nil {
			r.logger.Warn("failed to record run", "error", err)
			return
		}
		r.logger.Info("run recorded", "sequence", record.Sequence(), "status", record.Status())
		return
	}

	record := models.NewRunRecord(req.Mode, req.PlaylistID, req.TargetName)
	record.SetStatus(models.RunStatusFailed)
	if runErr != nil {
		record.SetErrorMessage(runErr.Error())
	}
	if err := repo.Create(record); err != nil {
		r.logger.Warn("failed to record failed run", "error", err)
	}
}
