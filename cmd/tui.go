package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/shared"
	"github.com/desertthunder/tabx/internal/tasks"
	"github.com/desertthunder/tabx/internal/ui"
)

const tuiLogPath = "./tmp/tabx-tui.log"

// TUI launches the interactive terminal UI: pick a playlist, review its tracks, then preview or sync.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	// Logs go to a file while bubbletea owns the terminal
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	driver := r.newDriver(r.config, r.logger)
	defer driver.Close()

	engine, err := r.newEngine(driver)
	if err != nil {
		return err
	}

	target := cmd.String("target")
	if target == "" {
		target = r.config.Sync.TargetName
	}
	model := ui.NewModel(ctx, r.spotify, engine, ui.Options{
		TargetName:  target,
		Description: cmd.String("description"),
		Credentials: r.config.Credentials.UltimateGuitar.Map(),
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	r.saveTokens()

	report, runErr := model.Result()
	if report != nil {
		r.recordRun(tasks.Request{Mode: report.Mode()}, report, runErr)
	}
	return nil
}
