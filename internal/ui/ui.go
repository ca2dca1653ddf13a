package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/services"
	"github.com/desertthunder/tabx/internal/shared"
	"github.com/desertthunder/tabx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	SyncView
	ResultView
)

// PlaylistSource is a [services.Source] that can also list the user's playlists.
type PlaylistSource interface {
	services.Source
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
}

// Options carries the per-run settings that the TUI does not ask for.
type Options struct {
	TargetName  string
	Description string
	Credentials map[string]string
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	source       PlaylistSource
	engine       *tasks.SyncEngine
	opts         Options
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	outcomeList  list.Model
	playlist     *models.Playlist
	tracks       []models.TrackDescriptor
	mode         models.Mode
	progressChan chan tasks.ProgressUpdate
	done         chan syncCompleteMsg
	progress     tasks.ProgressUpdate
	bar          progress.Model
	stopping     bool
	report       *models.SyncReport
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, source PlaylistSource, engine *tasks.SyncEngine, opts Options) *Model {
	m := &Model{
		ctx:    ctx,
		view:   PlaylistListView,
		source: source,
		engine: engine,
		opts:   opts,
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}
	m.playlistList = m.newList(nil, "Spotify Playlists")
	m.trackList = m.newList(nil, "Tracks")
	m.outcomeList = m.newList(nil, "Outcomes")
	return m
}

// Result returns the report and error of the last run, if any.
func (m *Model) Result() (*models.SyncReport, error) {
	return m.report, m.err
}

// Init initializes the TUI by fetching playlists from the source.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.outcomeList.SetSize(msg.Width-4, msg.Height-10)
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = m.newList(items, "Spotify Playlists")
		return m, nil

	case tracksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.playlist = msg.playlist
		m.tracks = msg.tracks
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = m.newList(items, fmt.Sprintf("Tracks in '%s'", msg.playlist.Name))
		m.view = TrackListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.report = msg.report
		m.err = msg.err
		m.progressChan = nil
		m.done = nil
		m.stopping = false
		if msg.report != nil {
			items := make([]list.Item, 0, msg.report.Len())
			for _, o := range msg.report.Outcomes() {
				items = append(items, outcomeItem{outcome: o})
			}
			m.outcomeList = m.newList(items, fmt.Sprintf("%s: %s", msg.report.Mode(), msg.report.Info().TargetName))
		}
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	if m.width > 0 {
		l.SetSize(m.width-4, m.height-8)
	}
	return l
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchTracks(pl.playlist.ID)
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		return m, m.startSync(models.ModeSync)
	case key.Matches(msg, m.keys.preview):
		return m, m.startSync(models.ModePreview)
	}
	return m, nil
}

func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.stop):
		m.stop()
	case msg.String() == "ctrl+c":
		m.stop()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.playlist = nil
		m.tracks = nil
		m.report = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.outcomeList, cmd = m.outcomeList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case ResultView:
		m.outcomeList, cmd = m.outcomeList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.GetPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.source.GetPlaylist(m.ctx, playlistID)
		if err != nil {
			return tracksFetchedMsg{err: err}
		}
		tracks, err := m.source.FetchPlaylistTracks(m.ctx, playlistID)
		return tracksFetchedMsg{playlist: playlist, tracks: tracks, err: err}
	}
}

// startSync runs the engine in the background. The report is sent on done
// before progress is closed, so a drained progress channel means the result is ready.
func (m *Model) startSync(mode models.Mode) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	progressChan := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncCompleteMsg, 1)

	m.cancel = cancel
	m.mode = mode
	m.progressChan = progressChan
	m.done = done
	m.progress = tasks.ProgressUpdate{}
	m.view = SyncView

	req := tasks.Request{
		PlaylistID:  m.playlist.ID,
		TargetName:  m.opts.TargetName,
		Description: m.opts.Description,
		Mode:        mode,
		Credentials: m.opts.Credentials,
	}
	engine := m.engine

	go func() {
		defer cancel()
		report, err := engine.Run(ctx, req, progressChan)
		done <- syncCompleteMsg{report: report, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		if update, ok := <-progressChan; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) stop() {
	if m.cancel != nil && !m.stopping {
		m.stopping = true
		m.cancel()
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	syncKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "sync"),
	)
	helpKeys := []key.Binding{syncKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) targetName() string {
	if m.opts.TargetName != "" {
		return m.opts.TargetName
	}
	if m.playlist != nil {
		return m.playlist.Name
	}
	return ""
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s' to Ultimate Guitar?", m.playlist.Name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\nTarget: %s\n", m.playlist.Name, len(m.tracks), m.targetName())

	helpKeys := []key.Binding{m.keys.yes, m.keys.preview, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := "Syncing Playlist"
	if m.mode == models.ModePreview {
		title = "Previewing Playlist"
	}

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.Authenticate:
		phase = "Signing in to Ultimate Guitar..."
	case tasks.EnsurePlaylist:
		phase = fmt.Sprintf("Resolving playlist %q...", m.targetName())
	case tasks.SearchTracks, tasks.RecordOutcome:
		phase = fmt.Sprintf("Tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	var percent float64
	if m.progress.Total > 0 && (m.progress.Phase == tasks.SearchTracks || m.progress.Phase == tasks.RecordOutcome) {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	}

	footer := m.help.ShortHelpView([]key.Binding{m.keys.stop})
	if m.stopping {
		footer = styles.warn.Render("Stopping after the current track...")
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s",
		styles.title.Render(title), phase, m.bar.ViewAs(percent), m.progress.Message, footer)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.report == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Sync failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	var title string
	switch {
	case errors.Is(m.err, shared.ErrRunAborted):
		title = styles.warn.Render(fmt.Sprintf("Stopped after %d tracks", m.report.Len()))
	case m.report.Mode() == models.ModePreview:
		title = styles.ok.Render("✓ Preview Complete!")
	default:
		title = styles.ok.Render("✓ Sync Complete!")
	}

	c := m.report.Counts()
	var counts []string
	for _, s := range models.Statuses {
		if n := c.Of(s); n > 0 {
			counts = append(counts, styles.Status(s).Render(fmt.Sprintf("%s %d", s, n)))
		}
	}

	info := fmt.Sprintf("\nSource: %s (%d tracks)\nTarget: %s\nSuccess rate: %d/%d (%.1f%%)\n%s",
		m.report.Info().SourcePlaylistName,
		m.report.Len(),
		m.report.Info().TargetName,
		c.Synced(),
		m.report.Len(),
		m.report.SuccessRate(),
		strings.Join(counts, "  "),
	)

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, info, m.outcomeList.View(), helpView)
}
