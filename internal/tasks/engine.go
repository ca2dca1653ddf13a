package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tabx/internal/matcher"
	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/retry"
	"github.com/desertthunder/tabx/internal/services"
	"github.com/desertthunder/tabx/internal/shared"
)

const defaultDescription = "Synced from Spotify playlist: %s"

// Request describes one run.
type Request struct {
	PlaylistID  string
	TargetName  string // defaults to the source playlist name
	Description string
	Mode        models.Mode
	Credentials map[string]string // passed to the driver's Authenticate
}

// EngineOpts holds the fixed policies of every run.
type EngineOpts struct {
	Matcher     matcher.Config
	Retry       retry.Policy
	RateLimit   time.Duration // minimum interval between driver actions
	CallTimeout time.Duration // bound on a single driver call; zero means none
	Logger      *log.Logger
	Sleep       retry.SleepFunc
	Now         func() time.Time
}

// SyncEngine reconciles a source playlist onto the target through a [services.Driver].
//
// The engine holds no per-run state; each call to Run creates its own.
type SyncEngine struct {
	source  services.Source
	driver  services.Driver
	matcher *matcher.Matcher
	opts    EngineOpts
	logger  *log.Logger
}

// NewSyncEngine creates an engine, validating the matcher configuration.
func NewSyncEngine(source services.Source, driver services.Driver, opts EngineOpts) (*SyncEngine, error) {
	m, err := matcher.New(opts.Matcher)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}

	return &SyncEngine{
		source:  source,
		driver:  driver,
		matcher: m,
		opts:    opts,
		logger:  opts.Logger,
	}, nil
}

// run is the state of one synchronization. It owns the driver session for
// its lifetime together with the limiter and the report being built.
type run struct {
	mode    models.Mode
	driver  services.Driver
	matcher *matcher.Matcher
	policy  retry.Policy
	sleep   retry.SleepFunc
	timeout time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
	handle  *models.PlaylistHandle
	report  *models.ReportBuilder
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs one synchronization and returns its report.
//
// Source, authentication and playlist failures are fatal and return no report.
// Per-track problems never fail the run; they are recorded as outcomes.
// If ctx ends between tracks the report covers the processed prefix and the
// error wraps [shared.ErrRunAborted].
func (e *SyncEngine) Run(ctx context.Context, req Request, progress chan<- ProgressUpdate) (*models.SyncReport, error) {
	if e.source == nil || e.driver == nil {
		return nil, fmt.Errorf("%w: source and driver are required", shared.ErrServiceUnavailable)
	}
	if req.PlaylistID == "" {
		return nil, fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	info := models.RunInfo{
		RunID:            shared.GenerateID(),
		Mode:             req.Mode,
		SourcePlaylistID: req.PlaylistID,
		TargetName:       req.TargetName,
		StartedAt:        e.opts.Now(),
	}
	logger := shared.WithLogger(e.logger, "run_id", info.RunID)
	logger.Info("starting run", "mode", req.Mode, "playlist", req.PlaylistID)

	e.sendProgress(progress, fetchingSourceUpdate(e.source.Name(), req.PlaylistID))
	playlist, tracks, err := e.fetchSource(ctx, req.PlaylistID)
	if err != nil {
		logger.Error("fetching source failed", "error", err)
		return nil, err
	}
	info.SourcePlaylistName = playlist.Name
	if info.TargetName == "" {
		info.TargetName = playlist.Name
	}
	logger.Info("fetched source", "name", playlist.Name, "tracks", len(tracks))
	e.sendProgress(progress, foundPlaylistUpdate(playlist, len(tracks)))

	r := &run{
		mode:    req.Mode,
		driver:  e.driver,
		matcher: e.matcher,
		policy:  e.opts.Retry,
		sleep:   e.opts.Sleep,
		timeout: e.opts.CallTimeout,
		limiter: newLimiter(e.opts.RateLimit),
		logger:  logger,
		report:  models.NewReportBuilder(info, len(tracks)),
	}

	e.sendProgress(progress, authenticateUpdate(e.driver.Name()))
	if err := r.authenticate(ctx, req.Credentials); err != nil {
		logger.Error("authentication failed", "error", err)
		return nil, err
	}

	if req.Mode == models.ModeSync {
		desc := req.Description
		if desc == "" {
			desc = fmt.Sprintf(defaultDescription, playlist.Name)
		}
		e.sendProgress(progress, ensurePlaylistUpdate(info.TargetName))
		if err := r.ensurePlaylist(ctx, info.TargetName, desc); err != nil {
			logger.Error("resolving playlist failed", "error", err)
			return nil, err
		}
		e.sendProgress(progress, playlistReadyUpdate(r.handle))
	}

	total := len(tracks)
	for i, d := range tracks {
		if err := ctx.Err(); err != nil {
			report := r.report.Build(e.opts.Now(), true)
			logger.Warn("run aborted", "processed", i, "total", total, "error", err)
			e.sendProgress(progress, completeUpdate(report))
			return report, fmt.Errorf("%w after %d of %d tracks: %w", shared.ErrRunAborted, i, total, err)
		}

		e.sendProgress(progress, searchTrackUpdate(i+1, total, d))
		o := r.report.Record(r.process(ctx, d))
		e.sendProgress(progress, outcomeUpdate(i+1, total, o))
	}

	report := r.report.Build(e.opts.Now(), false)
	c := report.Counts()
	logger.Info("run complete",
		"tracks", report.Len(), "added", c.Added, "already_present", c.AlreadyPresent,
		"would_add", c.WouldAdd, "not_found", c.NotFound, "ambiguous", c.Ambiguous, "failed", c.Failed)
	e.sendProgress(progress, completeUpdate(report))
	return report, nil
}

func (e *SyncEngine) fetchSource(ctx context.Context, playlistID string) (*models.Playlist, []models.TrackDescriptor, error) {
	playlist, err := e.source.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, nil, sourceError(ctx, err)
	}
	tracks, err := e.source.FetchPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, nil, sourceError(ctx, err)
	}
	return playlist, tracks, nil
}

// sourceError classifies a fetch failure. A cancelled run is an abort, not a source outage.
func sourceError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w while fetching the source playlist: %w", shared.ErrRunAborted, ctxErr)
	}
	if errors.Is(err, shared.ErrSourceAuth) || errors.Is(err, shared.ErrSourceNotFound) || errors.Is(err, shared.ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrSourceUnavailable, err)
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// bound applies the per-call timeout.
func (r *run) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

func (r *run) authenticate(ctx context.Context, credentials map[string]string) error {
	callCtx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.driver.Authenticate(callCtx, credentials); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	r.logger.Info("authenticated", "target", r.driver.Name())
	return nil
}

func (r *run) ensurePlaylist(ctx context.Context, name, description string) error {
	callCtx, cancel := r.bound(ctx)
	defer cancel()

	handle, err := r.driver.EnsurePlaylist(callCtx, name, description)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", shared.ErrPlaylistFailure, name, err)
	}
	if handle == nil {
		return fmt.Errorf("%w: %q: driver returned no playlist", shared.ErrPlaylistFailure, name)
	}

	r.handle = handle
	r.report.SetTarget(*handle)
	r.logger.Info("playlist ready", "name", handle.Name, "id", handle.ID)
	return nil
}

// process takes one descriptor through search, match and add. Driver calls
// are detached from ctx cancellation so a track always runs to completion.
func (r *run) process(ctx context.Context, d models.TrackDescriptor) models.SyncOutcome {
	ctx = context.WithoutCancel(ctx)
	o := models.SyncOutcome{Descriptor: d}
	query := matcher.Query(d)

	var candidates []models.Candidate
	attempts, err := retry.Do(ctx, r.policy, r.sleep, func(ctx context.Context) error {
		var err error
		candidates, err = r.search(ctx, query)
		return err
	})
	o.Attempts = attempts
	if err != nil {
		o.Status = models.StatusFailed
		o.Error = driverError("search", err)
		r.logger.Warn("search failed", "track", d, "attempts", attempts, "error", err)
		return o
	}

	result := r.matcher.Match(d, candidates)
	o.Match = &result

	switch result.Decision {
	case models.DecisionNotFound:
		o.Status = models.StatusNotFound
		r.logger.Info("not found", "track", d, "candidates", len(candidates), "confidence", result.Confidence)
		return o
	case models.DecisionAmbiguous:
		o.Status = models.StatusAmbiguous
		r.logger.Warn("ambiguous match", "track", d, "candidate", result.Candidate, "confidence", result.Confidence)
		return o
	}

	if r.mode == models.ModePreview {
		o.Status = models.StatusWouldAdd
		return o
	}

	var added models.AddResult
	attempts, err = retry.Do(ctx, r.policy, r.sleep, func(ctx context.Context) error {
		var err error
		added, err = r.add(ctx, *result.Candidate)
		return err
	})
	o.Attempts += attempts
	if err != nil {
		o.Status = models.StatusFailed
		o.Error = driverError("add", err)
		r.logger.Warn("add failed", "track", d, "attempts", attempts, "error", err)
		return o
	}

	o.Status = models.StatusAdded
	if added == models.AddResultAlreadyPresent {
		o.Status = models.StatusAlreadyPresent
	}
	r.logger.Debug("recorded", "track", d, "status", o.Status, "tab", result.Candidate.URL)
	return o
}

func (r *run) search(ctx context.Context, query string) ([]models.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := r.bound(ctx)
	defer cancel()
	return r.driver.Search(callCtx, query)
}

func (r *run) add(ctx context.Context, c models.Candidate) (models.AddResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.AddResultAdded, err
	}
	callCtx, cancel := r.bound(ctx)
	defer cancel()
	return r.driver.Add(callCtx, r.handle, c)
}

func driverError(op string, err error) string {
	if errors.Is(err, shared.ErrDriver) {
		return fmt.Sprintf("%s: %v", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, shared.ErrDriver, err).Error()
}
