package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

const runColumns = `
	id, sequence, mode, status, source_playlist_id, source_playlist_name,
	target_name, tracks_total, added, already_present, not_found, ambiguous,
	failed, would_add, error_message, started_at, finished_at, created_at,
	updated_at, deleted_at
`

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

var _ models.Repository[*models.RunRecord] = (*RunRepository)(nil)

// RunRepository implements models.Repository[*models.RunRecord] for the run history.
//
// Handles run CRUD operations with soft delete support, plus the per-track outcomes of each run.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated sequence. An ID is generated when the record has none.
func (r *RunRepository) Create(run *models.RunRecord) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	run.SetSequence(sequence)

	if _, err := r.db.Exec(insertRunQuery, insertRunArgs(run)...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

const insertRunQuery = `
	INSERT INTO sync_runs (` + runColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertRunArgs(run *models.RunRecord) []any {
	c := run.Counts()
	return []any{
		run.ID(),
		run.Sequence(),
		run.Mode().String(),
		run.Status(),
		run.SourcePlaylistID(),
		nullable(run.SourcePlaylistName()),
		nullable(run.TargetName()),
		run.TracksTotal(),
		c.Added,
		c.AlreadyPresent,
		c.NotFound,
		c.Ambiguous,
		c.Failed,
		c.WouldAdd,
		nullable(run.ErrorMessage()),
		run.StartedAt(),
		run.FinishedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
		run.DeletedAt(),
	}
}

// SaveReport records a finished report and its outcomes in one transaction.
func (r *RunRepository) SaveReport(report *models.SyncReport) (*models.RunRecord, error) {
	run := models.RunRecordFromReport(report)
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(tx, "sync_runs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	run.SetSequence(sequence)

	if _, err := tx.Exec(insertRunQuery, insertRunArgs(run)...); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sync_outcomes (
			run_id, position, title, artist, album, status, decision,
			candidate_title, candidate_artist, candidate_url, confidence,
			attempts, error_message
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range report.Outcomes() {
		var decision, candidateTitle, candidateArtist, candidateURL any
		var confidence float64
		if o.Match != nil {
			decision = o.Match.Decision.String()
			confidence = o.Match.Confidence
			if c := o.Match.Candidate; c != nil {
				candidateTitle = c.Title
				candidateArtist = nullable(c.Artist)
				candidateURL = c.URL
			}
		}

		_, err := stmt.Exec(
			run.ID(),
			o.Index,
			o.Descriptor.Title,
			o.Descriptor.Artist,
			nullable(o.Descriptor.Album),
			o.Status.String(),
			decision,
			candidateTitle,
			candidateArtist,
			candidateURL,
			confidence,
			o.Attempts,
			nullable(o.Error),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert outcome %d: %w", o.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetBySequence retrieves a run by its sequence number, excluding soft-deleted runs
func (r *RunRepository) GetBySequence(sequence int) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, sequence), fmt.Sprintf("#%d", sequence))
}

// Update modifies the mutable fields of an existing run
func (r *RunRepository) Update(run *models.RunRecord) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)
	c := run.Counts()

	query := `
		UPDATE sync_runs
		SET status = ?, source_playlist_name = ?, tracks_total = ?, added = ?,
			already_present = ?, not_found = ?, ambiguous = ?, failed = ?,
			would_add = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		nullable(run.SourcePlaylistName()),
		run.TracksTotal(),
		c.Added,
		c.AlreadyPresent,
		c.NotFound,
		c.Ambiguous,
		c.Failed,
		c.WouldAdd,
		nullable(run.ErrorMessage()),
		run.FinishedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return expectOne(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE sync_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectOne(result, id)
}

func expectOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s not found or already deleted", shared.ErrRecordNotFound, id)
	}
	return nil
}

// List retrieves runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "status", "mode" and "playlist_id" (strings) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if mode, ok := criteria["mode"].(string); ok && mode != "" {
		query += " AND mode = ?"
		args = append(args, mode)
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND source_playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Outcomes returns the recorded outcomes of a run in source order.
func (r *RunRepository) Outcomes(runID string) ([]models.SyncOutcome, error) {
	query := `
		SELECT
			position, title, artist, album, status, decision, candidate_title,
			candidate_artist, candidate_url, confidence, attempts, error_message
		FROM sync_outcomes
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.SyncOutcome
	for rows.Next() {
		var (
			o               models.SyncOutcome
			album           sql.NullString
			status          string
			decision        sql.NullString
			candidateTitle  sql.NullString
			candidateArtist sql.NullString
			candidateURL    sql.NullString
			confidence      float64
			errorMessage    sql.NullString
		)

		err := rows.Scan(
			&o.Index, &o.Descriptor.Title, &o.Descriptor.Artist, &album, &status,
			&decision, &candidateTitle, &candidateArtist, &candidateURL,
			&confidence, &o.Attempts, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		o.Descriptor.Album = album.String
		o.Error = errorMessage.String
		if o.Status, err = models.ParseStatus(status); err != nil {
			return nil, err
		}
		if decision.Valid {
			d, err := models.ParseDecision(decision.String)
			if err != nil {
				return nil, err
			}
			o.Match = &models.MatchResult{Descriptor: o.Descriptor, Confidence: confidence, Decision: d}
			if candidateURL.Valid {
				o.Match.Candidate = &models.Candidate{
					Title:  candidateTitle.String,
					Artist: candidateArtist.String,
					URL:    candidateURL.String,
				}
			}
		}

		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

func (r *RunRepository) scanOne(row *sql.Row, key string) (*models.RunRecord, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", shared.ErrRecordNotFound, key)
	}
	return run, err
}

// scanRun scans a single row into a [models.RunRecord]
func scanRun(row scanner) (*models.RunRecord, error) {
	var (
		id                 string
		sequence           int
		mode               string
		status             string
		sourcePlaylistID   string
		sourcePlaylistName sql.NullString
		targetName         sql.NullString
		tracksTotal        int
		c                  models.Counts
		errorMessage       sql.NullString
		startedAt          sql.NullTime
		finishedAt         sql.NullTime
		createdAt          time.Time
		updatedAt          time.Time
		deletedAt          sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &mode, &status, &sourcePlaylistID, &sourcePlaylistName,
		&targetName, &tracksTotal, &c.Added, &c.AlreadyPresent, &c.NotFound, &c.Ambiguous,
		&c.Failed, &c.WouldAdd, &errorMessage, &startedAt, &finishedAt, &createdAt,
		&updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	m, err := models.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRunRecord(m, sourcePlaylistID, targetName.String)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetStatus(status)
	run.SetSourcePlaylistName(sourcePlaylistName.String)
	run.SetTracksTotal(tracksTotal)
	run.SetCounts(c)
	run.SetErrorMessage(errorMessage.String)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if startedAt.Valid {
		run.SetStartedAt(startedAt.Time)
	}
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
