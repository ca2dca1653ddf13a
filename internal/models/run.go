package models

import (
	"fmt"
	"time"
)

// Run history statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
	RunStatusFailed    = "failed"
)

// RunRecord is the persisted summary of one run, kept for the history command only.
type RunRecord struct {
	id                 string
	sequence           int
	mode               Mode
	status             string
	sourcePlaylistID   string
	sourcePlaylistName string
	targetName         string
	tracksTotal        int
	counts             Counts
	errorMessage       string
	startedAt          time.Time
	finishedAt         *time.Time
	createdAt          time.Time
	updatedAt          time.Time
	deletedAt          *time.Time
}

// NewRunRecord creates a record for a run that has not produced a report yet.
func NewRunRecord(mode Mode, sourcePlaylistID, targetName string) *RunRecord {
	now := time.Now()
	return &RunRecord{
		mode:             mode,
		status:           RunStatusCompleted,
		sourcePlaylistID: sourcePlaylistID,
		targetName:       targetName,
		startedAt:        now,
		createdAt:        now,
		updatedAt:        now,
	}
}

// RunRecordFromReport summarises a finished report.
func RunRecordFromReport(report *SyncReport) *RunRecord {
	info := report.Info()
	finished := report.FinishedAt()
	status := RunStatusCompleted
	if report.Aborted() {
		status = RunStatusAborted
	}

	r := NewRunRecord(info.Mode, info.SourcePlaylistID, info.TargetName)
	r.id = info.RunID
	r.status = status
	r.sourcePlaylistName = info.SourcePlaylistName
	r.tracksTotal = report.Len()
	r.counts = report.Counts()
	r.startedAt = info.StartedAt
	r.finishedAt = &finished
	return r
}

func (r *RunRecord) ID() string                 { return r.id }
func (r *RunRecord) Sequence() int              { return r.sequence }
func (r *RunRecord) Mode() Mode                 { return r.mode }
func (r *RunRecord) Status() string             { return r.status }
func (r *RunRecord) SourcePlaylistID() string   { return r.sourcePlaylistID }
func (r *RunRecord) SourcePlaylistName() string { return r.sourcePlaylistName }
func (r *RunRecord) TargetName() string         { return r.targetName }
func (r *RunRecord) TracksTotal() int           { return r.tracksTotal }
func (r *RunRecord) Counts() Counts             { return r.counts }
func (r *RunRecord) ErrorMessage() string       { return r.errorMessage }
func (r *RunRecord) StartedAt() time.Time       { return r.startedAt }
func (r *RunRecord) FinishedAt() *time.Time     { return r.finishedAt }
func (r *RunRecord) CreatedAt() time.Time       { return r.createdAt }
func (r *RunRecord) UpdatedAt() time.Time       { return r.updatedAt }
func (r *RunRecord) DeletedAt() *time.Time      { return r.deletedAt }

func (r *RunRecord) SetID(id string)                { r.id = id }
func (r *RunRecord) SetSequence(seq int)            { r.sequence = seq }
func (r *RunRecord) SetStatus(status string)        { r.status = status }
func (r *RunRecord) SetSourcePlaylistName(n string) { r.sourcePlaylistName = n }
func (r *RunRecord) SetTracksTotal(n int)           { r.tracksTotal = n }
func (r *RunRecord) SetCounts(c Counts)             { r.counts = c }
func (r *RunRecord) SetErrorMessage(msg string)     { r.errorMessage = msg }
func (r *RunRecord) SetStartedAt(t time.Time)       { r.startedAt = t }
func (r *RunRecord) SetFinishedAt(t *time.Time)     { r.finishedAt = t }
func (r *RunRecord) SetCreatedAt(t time.Time)       { r.createdAt = t }
func (r *RunRecord) SetUpdatedAt(t time.Time)       { r.updatedAt = t }
func (r *RunRecord) SetDeletedAt(t *time.Time)      { r.deletedAt = t }

// Validate checks the fields required by the run history schema.
func (r *RunRecord) Validate() error {
	if r.sourcePlaylistID == "" {
		return fmt.Errorf("source playlist ID is required")
	}
	switch r.status {
	case RunStatusCompleted, RunStatusAborted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}
	if r.tracksTotal < 0 {
		return fmt.Errorf("tracks total cannot be negative")
	}
	return nil
}
