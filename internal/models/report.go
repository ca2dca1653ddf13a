package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the per-track result recorded in a [SyncReport].
type Status int

const (
	StatusAdded Status = iota
	StatusAlreadyPresent
	StatusNotFound
	StatusAmbiguous
	StatusFailed
	StatusWouldAdd
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusAdded, StatusAlreadyPresent, StatusWouldAdd, StatusNotFound, StatusAmbiguous, StatusFailed}

func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "ADDED"
	case StatusAlreadyPresent:
		return "ALREADY_PRESENT"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusAmbiguous:
		return "AMBIGUOUS"
	case StatusFailed:
		return "FAILED"
	case StatusWouldAdd:
		return "WOULD_ADD"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status name for JSON and YAML.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStatus is the inverse of [Status.String].
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if st.String() == s {
			return st, nil
		}
	}
	return StatusFailed, fmt.Errorf("unknown status %q", s)
}

// SyncOutcome records what happened to one descriptor.
type SyncOutcome struct {
	Index      int             `json:"index" yaml:"index"`
	Descriptor TrackDescriptor `json:"descriptor" yaml:"descriptor"`
	Status     Status          `json:"status" yaml:"status"`
	Match      *MatchResult    `json:"match,omitempty" yaml:"match,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts   int             `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// clone copies the outcome together with its match and candidate.
func (o SyncOutcome) clone() SyncOutcome {
	if o.Match != nil {
		m := *o.Match
		if m.Candidate != nil {
			c := *m.Candidate
			m.Candidate = &c
		}
		o.Match = &m
	}
	return o
}

func cloneOutcomes(outcomes []SyncOutcome) []SyncOutcome {
	out := make([]SyncOutcome, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.clone()
	}
	return out
}

// Counts aggregates outcomes by status.
type Counts struct {
	Added          int `json:"added" yaml:"added"`
	AlreadyPresent int `json:"already_present" yaml:"already_present"`
	NotFound       int `json:"not_found" yaml:"not_found"`
	Ambiguous      int `json:"ambiguous" yaml:"ambiguous"`
	Failed         int `json:"failed" yaml:"failed"`
	WouldAdd       int `json:"would_add" yaml:"would_add"`
}

// Of returns the count for a single status.
func (c Counts) Of(s Status) int {
	switch s {
	case StatusAdded:
		return c.Added
	case StatusAlreadyPresent:
		return c.AlreadyPresent
	case StatusNotFound:
		return c.NotFound
	case StatusAmbiguous:
		return c.Ambiguous
	case StatusFailed:
		return c.Failed
	case StatusWouldAdd:
		return c.WouldAdd
	}
	return 0
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusAdded:
		c.Added++
	case StatusAlreadyPresent:
		c.AlreadyPresent++
	case StatusNotFound:
		c.NotFound++
	case StatusAmbiguous:
		c.Ambiguous++
	case StatusFailed:
		c.Failed++
	case StatusWouldAdd:
		c.WouldAdd++
	}
}

// Synced is the number of tracks present in (or bound for) the target after the run.
func (c Counts) Synced() int {
	return c.Added + c.AlreadyPresent + c.WouldAdd
}

// RunInfo describes the run a report belongs to.
type RunInfo struct {
	RunID              string          `json:"run_id" yaml:"run_id"`
	Mode               Mode            `json:"mode" yaml:"mode"`
	SourcePlaylistID   string          `json:"source_playlist_id" yaml:"source_playlist_id"`
	SourcePlaylistName string          `json:"source_playlist_name" yaml:"source_playlist_name"`
	TargetName         string          `json:"target_name" yaml:"target_name"`
	Target             *PlaylistHandle `json:"target,omitempty" yaml:"target,omitempty"`
	StartedAt          time.Time       `json:"started_at" yaml:"started_at"`
}

// SyncReport is the immutable result of one run.
//
// Build it with [ReportBuilder]; accessors return copies.
type SyncReport struct {
	info       RunInfo
	outcomes   []SyncOutcome
	counts     Counts
	finishedAt time.Time
	aborted    bool
}

func (r *SyncReport) RunID() string         { return r.info.RunID }
func (r *SyncReport) Mode() Mode            { return r.info.Mode }
func (r *SyncReport) Counts() Counts        { return r.counts }
func (r *SyncReport) Len() int              { return len(r.outcomes) }
func (r *SyncReport) FinishedAt() time.Time { return r.finishedAt }

// Info returns the run metadata; the target handle is copied.
func (r *SyncReport) Info() RunInfo {
	info := r.info
	if info.Target != nil {
		h := *info.Target
		info.Target = &h
	}
	return info
}

// Aborted reports whether the run stopped early; the outcomes then cover only a prefix of the source.
func (r *SyncReport) Aborted() bool { return r.aborted }

// Outcomes returns a deep copy of the ordered outcomes.
func (r *SyncReport) Outcomes() []SyncOutcome {
	return cloneOutcomes(r.outcomes)
}

// Duration is the wall time of the run.
func (r *SyncReport) Duration() time.Duration {
	return r.finishedAt.Sub(r.info.StartedAt)
}

// SuccessRate is the share of outcomes that ended (or would end) in the target, in percent.
func (r *SyncReport) SuccessRate() float64 {
	if len(r.outcomes) == 0 {
		return 0
	}
	return float64(r.counts.Synced()) / float64(len(r.outcomes)) * 100
}

type reportJSON struct {
	RunInfo    `yaml:",inline"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Aborted    bool          `json:"aborted" yaml:"aborted"`
	Counts     Counts        `json:"counts" yaml:"counts"`
	Outcomes   []SyncOutcome `json:"outcomes" yaml:"outcomes"`
}

// View flattens the report into a plain struct for encoders.
func (r *SyncReport) View() any {
	return reportJSON{
		RunInfo:    r.Info(),
		FinishedAt: r.finishedAt,
		Aborted:    r.aborted,
		Counts:     r.counts,
		Outcomes:   r.Outcomes(),
	}
}

// MarshalJSON implements [json.Marshaler].
func (r *SyncReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.View())
}

// ReportBuilder accumulates outcomes during a run. It is owned by exactly one run.
type ReportBuilder struct {
	info     RunInfo
	outcomes []SyncOutcome
}

// NewReportBuilder starts a report for the given run.
func NewReportBuilder(info RunInfo, capacity int) *ReportBuilder {
	return &ReportBuilder{info: info, outcomes: make([]SyncOutcome, 0, capacity)}
}

// SetTarget records the resolved destination playlist.
func (b *ReportBuilder) SetTarget(h PlaylistHandle) {
	b.info.Target = &h
}

// Record appends an outcome, assigning its index from the current length.
func (b *ReportBuilder) Record(o SyncOutcome) SyncOutcome {
	o.Index = len(b.outcomes)
	b.outcomes = append(b.outcomes, o)
	return o
}

// Len is the number of outcomes recorded so far.
func (b *ReportBuilder) Len() int { return len(b.outcomes) }

// Build freezes the accumulated outcomes into a [SyncReport].
func (b *ReportBuilder) Build(finishedAt time.Time, aborted bool) *SyncReport {
	outcomes := cloneOutcomes(b.outcomes)

	var counts Counts
	for _, o := range outcomes {
		counts.add(o.Status)
	}

	report := &SyncReport{
		info:       b.info,
		outcomes:   outcomes,
		counts:     counts,
		finishedAt: finishedAt,
		aborted:    aborted,
	}
	report.info = report.Info()
	return report
}
