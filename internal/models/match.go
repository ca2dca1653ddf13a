package models

import (
	"fmt"
	"strings"
)

// Decision is the matcher's verdict for one descriptor.
type Decision int

const (
	DecisionNotFound Decision = iota
	DecisionAmbiguous
	DecisionMatched
)

func (d Decision) String() string {
	switch d {
	case DecisionMatched:
		return "MATCHED"
	case DecisionAmbiguous:
		return "AMBIGUOUS"
	default:
		return "NOT_FOUND"
	}
}

// MarshalText renders the decision name for JSON and YAML.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDecision is the inverse of [Decision.String].
func ParseDecision(s string) (Decision, error) {
	for _, d := range []Decision{DecisionMatched, DecisionAmbiguous, DecisionNotFound} {
		if d.String() == s {
			return d, nil
		}
	}
	return DecisionNotFound, fmt.Errorf("unknown decision %q", s)
}

// MatchResult is the outcome of scoring a descriptor against the search candidates.
//
// Candidate is nil when there were no candidates at all.
type MatchResult struct {
	Descriptor TrackDescriptor `json:"descriptor" yaml:"descriptor"`
	Candidate  *Candidate      `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Decision   Decision        `json:"decision" yaml:"decision"`
}

// Mode selects whether a run mutates the target.
type Mode int

const (
	ModeSync Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "sync"
}

// MarshalText renders the mode name for JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode parses "sync" or "preview" (case-insensitive, "dry-run" accepted for preview).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "":
		return ModeSync, nil
	case "preview", "dry-run", "dryrun":
		return ModePreview, nil
	default:
		return ModeSync, fmt.Errorf("unknown mode %q", s)
	}
}
