// Package matcher scores target search results against source track descriptors.
//
// Matching is pure: the same descriptor and candidate list always produce the
// same [models.MatchResult].
package matcher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

// neutralArtist is the artist score given to candidates without artist metadata.
const neutralArtist = 0.5

// Config holds the decision thresholds and score weights.
type Config struct {
	High         float64
	Low          float64
	TitleWeight  float64
	ArtistWeight float64
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{High: 0.85, Low: 0.6, TitleWeight: 0.7, ArtistWeight: 0.3}
}

// Validate requires 0 < Low < High <= 1 and non-negative weights with a positive sum.
func (c Config) Validate() error {
	if c.Low <= 0 || c.Low >= c.High || c.High > 1 {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low (%.2f) < high (%.2f) <= 1", shared.ErrInvalidConfig, c.Low, c.High)
	}
	if c.TitleWeight < 0 || c.ArtistWeight < 0 || c.TitleWeight+c.ArtistWeight == 0 {
		return fmt.Errorf("%w: weights must be non-negative with a positive sum", shared.ErrInvalidConfig)
	}
	return nil
}

// Matcher decides whether a candidate represents the same song as a descriptor.
type Matcher struct {
	high, low    float64
	titleWeight  float64
	artistWeight float64
}

// New validates cfg and returns a Matcher with weights normalized to sum to 1.
func New(cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sum := cfg.TitleWeight + cfg.ArtistWeight
	return &Matcher{
		high:         cfg.High,
		low:          cfg.Low,
		titleWeight:  cfg.TitleWeight / sum,
		artistWeight: cfg.ArtistWeight / sum,
	}, nil
}

// Match scores every candidate and applies the threshold policy to the best.
// Candidates are assumed ranked by the target, so ties keep the earlier one.
func (m *Matcher) Match(d models.TrackDescriptor, candidates []models.Candidate) models.MatchResult {
	result := models.MatchResult{Descriptor: d, Decision: models.DecisionNotFound}
	if len(candidates) == 0 {
		return result
	}

	title := Normalize(d.Title)
	artists := artistForms(d.Artist)

	best, bestScore := -1, -1.0
	for i, c := range candidates {
		if s := m.score(title, artists, c); s > bestScore {
			best, bestScore = i, s
		}
	}

	c := candidates[best]
	result.Candidate = &c
	result.Confidence = bestScore
	switch {
	case bestScore >= m.high:
		result.Decision = models.DecisionMatched
	case bestScore >= m.low:
		result.Decision = models.DecisionAmbiguous
	}
	return result
}

// Score returns the weighted similarity of a single candidate.
func (m *Matcher) Score(d models.TrackDescriptor, c models.Candidate) float64 {
	return m.score(Normalize(d.Title), artistForms(d.Artist), c)
}

func (m *Matcher) score(title string, artists []string, c models.Candidate) float64 {
	titleSim := Similarity(title, Normalize(c.Title))

	artistSim := neutralArtist
	if candArtists := artistForms(c.Artist); len(candArtists) > 0 {
		artistSim = 0
		for _, a := range artists {
			for _, b := range candArtists {
				artistSim = max(artistSim, Similarity(a, b))
			}
		}
	}

	return clamp(m.titleWeight*titleSim + m.artistWeight*artistSim)
}

// Similarity is the normalized Levenshtein similarity of two already normalized strings.
// An empty string is similar to nothing, itself included.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
}

// Query builds the target search string: the title without qualifiers and the primary artist.
func Query(d models.TrackDescriptor) string {
	title := StripQualifiers(d.Title)
	if title == "" {
		title = strings.TrimSpace(d.Title)
	}
	if artist := d.PrimaryArtist(); artist != "" {
		return title + " " + artist
	}
	return title
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
