// Package capability derives capability estimates and strength/weakness tags from agent profiles.
package capability

import (
	"math"
	"sort"

	"github.com/metalagman/gauntlet/internal/model"
)

// Tag prefixes for domain performance.
const (
	WeakPrefix   = "weak_in_"
	StrongPrefix = "strong_in_"
)

// Profile-level tags.
const (
	TagHighPassRate    = "high_test_pass_rate"
	TagConsistent      = "consistent_performance"
	TagLowPassRate     = "low_test_pass_rate"
	TagHighFailureRate = "high_failure_rate"
	TagInconsistent    = "inconsistent_performance"
)

const (
	maxCapabilityScore    = 2.0
	weakDomainThreshold   = 0.4
	strongDomainThreshold = 0.7
)

// Difficulty preferences.
const (
	PreferenceHigh   = "high"
	PreferenceMedium = "medium"
	PreferenceLow    = "low"
)

// Trend classifications over the trailing window of scores.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"

	// TrendWindow is the number of most recent records considered for a trend.
	TrendWindow    = 5
	trendThreshold = 10.0
)

// Analysis is the derived view of one profile.
type Analysis struct {
	AgentID              string
	CapabilityScore      float64
	Strengths            []string
	Weaknesses           []string
	DomainScores         map[model.Domain]float64
	RecentTrend          string
	DifficultyPreference string
}

// Analyzer derives capability data. It holds no state.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() Analyzer {
	return Analyzer{}
}

// Analyze derives capability score, tags and patterns from p without modifying it.
func (Analyzer) Analyze(p model.AgentProfile) Analysis {
	domainScores := DomainScores(p.TestHistory)
	strengths, weaknesses := tags(p, domainScores)
	return Analysis{
		AgentID:              p.ID,
		CapabilityScore:      Score(p),
		Strengths:            strengths,
		Weaknesses:           weaknesses,
		DomainScores:         domainScores,
		RecentTrend:          Trend(p.TestHistory),
		DifficultyPreference: preference(p),
	}
}

// Score is level*0.2 + min(tests*0.01, 0.3) + min(wins*0.02, 0.2), capped at 2.0.
func Score(p model.AgentProfile) float64 {
	level := p.Level
	if level < 1 {
		level = 1
	}
	score := float64(level)*0.2 +
		math.Min(float64(p.TestsTaken)*0.01, 0.3) +
		math.Min(float64(p.Wins)*0.02, 0.2)
	return math.Min(score, maxCapabilityScore)
}

// DomainScores returns the mean normalized score (0..1) per domain present in history.
func DomainScores(history []model.TestRecord) map[model.Domain]float64 {
	sums := make(map[model.Domain]float64)
	counts := make(map[model.Domain]int)
	for _, rec := range history {
		if rec.Domain == "" {
			continue
		}
		sums[rec.Domain] += rec.Score / 100
		counts[rec.Domain]++
	}
	out := make(map[model.Domain]float64, len(sums))
	for d, sum := range sums {
		out[d] = sum / float64(counts[d])
	}
	return out
}

func tags(p model.AgentProfile, domainScores map[model.Domain]float64) ([]string, []string) {
	var strengths, weaknesses []string
	for d, score := range domainScores {
		switch {
		case score < weakDomainThreshold:
			weaknesses = append(weaknesses, WeakPrefix+d.Tag())
		case score > strongDomainThreshold:
			strengths = append(strengths, StrongPrefix+d.Tag())
		}
	}

	if p.HasHistory() {
		if p.PassRate > 0.7 {
			strengths = append(strengths, TagHighPassRate)
		}
		if p.PassRate < 0.5 {
			weaknesses = append(weaknesses, TagLowPassRate)
		}
		if p.FailureRate > 0.3 {
			weaknesses = append(weaknesses, TagHighFailureRate)
		}
	}
	if p.ConsecutiveSuccesses > 3 {
		strengths = append(strengths, TagConsistent)
	}
	if p.ConsecutiveFailures > 2 {
		weaknesses = append(weaknesses, TagInconsistent)
	}

	sort.Strings(strengths)
	sort.Strings(weaknesses)
	return strengths, weaknesses
}

// Trend compares the first and last score of the trailing TrendWindow records.
func Trend(history []model.TestRecord) string {
	window := history
	if len(window) > TrendWindow {
		window = window[len(window)-TrendWindow:]
	}
	if len(window) < 2 {
		return TrendStable
	}
	delta := window[len(window)-1].Score - window[0].Score
	switch {
	case delta > trendThreshold:
		return TrendImproving
	case delta < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func preference(p model.AgentProfile) string {
	rate := 0.5
	if p.HasHistory() {
		rate = p.PassRate
	}
	switch {
	case rate > 0.8:
		return PreferenceHigh
	case rate < 0.4:
		return PreferenceLow
	default:
		return PreferenceMedium
	}
}
