package capability

import (
	"testing"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
)

func records(domain model.Domain, scores ...float64) []model.TestRecord {
	out := make([]model.TestRecord, 0, len(scores))
	for _, s := range scores {
		out = append(out, model.TestRecord{Domain: domain, Score: s})
	}
	return out
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile model.AgentProfile
		want    float64
	}{
		{name: "fresh", profile: model.NewAgentProfile("a"), want: 0.2},
		{name: "mid", profile: model.AgentProfile{Level: 3, TestsTaken: 12, Wins: 4}, want: 0.6 + 0.12 + 0.08},
		{name: "caps components", profile: model.AgentProfile{Level: 2, TestsTaken: 500, Wins: 500}, want: 0.4 + 0.3 + 0.2},
		{name: "caps total", profile: model.AgentProfile{Level: 10, TestsTaken: 500, Wins: 500}, want: 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Score(tt.profile), 1e-9)
		})
	}
}

func TestAnalyze_DomainTags(t *testing.T) {
	t.Parallel()

	p := model.NewAgentProfile("guardian")
	p.TestHistory = append(p.TestHistory, records(model.DomainSecurity, 20, 30, 50)...)
	p.TestHistory = append(p.TestHistory, records(model.DomainCreative, 80, 90)...)
	p.TestHistory = append(p.TestHistory, records(model.DomainSystemLevel, 40, 70)...)

	a := NewAnalyzer().Analyze(p)

	assert.Contains(t, a.Weaknesses, "weak_in_security")
	assert.Contains(t, a.Strengths, "strong_in_creativity")
	assert.NotContains(t, a.Weaknesses, "weak_in_system_level")
	assert.NotContains(t, a.Strengths, "strong_in_system_level")
	assert.InDelta(t, 0.55, a.DomainScores[model.DomainSystemLevel], 1e-9)
}

func TestAnalyze_ProfileTags(t *testing.T) {
	t.Parallel()

	p := model.NewAgentProfile("sandbox")
	for i := 0; i < 4; i++ {
		p.RecordAttempt(false)
	}
	p.RecordAttempt(true)
	for i := 0; i < 3; i++ {
		p.RecordAttempt(false)
	}

	a := NewAnalyzer().Analyze(p)

	assert.Equal(t, []string{TagHighFailureRate, TagInconsistent, TagLowPassRate}, a.Weaknesses)
	assert.Empty(t, a.Strengths)
	assert.Equal(t, PreferenceLow, a.DifficultyPreference)
}

func TestAnalyze_NoHistoryHasNoRateTags(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer().Analyze(model.NewAgentProfile("fresh"))

	assert.Empty(t, a.Weaknesses)
	assert.Empty(t, a.Strengths)
	assert.Equal(t, PreferenceMedium, a.DifficultyPreference)
	assert.Equal(t, TrendStable, a.RecentTrend)
}

func TestTrend(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TrendImproving, Trend(records(model.DomainSecurity, 0, 0, 40, 50, 55, 60, 70)))
	assert.Equal(t, TrendDeclining, Trend(records(model.DomainSecurity, 90, 75)))
	assert.Equal(t, TrendStable, Trend(records(model.DomainSecurity, 60, 10, 70)))
	assert.Equal(t, TrendStable, Trend(records(model.DomainSecurity, 60)))
}
