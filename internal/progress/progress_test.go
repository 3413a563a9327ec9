package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/metalagman/gauntlet/internal/capability"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReporter() *Reporter {
	r := NewReporter()
	r.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func withHistory(id string, xp int, recs ...model.TestRecord) model.AgentProfile {
	p := model.NewAgentProfile(id)
	p.XP = xp
	p.CustodyXP = xp
	for _, rec := range recs {
		p.RecordAttempt(rec.Passed)
		if rec.Result == model.ResultWinner {
			p.Wins++
		}
		p.AppendRecord(rec)
	}
	return p
}

func rec(d model.Domain, c model.Complexity, score float64, result string) model.TestRecord {
	return model.TestRecord{Domain: d, Complexity: c, Score: score, Passed: score >= 70, Result: result}
}

func TestAgent(t *testing.T) {
	t.Parallel()

	p := withHistory("guardian", 1200,
		rec(model.DomainSecurity, model.ComplexityBasic, 40, model.ResultLoser),
		rec(model.DomainSecurity, model.ComplexityAdvanced, 60, model.ResultLoser),
		rec(model.DomainCreative, model.ComplexityAdvanced, 90, model.ResultWinner),
	)
	before := p.Clone()

	s := testReporter().Agent(p)

	assert.Equal(t, before, p)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, 5000, s.NextLevelXP)
	assert.Equal(t, 5, s.CustodyLevel)
	assert.Equal(t, 3, s.Participations)
	assert.Equal(t, 1, s.Wins)
	assert.InDelta(t, 190.0/3, s.MeanScore, 1e-9)
	assert.Equal(t, map[model.Domain]int{model.DomainSecurity: 2, model.DomainCreative: 1}, s.DomainHistogram)
	assert.Equal(t, 2, s.ComplexityHistogram[model.ComplexityAdvanced])
	assert.Equal(t, capability.TrendImproving, s.Trend)
}

func TestReport(t *testing.T) {
	t.Parallel()

	profiles := []model.AgentProfile{
		withHistory("sandbox", 100, rec(model.DomainSystemLevel, model.ComplexityBasic, 30, model.ResultLoser)),
		withHistory("imperium", 6000, rec(model.DomainSystemLevel, model.ComplexityBasic, 90, model.ResultWinner)),
		withHistory("conquest", 100),
	}

	s := testReporter().Report(profiles)

	require.Len(t, s.Agents, 3)
	assert.Equal(t, "imperium", s.Agents[0].AgentID)
	assert.Equal(t, "conquest", s.Agents[1].AgentID)
	assert.Equal(t, "sandbox", s.Agents[2].AgentID)
	assert.Equal(t, 2, s.TotalParticipations)
	assert.Equal(t, 1, s.TotalWins)
	assert.InDelta(t, 60, s.MeanScore, 1e-9)
	assert.Equal(t, 2, s.DomainHistogram[model.DomainSystemLevel])
	assert.Equal(t, map[int]int{1: 2, 3: 1}, s.LevelDistribution)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"complexity_histogram":{"basic":2}`)
}

func TestReport_Empty(t *testing.T) {
	t.Parallel()

	s := testReporter().Report(nil)

	assert.Empty(t, s.Agents)
	assert.Zero(t, s.MeanScore)
}
