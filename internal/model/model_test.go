package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRecord_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	p := NewAgentProfile("imperium")
	for i := 0; i < 137; i++ {
		p.AppendRecord(TestRecord{ScenarioID: fmt.Sprintf("s-%03d", i)})
		require.LessOrEqual(t, len(p.TestHistory), MaxTestHistory)
	}

	require.Len(t, p.TestHistory, MaxTestHistory)
	assert.Equal(t, "s-087", p.TestHistory[0].ScenarioID)
	assert.Equal(t, "s-136", p.TestHistory[MaxTestHistory-1].ScenarioID)
	assert.False(t, p.HasScenario("s-086"))
	assert.True(t, p.HasScenario("s-087"))
}

func TestRecordAttempt_StreaksAreMutuallyExclusive(t *testing.T) {
	t.Parallel()

	p := NewAgentProfile("guardian")
	p.RecordAttempt(true)
	p.RecordAttempt(true)
	assert.Equal(t, 2, p.ConsecutiveSuccesses)
	assert.Zero(t, p.ConsecutiveFailures)

	p.RecordAttempt(false)
	assert.Zero(t, p.ConsecutiveSuccesses)
	assert.Equal(t, 1, p.ConsecutiveFailures)

	assert.Equal(t, 3, p.TestsTaken)
	assert.Equal(t, 2, p.TestsPassed)
	assert.InDelta(t, 2.0/3.0, p.PassRate, 1e-9)
	assert.LessOrEqual(t, p.PassRate+p.FailureRate, 1.0+1e-9)
}

func TestClone_DoesNotShareSlices(t *testing.T) {
	t.Parallel()

	p := NewAgentProfile("sandbox")
	p.AppendRecord(TestRecord{ScenarioID: "a"})
	p.Weaknesses = []string{"weak_in_security"}

	c := p.Clone()
	c.TestHistory[0].ScenarioID = "b"
	c.Weaknesses[0] = "changed"

	assert.Equal(t, "a", p.TestHistory[0].ScenarioID)
	assert.Equal(t, "weak_in_security", p.Weaknesses[0])
}

func TestComplexity_OrderingAndText(t *testing.T) {
	t.Parallel()

	all := AllComplexities()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1], all[i])
	}

	data, err := json.Marshal(struct {
		C Complexity `json:"c"`
	}{C: ComplexityExpert})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"expert"}`, string(data))

	var decoded struct {
		C Complexity `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"c":"MASTER"}`), &decoded))
	assert.Equal(t, ComplexityMaster, decoded.C)

	_, err = ParseComplexity("legendary")
	assert.Error(t, err)
	assert.Equal(t, ComplexityBasic, Complexity(-3).Clamp())
	assert.Equal(t, ComplexityMaster, Complexity(42).Clamp())
}

func TestScores_MeanAndValidity(t *testing.T) {
	t.Parallel()

	s := Scores{Completeness: 100, Creativity: 80, Feasibility: 60, TechnicalDepth: 40, ConstraintAdherence: 20}
	assert.InDelta(t, 60.0, s.Mean(), 1e-9)
	assert.True(t, s.Valid())

	s.Creativity = 101
	assert.False(t, s.Valid())
}

func TestContent_Usable(t *testing.T) {
	t.Parallel()

	assert.False(t, Content{Objectives: []string{" "}, SuccessCriteria: []string{"x"}}.Usable())
	assert.True(t, Content{Objectives: []string{"deploy"}, SuccessCriteria: []string{"up"}}.Usable())
}

func TestParseDomain(t *testing.T) {
	t.Parallel()

	d, err := ParseDomain("SECURITY_CHALLENGES")
	require.NoError(t, err)
	assert.Equal(t, DomainSecurity, d)
	assert.Equal(t, "security", d.Tag())

	_, err = ParseDomain("lore")
	assert.Error(t, err)
}

func TestRewardLevel_Multiplier(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, RewardLevel("").Multiplier(), 1e-9)
	assert.InDelta(t, 0.5, RewardLow.Multiplier(), 1e-9)
	assert.InDelta(t, 3.0, RewardExtreme.Multiplier(), 1e-9)
}
