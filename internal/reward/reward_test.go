package reward

import (
	"fmt"
	"testing"
	"time"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator() *Calculator {
	n := 0
	return &Calculator{newID: func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}}
}

func scenarioAt(c model.Complexity) model.Scenario {
	return model.Scenario{ID: "scn-1", Domain: model.DomainSecurity, Complexity: c, RewardLevel: model.RewardStandard}
}

func TestComputeReward_AdvancedLevelThreeExample(t *testing.T) {
	t.Parallel()

	agent := model.NewAgentProfile("guardian")
	agent.Level = 3
	agent.XP = 5000

	tx := newTestCalculator().ComputeReward(agent, model.EvaluationResult{OverallScore: 85, Passed: true}, scenarioAt(model.ComplexityAdvanced))

	assert.InDelta(t, 1.2, LevelMultiplier(3), 1e-9)
	assert.Equal(t, 204, tx.XPDelta)
	assert.Equal(t, 204, tx.BaseXP)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, 3, tx.PreviousLevel)
}

func TestComputeReward_NeverBelowFloor(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	for _, c := range model.AllComplexities() {
		for _, level := range []int{0, 1, 5, 10} {
			for _, score := range []float64{0, 0.5, 3, 19.9, 50, 100} {
				for _, rl := range []model.RewardLevel{model.RewardLow, model.RewardStandard, model.RewardExtreme} {
					agent := model.NewAgentProfile("a")
					agent.Level = level
					s := scenarioAt(c)
					s.RewardLevel = rl
					tx := calc.ComputeReward(agent, model.EvaluationResult{OverallScore: score}, s)
					require.GreaterOrEqual(t, tx.XPDelta, MinXP, "complexity=%s level=%d score=%v", c, level, score)
				}
			}
		}
	}
}

func TestLoserXP_NeverBelowFloor(t *testing.T) {
	t.Parallel()

	for xp := 0; xp <= 2000; xp++ {
		require.GreaterOrEqual(t, LoserXP(xp), MinXP)
	}
	assert.Equal(t, 142, LoserXP(204))
	assert.Equal(t, 10, LoserXP(12))
}

func TestApplyOutcomeAdjustments(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	base := map[string]model.RewardTransaction{
		"imperium": {AgentID: "imperium", Complexity: model.ComplexityExpert, BaseXP: 300, XPDelta: 300, PreviousLevel: 1},
		"guardian": {AgentID: "guardian", Complexity: model.ComplexityExpert, BaseXP: 100, XPDelta: 100, PreviousLevel: 1},
		"sandbox":  {AgentID: "sandbox", Complexity: model.ComplexityExpert, BaseXP: 10, XPDelta: 10, PreviousLevel: 1},
	}
	outcome := model.CompetitionOutcome{
		Winners: []string{"imperium"},
		Losers:  []string{"guardian", "sandbox"},
	}

	got := calc.ApplyOutcomeAdjustments(outcome, base)

	require.Len(t, got, 3)
	assert.Equal(t, 500, got["imperium"].XPDelta)
	assert.Equal(t, 200, got["imperium"].BonusXP)
	assert.True(t, got["imperium"].IsBonus)
	assert.Equal(t, model.ResultWinner, got["imperium"].Result)

	assert.Equal(t, 70, got["guardian"].XPDelta)
	assert.Equal(t, 30, got["guardian"].PenaltyXP)
	assert.Equal(t, model.ResultLoser, got["guardian"].Result)

	assert.Equal(t, MinXP, got["sandbox"].XPDelta)
	assert.Zero(t, got["sandbox"].PenaltyXP)

	// Input map is untouched.
	assert.Equal(t, 300, base["imperium"].XPDelta)
}

func TestLevelFromXP_MonotonicAndIdempotent(t *testing.T) {
	t.Parallel()

	prev := LevelFromXP(0)
	assert.Equal(t, 1, prev)
	for xp := 0; xp <= 1_200_000; xp += 250 {
		level := LevelFromXP(xp)
		require.GreaterOrEqual(t, level, prev)
		require.Equal(t, level, LevelFromXP(xp))
		prev = level
	}

	cases := map[int]int{999: 1, 1000: 2, 4999: 2, 5000: 3, 24999: 4, 1_000_000: 10, 5_000_000: 10, -5: 1}
	for xp, want := range cases {
		assert.Equal(t, want, LevelFromXP(xp), "xp=%d", xp)
	}
	assert.Equal(t, 1000, NextLevelXP(0))
	assert.Equal(t, 5000, NextLevelXP(1000))
	assert.Equal(t, -1, NextLevelXP(2_000_000))
}

func TestCustodyLevelFromXP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, CustodyLevelFromXP(99))
	assert.Equal(t, 2, CustodyLevelFromXP(100))
	assert.Equal(t, 9, CustodyLevelFromXP(4499))
	assert.Equal(t, 10, CustodyLevelFromXP(4500))
}

func TestApplyToProfile(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := model.NewAgentProfile("conquest")
	p.XP = 900
	p.CustodyXP = 900

	tx := model.RewardTransaction{
		AgentID:    "conquest",
		ScenarioID: "scn-9",
		Domain:     model.DomainCreative,
		Complexity: model.ComplexityAdvanced,
		Score:      85,
		Passed:     true,
		Result:     model.ResultWinner,
		XPDelta:    304,
	}

	applied, ok := ApplyToProfile(&p, tx, now)
	require.True(t, ok)

	assert.Equal(t, 1204, p.XP)
	assert.Equal(t, 1204, p.CustodyXP)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 1, p.Wins)
	assert.InDelta(t, 1.5, p.DifficultyMultiplier, 1e-9)
	assert.Equal(t, 1, p.ConsecutiveSuccesses)
	require.Len(t, p.TestHistory, 1)
	assert.Equal(t, 304, p.TestHistory[0].XPAwarded)
	assert.Equal(t, now, p.LastCompetedAt)

	assert.True(t, applied.LeveledUp)
	assert.Equal(t, 1, applied.PreviousLevel)
	assert.Equal(t, 2, applied.NewLevel)

	_, ok = ApplyToProfile(&p, tx, now)
	assert.False(t, ok, "same scenario must not be applied twice")
	assert.Equal(t, 1204, p.XP)
}

func TestApplyToProfile_RepricesAtCurrentLevel(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator()
	p := model.NewAgentProfile("guardian")
	p.XP = 900

	base := calc.ComputeReward(p, model.EvaluationResult{OverallScore: 85, Passed: true}, scenarioAt(model.ComplexityAdvanced))
	tx := calc.ApplyOutcomeAdjustments(model.CompetitionOutcome{Winners: []string{"guardian"}}, map[string]model.RewardTransaction{"guardian": base})["guardian"]
	require.Equal(t, 270, tx.XPDelta)

	// Another competition lifted the agent to level 2 before this reward was stored.
	p.XP = 4500
	p.Level = LevelFromXP(p.XP)

	applied, ok := ApplyToProfile(&p, tx, time.Now())
	require.True(t, ok)

	assert.Equal(t, 187, applied.BaseXP)
	assert.Equal(t, 287, applied.XPDelta)
	assert.Equal(t, 2, applied.PreviousLevel)
	assert.Equal(t, 4787, p.XP)
	assert.Equal(t, 287, p.TestHistory[0].XPAwarded)
	assert.Contains(t, applied.Reason, "winner bonus +100")
}

func TestReprice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tx        model.RewardTransaction
		level     int
		wantDelta int
	}{
		{
			name:      "same level",
			tx:        model.RewardTransaction{Complexity: model.ComplexityBasic, RewardLevel: model.RewardStandard, Score: 80, BaseXP: 40, XPDelta: 40, PreviousLevel: 1},
			level:     1,
			wantDelta: 40,
		},
		{
			name:      "loser at higher level",
			tx:        model.RewardTransaction{Complexity: model.ComplexityIntermediate, RewardLevel: model.RewardHigh, Score: 50, Result: model.ResultLoser, BaseXP: 100, XPDelta: 70, PreviousLevel: 1},
			level:     3,
			wantDelta: 84, // 100 * 0.5 * 2.0 * 1.2 = 120, less 30%
		},
		{
			name:      "no reward level",
			tx:        model.RewardTransaction{Complexity: model.ComplexityBasic, Score: 80, BaseXP: 40, XPDelta: 40, PreviousLevel: 1},
			level:     4,
			wantDelta: 40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Reprice(tt.tx, tt.level)
			assert.Equal(t, tt.wantDelta, got.XPDelta)
		})
	}
}

func TestApplyToProfile_LoserDifficultyFloor(t *testing.T) {
	t.Parallel()

	p := model.NewAgentProfile("sandbox")
	for i := 0; i < 5; i++ {
		_, ok := ApplyToProfile(&p, model.RewardTransaction{
			ScenarioID: fmt.Sprintf("scn-%d", i),
			Result:     model.ResultLoser,
			XPDelta:    MinXP,
		}, time.Now())
		require.True(t, ok)
	}
	assert.InDelta(t, 0.5, p.DifficultyMultiplier, 1e-9)
	assert.Equal(t, 5, p.Losses)
	assert.Equal(t, 5, p.ConsecutiveFailures)
	assert.Equal(t, 50, p.XP)
}

func TestReset(t *testing.T) {
	t.Parallel()

	p := model.NewAgentProfile("imperium")
	p.XP = 12000
	p.Level = LevelFromXP(p.XP)
	p.Wins = 4
	p.AppendRecord(model.TestRecord{ScenarioID: "x"})

	Reset(&p, time.Now())

	assert.Equal(t, "imperium", p.ID)
	assert.Zero(t, p.XP)
	assert.Equal(t, 1, p.Level)
	assert.Empty(t, p.TestHistory)
	assert.InDelta(t, 1.0, p.DifficultyMultiplier, 1e-9)
}
