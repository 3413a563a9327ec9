package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	reports []Report
	err     error
}

func (s *recordingSink) Record(_ context.Context, r Report) error {
	s.reports = append(s.reports, r)
	return s.err
}

func TestDerive(t *testing.T) {
	t.Parallel()

	outcome := model.CompetitionOutcome{
		Winners: []string{"imperium"},
		Losers:  []string{"guardian", "sandbox"},
		Rankings: []model.Ranking{
			{AgentID: "imperium", Rank: 1, Score: 92},
			{AgentID: "guardian", Rank: 2, Score: 75},
			{AgentID: "sandbox", Rank: 3, Score: 40},
		},
		MaxScore: 92,
	}
	evals := map[string]model.EvaluationResult{"guardian": {Feedback: "Passed."}}

	got := Derive(outcome, evals, map[string]float64{"imperium": 1.5, "guardian": 0.75})

	require.Len(t, got, 3)
	assert.Equal(t, model.InsightVictory, got[0].Kind)
	assert.InDelta(t, 75, got[0].OpponentScore, 1e-9)
	assert.InDelta(t, 1.5, got[0].DifficultyMultiplier, 1e-9)
	assert.Contains(t, got[0].Lessons, "Reinforce successful strategies")

	assert.Equal(t, model.InsightDefeat, got[1].Kind)
	assert.InDelta(t, 92, got[1].OpponentScore, 1e-9)
	assert.Equal(t, "Passed.", got[1].Feedback)
	assert.Len(t, got[2].Lessons, 4)
}

func TestDerive_NoWinners(t *testing.T) {
	t.Parallel()

	outcome := model.CompetitionOutcome{
		Winners:  []string{},
		Losers:   []string{"a", "b"},
		Rankings: []model.Ranking{{AgentID: "a", Rank: 1}, {AgentID: "b", Rank: 2}},
	}

	for _, in := range Derive(outcome, nil, nil) {
		assert.Equal(t, model.InsightDefeat, in.Kind)
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	t.Parallel()

	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("disk full")}

	err := Multi{bad, LogSink{}, ok}.Record(context.Background(), Report{ScenarioID: "scn-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.Len(t, ok.reports, 1)
	assert.Equal(t, "scn-1", ok.reports[0].ScenarioID)
}
