// Package rank orders evaluation results and decides winners and losers.
package rank

import (
	"sort"

	"github.com/metalagman/gauntlet/internal/model"
)

// Rank sorts results by overall score, highest first, keeping input order for equal
// scores. Winners are every agent on the top score when that score is above zero.
// Rank numbers are positional, so tied agents get adjacent distinct ranks.
func Rank(results []model.EvaluationResult) model.CompetitionOutcome {
	sorted := append([]model.EvaluationResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})

	out := model.CompetitionOutcome{
		Winners:          []string{},
		Losers:           []string{},
		Rankings:         make([]model.Ranking, 0, len(sorted)),
		ParticipantCount: len(sorted),
	}
	if len(sorted) > 0 {
		out.MaxScore = sorted[0].OverallScore
	}
	for i, r := range sorted {
		out.Rankings = append(out.Rankings, model.Ranking{
			AgentID: r.AgentID,
			Rank:    i + 1,
			Score:   r.OverallScore,
			Passed:  r.Passed,
		})
		if out.MaxScore > 0 && r.OverallScore == out.MaxScore {
			out.Winners = append(out.Winners, r.AgentID)
		} else {
			out.Losers = append(out.Losers, r.AgentID)
		}
	}

	switch {
	case len(out.Winners) == 0:
		out.CompetitionType = model.CompetitionNoWinners
	case len(out.Winners) == 1:
		out.CompetitionType = model.CompetitionClearWinner
	default:
		out.CompetitionType = model.CompetitionTie
	}
	return out
}

// Ordered returns results in participant order, skipping ids without a result and
// repeated ids. It gives Rank a stable insertion order when results come from a map.
func Ordered(participants []string, results map[string]model.EvaluationResult) []model.EvaluationResult {
	out := make([]model.EvaluationResult, 0, len(results))
	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if r, ok := results[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
