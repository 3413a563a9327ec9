package evaluate

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/metalagman/gauntlet/internal/model"
)

// fallbackCeiling caps every criterion for synthetic responses.
const fallbackCeiling = 25.0

// HeuristicScorer scores responses from their overlap with the scenario text.
// It needs no external service and is deterministic.
type HeuristicScorer struct{}

// Score implements Scorer.
func (HeuristicScorer) Score(_ context.Context, scenario model.Scenario, response model.ResponseRecord) (model.Scores, error) {
	words := tokenize(response.Content)
	if len(words) == 0 {
		return model.Scores{}, nil
	}
	vocab := make(map[string]struct{}, len(words))
	for _, w := range words {
		vocab[w] = struct{}{}
	}

	goals := append(append([]string(nil), scenario.Objectives...), scenario.SuccessCriteria...)
	s := model.Scores{
		Completeness:        coverage(goals, vocab),
		Creativity:          math.Min(100, 100*float64(len(vocab))/float64(len(words))*math.Min(1, float64(len(words))/40)),
		Feasibility:         math.Min(100, 40+float64(len(words))/3),
		TechnicalDepth:      math.Min(100, 30+coverage(scenario.RequiredSkills, vocab)*0.7),
		ConstraintAdherence: coverage(scenario.Constraints, vocab),
	}
	if response.IsFallback() {
		s.Completeness = math.Min(s.Completeness, fallbackCeiling)
		s.Creativity = math.Min(s.Creativity, fallbackCeiling)
		s.Feasibility = math.Min(s.Feasibility, fallbackCeiling)
		s.TechnicalDepth = math.Min(s.TechnicalDepth, fallbackCeiling)
		s.ConstraintAdherence = math.Min(s.ConstraintAdherence, fallbackCeiling)
	}
	return s, nil
}

// coverage is the percentage of items with at least one significant word present in vocab.
// An empty item list counts as fully covered.
func coverage(items []string, vocab map[string]struct{}) float64 {
	var total, hit int
	for _, item := range items {
		keys := significant(tokenize(item))
		if len(keys) == 0 {
			continue
		}
		total++
		for _, k := range keys {
			if _, ok := vocab[k]; ok {
				hit++
				break
			}
		}
	}
	if total == 0 {
		return 100
	}
	return 100 * float64(hit) / float64(total)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func significant(words []string) []string {
	out := words[:0:0]
	for _, w := range words {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
