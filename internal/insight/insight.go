// Package insight derives post-competition lessons and delivers them to sinks.
package insight

import (
	"context"
	"errors"
	"time"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
)

var (
	victoryLessons = []string{
		"Reinforce successful strategies",
		"Maintain high performance standards",
		"Continue innovative approaches",
	}
	defeatLessons = []string{
		"Analyze what went wrong",
		"Study winner's successful strategies",
		"Improve weak areas",
		"Adapt to new challenges",
	}
)

// Report is everything a sink receives about one competition.
type Report struct {
	ScenarioID string                   `json:"scenario_id"`
	Domain     model.Domain             `json:"domain"`
	Complexity model.Complexity         `json:"complexity"`
	Outcome    model.CompetitionOutcome `json:"outcome"`
	Insights   []model.Insight          `json:"insights"`
	RecordedAt time.Time                `json:"recorded_at"`
}

// Sink receives competition reports. Failures are logged by the caller and never
// affect the competition result.
type Sink interface {
	Record(ctx context.Context, report Report) error
}

// Derive builds one insight per ranked agent. Winners are compared with the best
// non-winning score and losers with the top score.
func Derive(outcome model.CompetitionOutcome, evaluations map[string]model.EvaluationResult, multipliers map[string]float64) []model.Insight {
	var runnerUp float64
	for _, r := range outcome.Rankings {
		if !outcome.IsWinner(r.AgentID) {
			runnerUp = r.Score
			break
		}
	}

	out := make([]model.Insight, 0, len(outcome.Rankings))
	for _, r := range outcome.Rankings {
		in := model.Insight{
			AgentID:              r.AgentID,
			Score:                r.Score,
			Feedback:             evaluations[r.AgentID].Feedback,
			DifficultyMultiplier: multipliers[r.AgentID],
		}
		if outcome.IsWinner(r.AgentID) {
			in.Kind = model.InsightVictory
			in.OpponentScore = runnerUp
			in.Lessons = append([]string(nil), victoryLessons...)
		} else {
			in.Kind = model.InsightDefeat
			in.OpponentScore = outcome.MaxScore
			in.Lessons = append([]string(nil), defeatLessons...)
		}
		out = append(out, in)
	}
	return out
}

// LogSink writes reports to the global logger.
type LogSink struct{}

// Record implements Sink.
func (LogSink) Record(_ context.Context, r Report) error {
	for _, in := range r.Insights {
		log.Info().
			Str("scenario_id", r.ScenarioID).
			Str("agent_id", in.AgentID).
			Str("kind", in.Kind).
			Float64("score", in.Score).
			Float64("opponent_score", in.OpponentScore).
			Float64("difficulty_multiplier", in.DifficultyMultiplier).
			Msg("competition insight")
	}
	return nil
}

// Multi fans a report out to every sink and joins their errors.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, r Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
