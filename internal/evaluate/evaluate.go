// Package evaluate scores agent responses against the five evaluation criteria.
package evaluate

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPassThreshold is the overall score needed to pass.
	DefaultPassThreshold = 70.0
	// DegradedScore is assigned to every criterion when scoring fails.
	DegradedScore = 50.0
)

// Scorer rates a response on the five criteria.
type Scorer interface {
	Score(ctx context.Context, scenario model.Scenario, response model.ResponseRecord) (model.Scores, error)
}

// Evaluator turns responses into evaluation results. It never fails.
type Evaluator struct {
	scorer        Scorer
	passThreshold float64
	concurrency   int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPassThreshold overrides the pass threshold.
func WithPassThreshold(v float64) Option {
	return func(e *Evaluator) {
		if v > 0 && v <= 100 {
			e.passThreshold = v
		}
	}
}

// WithConcurrency bounds EvaluateAll parallelism. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) { e.concurrency = n }
}

// New returns an Evaluator backed by scorer.
func New(scorer Scorer, opts ...Option) *Evaluator {
	e := &Evaluator{scorer: scorer, passThreshold: DefaultPassThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PassThreshold returns the configured threshold.
func (e *Evaluator) PassThreshold() float64 {
	return e.passThreshold
}

// Evaluate scores one response. A scorer error or out-of-range scores yield the
// degraded result: 50 on every criterion and passed=false.
func (e *Evaluator) Evaluate(ctx context.Context, scenario model.Scenario, response model.ResponseRecord) model.EvaluationResult {
	res := model.EvaluationResult{AgentID: response.AgentID, ScenarioID: scenario.ID}

	scores, err := e.score(ctx, scenario, response)
	if err == nil && !scores.Valid() {
		err = fmt.Errorf("scores out of range: %+v", scores)
	}
	if err != nil {
		log.Warn().Err(err).Str("agent_id", response.AgentID).Str("scenario_id", scenario.ID).Msg("scoring failed, using degraded score")
		res.Scores = model.UniformScores(DegradedScore)
		res.OverallScore = DegradedScore
		res.Passed = false
		res.Degraded = true
		res.Feedback = "Scoring unavailable; a fixed degraded score was assigned."
		return res
	}

	res.Scores = scores
	res.OverallScore = clamp(scores.Mean())
	res.Passed = res.OverallScore >= e.passThreshold
	res.Feedback = feedback(scores, res.Passed)
	return res
}

func (e *Evaluator) score(ctx context.Context, scenario model.Scenario, response model.ResponseRecord) (scores model.Scores, err error) {
	if e.scorer == nil {
		return model.Scores{}, fmt.Errorf("no scorer configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scorer panic: %v", p)
		}
	}()
	return e.scorer.Score(ctx, scenario, response)
}

// EvaluateAll evaluates every response in parallel and returns once all are done.
func (e *Evaluator) EvaluateAll(ctx context.Context, scenario model.Scenario, responses map[string]model.ResponseRecord) map[string]model.EvaluationResult {
	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = make(map[string]model.EvaluationResult, len(responses))
	)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for id, resp := range responses {
		g.Go(func() error {
			res := e.Evaluate(ctx, scenario, resp)
			mu.Lock()
			out[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func feedback(s model.Scores, passed bool) string {
	names := []string{"completeness", "creativity", "feasibility", "technical depth", "adherence to constraints"}
	vals := []float64{s.Completeness, s.Creativity, s.Feasibility, s.TechnicalDepth, s.ConstraintAdherence}
	best, worst := 0, 0
	for i := range vals {
		if vals[i] > vals[best] {
			best = i
		}
		if vals[i] < vals[worst] {
			worst = i
		}
	}
	verdict := "Below the pass threshold"
	if passed {
		verdict = "Passed"
	}
	return fmt.Sprintf("%s. Strongest: %s (%.0f). Weakest: %s (%.0f).", verdict, names[best], vals[best], names[worst], vals[worst])
}
