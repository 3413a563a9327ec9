// Package arena runs the competition loop: generate, dispatch, score, rank, reward.
package arena

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/metalagman/gauntlet/internal/capability"
	"github.com/metalagman/gauntlet/internal/difficulty"
	"github.com/metalagman/gauntlet/internal/dispatch"
	"github.com/metalagman/gauntlet/internal/evaluate"
	"github.com/metalagman/gauntlet/internal/insight"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/profile"
	"github.com/metalagman/gauntlet/internal/progress"
	"github.com/metalagman/gauntlet/internal/rank"
	"github.com/metalagman/gauntlet/internal/reward"
	"github.com/metalagman/gauntlet/internal/scenario"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPersistence is returned when rewards could not be stored after retrying.
	// The returned transactions are marked pending and must be re-applied.
	ErrPersistence = errors.New("reward persistence failed")
	// ErrNoParticipants is returned for scenarios without participants.
	ErrNoParticipants = errors.New("no participants")
	// ErrProfileNotFound is returned when a progress report names an unknown agent.
	ErrProfileNotFound = errors.New("agent profile not found")
	// ErrUnknownParticipant is returned for participant ids outside the roster.
	ErrUnknownParticipant = errors.New("unknown participant")
)

const (
	defaultPersistRetryDelay = 200 * time.Millisecond
	defaultInsightTimeout    = 30 * time.Second
	persistTries             = 2
)

// CompetitionLog stores finished competitions. Stores that implement it get a log entry
// per competition.
type CompetitionLog interface {
	SaveCompetition(ctx context.Context, rec model.CompetitionRecord) error
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Responders        map[string]dispatch.Responder
	Content           scenario.ContentProvider
	Scorer            evaluate.Scorer
	Insights          insight.Sink
	Seed              int64
	PassThreshold     float64
	EvalConcurrency   int
	DispatchTimeout   time.Duration
	PersistRetryDelay time.Duration
	InsightTimeout    time.Duration
	RewardLevel       model.RewardLevel
	// PendingDir receives rewards that could not be persisted. Empty disables spooling.
	PendingDir string
}

// Hints override the adaptive choices of GenerateScenario.
type Hints struct {
	Domain           model.Domain
	Complexity       model.Complexity
	TargetWeaknesses []string
	RewardLevel      model.RewardLevel
}

// Engine is the competition API.
type Engine struct {
	store      profile.Store
	responders map[string]dispatch.Responder
	content    scenario.ContentProvider
	insights   insight.Sink

	analyzer   capability.Analyzer
	controller *difficulty.Controller
	builder    *scenario.Builder
	dispatcher *dispatch.Dispatcher
	evaluator  *evaluate.Evaluator
	calculator *reward.Calculator
	reporter   *progress.Reporter

	rewardLevel    model.RewardLevel
	retryDelay     time.Duration
	insightTimeout time.Duration
	pendingDir     string
	now            func() time.Time

	sinks sync.WaitGroup
}

// New constructs an Engine over store.
func New(store profile.Store, opts Options) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	evalOpts := []evaluate.Option{evaluate.WithConcurrency(opts.EvalConcurrency)}
	if opts.PassThreshold > 0 {
		evalOpts = append(evalOpts, evaluate.WithPassThreshold(opts.PassThreshold))
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = evaluate.HeuristicScorer{}
	}
	e := &Engine{
		store:          store,
		responders:     opts.Responders,
		content:        opts.Content,
		insights:       opts.Insights,
		analyzer:       capability.NewAnalyzer(),
		controller:     difficulty.NewController(seed),
		builder:        scenario.NewBuilder(),
		dispatcher:     dispatch.New(opts.DispatchTimeout),
		evaluator:      evaluate.New(scorer, evalOpts...),
		calculator:     reward.NewCalculator(),
		reporter:       progress.NewReporter(),
		rewardLevel:    opts.RewardLevel,
		retryDelay:     opts.PersistRetryDelay,
		insightTimeout: opts.InsightTimeout,
		pendingDir:     opts.PendingDir,
		now:            func() time.Time { return time.Now().UTC() },
	}
	if e.rewardLevel == "" {
		e.rewardLevel = model.RewardStandard
	}
	if e.retryDelay <= 0 {
		e.retryDelay = defaultPersistRetryDelay
	}
	if e.insightTimeout <= 0 {
		e.insightTimeout = defaultInsightTimeout
	}
	return e
}

// Roster returns the ids of the agents with a configured responder.
func (e *Engine) Roster() []string {
	ids := make([]string, 0, len(e.responders))
	for id := range e.responders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GenerateScenario picks a domain and complexity for participants and builds a scenario.
// Content failures fall back to built-in templates and are never returned.
func (e *Engine) GenerateScenario(ctx context.Context, participants []string, hints Hints) (model.Scenario, error) {
	participants, err := e.checkParticipants(participants)
	if err != nil {
		return model.Scenario{}, err
	}
	profiles, err := e.loadProfiles(ctx, participants)
	if err != nil {
		return model.Scenario{}, err
	}
	for i := range profiles {
		a := e.analyzer.Analyze(profiles[i])
		profiles[i].Strengths = a.Strengths
		profiles[i].Weaknesses = a.Weaknesses
	}

	domain, complexity := e.controller.SelectDifficulty(profiles, hints.TargetWeaknesses)
	if hints.Domain != "" {
		domain = hints.Domain
	}
	if hints.Complexity.Valid() {
		complexity = hints.Complexity
	}

	targets := hints.TargetWeaknesses
	if len(targets) == 0 {
		targets = difficulty.AggregateWeaknesses(profiles)
	}
	level := hints.RewardLevel
	if level == "" {
		level = e.rewardLevel
	}

	s := e.builder.Build(ctx, domain, complexity, participants, e.content, scenario.Options{
		TargetWeaknesses: targets,
		RewardLevel:      level,
	})
	log.Info().
		Str("scenario_id", s.ID).
		Str("domain", string(s.Domain)).
		Str("complexity", s.Complexity.String()).
		Str("content_source", s.ContentSource).
		Strs("participants", s.Participants).
		Msg("scenario generated")
	return s, nil
}

// RunCompetition runs a scenario to completion and returns the outcome and the applied
// rewards. See Compete.
func (e *Engine) RunCompetition(ctx context.Context, s model.Scenario) (model.CompetitionOutcome, map[string]model.RewardTransaction, error) {
	rec, err := e.Compete(ctx, s)
	return rec.Outcome, rec.Rewards, err
}

// Compete dispatches s to every participant, scores and ranks the responses and applies
// the rewards. If ctx is cancelled before rewards are applied nothing is stored and the
// context error is returned. Once applying starts it runs to completion. When a profile
// write still fails after a retry the record is returned with the affected transactions
// marked pending together with ErrPersistence.
func (e *Engine) Compete(ctx context.Context, s model.Scenario) (model.CompetitionRecord, error) {
	participants, err := e.checkParticipants(s.Participants)
	if err != nil {
		return model.CompetitionRecord{}, err
	}
	s.Participants = participants
	profiles, err := e.loadProfiles(ctx, s.Participants)
	if err != nil {
		return model.CompetitionRecord{}, err
	}

	responses := e.dispatcher.Dispatch(ctx, s, e.responders)
	if err := ctx.Err(); err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("competition %s cancelled: %w", s.ID, err)
	}
	evaluations := e.evaluator.EvaluateAll(ctx, s, responses)
	outcome := rank.Rank(rank.Ordered(s.Participants, evaluations))

	base := make(map[string]model.RewardTransaction, len(profiles))
	for _, p := range profiles {
		base[p.ID] = e.calculator.ComputeReward(p, evaluations[p.ID], s)
	}
	rewards := e.calculator.ApplyOutcomeAdjustments(outcome, base)

	if err := ctx.Err(); err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("competition %s cancelled: %w", s.ID, err)
	}

	applyCtx := context.WithoutCancel(ctx)
	applied, updated, applyErr := e.applyAll(applyCtx, s.Participants, rewards)

	rec := model.CompetitionRecord{
		Scenario:    s,
		Responses:   responses,
		Evaluations: evaluations,
		Outcome:     outcome,
		Rewards:     applied,
		CompletedAt: e.now(),
	}
	multipliers := make(map[string]float64, len(updated))
	for id, p := range updated {
		multipliers[id] = p.DifficultyMultiplier
	}
	rec.Insights = insight.Derive(outcome, evaluations, multipliers)

	if applyErr != nil {
		if err := e.spoolPending(rec); err != nil {
			log.Error().Err(err).Str("scenario_id", s.ID).Msg("failed to spool pending rewards")
		}
	}
	if cl, ok := e.store.(CompetitionLog); ok {
		if err := cl.SaveCompetition(applyCtx, rec); err != nil {
			log.Warn().Err(err).Str("scenario_id", s.ID).Msg("failed to save competition log")
		}
	}
	e.emitInsights(applyCtx, rec)

	log.Info().
		Str("scenario_id", s.ID).
		Str("competition_type", string(outcome.CompetitionType)).
		Strs("winners", outcome.Winners).
		Float64("max_score", outcome.MaxScore).
		Msg("competition finished")

	if applyErr != nil {
		return rec, applyErr
	}
	return rec, nil
}

// ApplyRewards stores transactions that were returned pending. Transactions whose scenario
// is already in the agent's history are skipped, so retrying is safe.
func (e *Engine) ApplyRewards(ctx context.Context, txs []model.RewardTransaction) (map[string]model.RewardTransaction, error) {
	rewards := make(map[string]model.RewardTransaction, len(txs))
	order := make([]string, 0, len(txs))
	for _, tx := range txs {
		rewards[tx.AgentID] = tx
		order = append(order, tx.AgentID)
	}
	applied, _, err := e.applyAll(context.WithoutCancel(ctx), order, rewards)
	return applied, err
}

func (e *Engine) applyAll(ctx context.Context, agents []string, rewards map[string]model.RewardTransaction) (map[string]model.RewardTransaction, map[string]model.AgentProfile, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		errs    []error
		applied = make(map[string]model.RewardTransaction, len(rewards))
		updated = make(map[string]model.AgentProfile, len(rewards))
	)
	for _, id := range agents {
		tx, ok := rewards[id]
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			final, p, err := e.apply(ctx, tx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				final.Pending = true
				errs = append(errs, fmt.Errorf("agent %s: %w", id, err))
			} else {
				updated[id] = p
			}
			applied[id] = final
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		return applied, updated, fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
	}
	return applied, updated, nil
}

func (e *Engine) apply(ctx context.Context, tx model.RewardTransaction) (model.RewardTransaction, model.AgentProfile, error) {
	final := tx
	op := func() (model.AgentProfile, error) {
		return e.store.Upsert(ctx, tx.AgentID, func(p *model.AgentProfile) error {
			out, ok := reward.ApplyToProfile(p, tx, e.now())
			if !ok {
				log.Debug().Str("agent_id", tx.AgentID).Str("scenario_id", tx.ScenarioID).Msg("reward already applied")
			}
			final = out
			a := e.analyzer.Analyze(*p)
			p.Strengths = a.Strengths
			p.Weaknesses = a.Weaknesses
			return nil
		})
	}
	p, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(e.retryDelay)),
		backoff.WithMaxTries(persistTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("agent_id", tx.AgentID).Dur("retry_in", next).Msg("profile update failed, retrying")
		}),
	)
	if err != nil {
		return tx, model.AgentProfile{}, err
	}
	if final.LeveledUp {
		log.Info().Str("agent_id", tx.AgentID).Int("level", final.NewLevel).Msg("agent leveled up")
	}
	return final, p, nil
}

func (e *Engine) emitInsights(ctx context.Context, rec model.CompetitionRecord) {
	if e.insights == nil || len(rec.Insights) == 0 {
		return
	}
	report := insight.Report{
		ScenarioID: rec.Scenario.ID,
		Domain:     rec.Scenario.Domain,
		Complexity: rec.Scenario.Complexity,
		Outcome:    rec.Outcome,
		Insights:   rec.Insights,
		RecordedAt: rec.CompletedAt,
	}
	e.sinks.Add(1)
	go func() {
		defer e.sinks.Done()
		sinkCtx, cancel := context.WithTimeout(ctx, e.insightTimeout)
		defer cancel()
		if err := e.insights.Record(sinkCtx, report); err != nil {
			log.Warn().Err(err).Str("scenario_id", report.ScenarioID).Msg("insight sink failed")
		}
	}()
}

// GetProgressReport summarizes agentID, or every stored agent when agentID is empty.
func (e *Engine) GetProgressReport(ctx context.Context, agentID string) (progress.Summary, error) {
	if agentID == "" {
		profiles, err := e.store.List(ctx)
		if err != nil {
			return progress.Summary{}, fmt.Errorf("list profiles: %w", err)
		}
		return e.reporter.Report(profiles), nil
	}
	p, err := e.store.Get(ctx, agentID)
	if errors.Is(err, profile.ErrNotFound) {
		return progress.Summary{}, fmt.Errorf("%w: %s", ErrProfileNotFound, agentID)
	}
	if err != nil {
		return progress.Summary{}, fmt.Errorf("get profile: %w", err)
	}
	return e.reporter.Report([]model.AgentProfile{p}), nil
}

// ResetProfile clears all progression of agentID.
func (e *Engine) ResetProfile(ctx context.Context, agentID string) (model.AgentProfile, error) {
	p, err := e.store.Upsert(ctx, agentID, func(p *model.AgentProfile) error {
		reward.Reset(p, e.now())
		return nil
	})
	if err != nil {
		return model.AgentProfile{}, fmt.Errorf("reset profile: %w", err)
	}
	log.Info().Str("agent_id", agentID).Msg("profile reset")
	return p, nil
}

// Close waits for in-flight insight deliveries.
func (e *Engine) Close() error {
	e.sinks.Wait()
	return nil
}

// checkParticipants drops repeated ids, keeping first-seen order, and rejects ids
// without a responder. An engine without responders accepts any id.
func (e *Engine) checkParticipants(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if len(e.responders) > 0 {
			if _, ok := e.responders[id]; !ok {
				unknown = append(unknown, id)
				continue
			}
		}
		out = append(out, id)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return nil, ErrNoParticipants
	}
	return out, nil
}

func (e *Engine) loadProfiles(ctx context.Context, ids []string) ([]model.AgentProfile, error) {
	out := make([]model.AgentProfile, 0, len(ids))
	for _, id := range ids {
		p, err := e.store.Get(ctx, id)
		if errors.Is(err, profile.ErrNotFound) {
			p = model.NewAgentProfile(id)
		} else if err != nil {
			return nil, fmt.Errorf("load profile %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}
