// Package dispatch fans a scenario out to every participant's responder.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
)

// MethodPrimary tags responses from a responder that does not report its tier.
const MethodPrimary = "primary"

// DefaultTimeout applies when neither the dispatcher nor the scenario sets a limit.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrEmptyResponse is recorded when a responder returns only whitespace.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoResponder is recorded for participants without a responder.
	ErrNoResponder = errors.New("no responder configured")
)

// Responder produces an agent's answer to a scenario.
type Responder interface {
	Respond(ctx context.Context, scenario model.Scenario) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, scenario model.Scenario) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, scenario model.Scenario) (string, error) {
	return f(ctx, scenario)
}

// MethodResponder is a Responder that reports which strategy produced its text.
type MethodResponder interface {
	Responder
	RespondMethod(ctx context.Context, scenario model.Scenario) (text, method string, err error)
}

// Dispatcher runs scenarios against responders.
type Dispatcher struct {
	// Timeout bounds each agent call. Zero means the scenario time limit.
	Timeout time.Duration
}

// New returns a Dispatcher with the given per-agent timeout.
func New(timeout time.Duration) *Dispatcher {
	return &Dispatcher{Timeout: timeout}
}

// Dispatch calls every participant's responder concurrently and waits for all of them.
// The result holds one record per participant; failed calls get a fallback response.
func (d *Dispatcher) Dispatch(ctx context.Context, scenario model.Scenario, responders map[string]Responder) map[string]model.ResponseRecord {
	participants := scenario.Participants
	if len(participants) == 0 {
		for id := range responders {
			participants = append(participants, id)
		}
	}

	timeout := d.timeout(scenario)
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]model.ResponseRecord, len(participants))
	)
	for _, agentID := range participants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := d.call(ctx, scenario, agentID, responders[agentID], timeout)
			mu.Lock()
			out[agentID] = rec
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (d *Dispatcher) timeout(scenario model.Scenario) time.Duration {
	if d != nil && d.Timeout > 0 {
		return d.Timeout
	}
	if limit := scenario.TimeLimit(); limit > 0 {
		return limit
	}
	return DefaultTimeout
}

type callResult struct {
	text   string
	method string
	err    error
}

func (d *Dispatcher) call(ctx context.Context, scenario model.Scenario, agentID string, r Responder, timeout time.Duration) model.ResponseRecord {
	start := time.Now()
	rec := model.ResponseRecord{AgentID: agentID, ScenarioID: scenario.ID}

	var res callResult
	if r == nil {
		res.err = ErrNoResponder
	} else {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		res = invoke(callCtx, r, scenario)
		cancel()
	}
	if res.err == nil && strings.TrimSpace(res.text) == "" {
		res.err = ErrEmptyResponse
	}
	rec.Latency = time.Since(start)

	if res.err != nil {
		log.Warn().Err(res.err).Str("agent_id", agentID).Str("scenario_id", scenario.ID).Msg("agent response failed, using fallback")
		rec.Content = FallbackResponse(agentID, scenario)
		rec.ResponseMethod = model.ResponseMethodFallback
		rec.Error = res.err.Error()
		return rec
	}
	rec.Content = res.text
	rec.ResponseMethod = res.method
	return rec
}

// invoke runs the responder in its own goroutine so a responder that ignores its
// context cannot hold the caller past the deadline.
func invoke(ctx context.Context, r Responder, scenario model.Scenario) callResult {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- callResult{err: fmt.Errorf("responder panic: %v", p)}
			}
		}()
		if mr, ok := r.(MethodResponder); ok {
			text, method, err := mr.RespondMethod(ctx, scenario)
			done <- callResult{text: text, method: method, err: err}
			return
		}
		text, err := r.Respond(ctx, scenario)
		done <- callResult{text: text, method: MethodPrimary, err: err}
	}()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return callResult{err: fmt.Errorf("respond: %w", ctx.Err())}
	}
}
