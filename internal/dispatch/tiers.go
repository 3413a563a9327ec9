package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/metalagman/gauntlet/internal/model"
)

// Tier is one named responder strategy.
type Tier struct {
	Name      string
	Responder Responder
}

// Tiers tries each strategy in order and keeps the first non-empty answer.
type Tiers []Tier

// Respond implements Responder.
func (t Tiers) Respond(ctx context.Context, scenario model.Scenario) (string, error) {
	text, _, err := t.RespondMethod(ctx, scenario)
	return text, err
}

// RespondMethod implements MethodResponder.
func (t Tiers) RespondMethod(ctx context.Context, scenario model.Scenario) (string, string, error) {
	var errs []error
	for _, tier := range t {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		text, err := tier.Responder.Respond(ctx, scenario)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("tier %s: %w", tier.Name, err))
			continue
		}
		return text, tier.Name, nil
	}
	if len(errs) == 0 {
		return "", "", ErrNoResponder
	}
	return "", "", errors.Join(errs...)
}

var fallbackApproaches = []string{
	"Break the problem into independent parts, address the highest-risk part first, and verify each step before moving on.",
	"Start from the success criteria, work backwards to the minimum set of actions, and keep a rollback path at every stage.",
	"Survey the constraints, pick the simplest design that satisfies them, and document the trade-offs that remain open.",
}

var fallbackFocus = map[model.Domain]string{
	model.DomainSystemLevel:           "service health, resource limits and failure recovery",
	model.DomainComplexProblemSolving: "decomposition, dependencies between sub-problems and validation",
	model.DomainPhysicalSimulated:     "simulation fidelity, sensor noise and safe operating envelopes",
	model.DomainSecurity:              "threat surface, detection coverage and containment",
	model.DomainCreative:              "novel framing, feasibility and a clear value proposition",
	model.DomainCollaboration:         "role assignment, communication channels and conflict resolution",
}

// FallbackResponse is the synthetic answer used when every responder tier failed.
// It depends only on the agent id and the scenario domain.
func FallbackResponse(agentID string, scenario model.Scenario) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(agentID + "/" + string(scenario.Domain)))
	approach := fallbackApproaches[h.Sum32()%uint32(len(fallbackApproaches))]

	focus, ok := fallbackFocus[scenario.Domain]
	if !ok {
		focus = "the stated objectives"
	}
	return fmt.Sprintf("Agent %s fallback plan for a %s challenge: %s Focus on %s.",
		agentID, strings.ReplaceAll(string(scenario.Domain), "_", " "), approach, focus)
}
