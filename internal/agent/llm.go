package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/metalagman/gauntlet/internal/model"
)

// TextGenerator is a single-shot text model.
type TextGenerator interface {
	Generate(ctx context.Context, instructions, input string) (string, error)
}

// ScenarioPrompt renders a scenario as plain text for a model.
func ScenarioPrompt(s model.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario %s (%s, %s complexity, %d seconds)\n", s.ID, s.Domain, s.Complexity, s.TimeLimitSeconds)
	if s.Description != "" {
		b.WriteString(s.Description)
		b.WriteString("\n")
	}
	writeList(&b, "Objectives", s.Objectives)
	writeList(&b, "Constraints", s.Constraints)
	writeList(&b, "Success criteria", s.SuccessCriteria)
	writeList(&b, "Required skills", s.RequiredSkills)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// Responder answers scenarios with a text model.
type Responder struct {
	gen     TextGenerator
	agentID string
}

// NewResponder returns a Responder that speaks for agentID.
func NewResponder(gen TextGenerator, agentID string) *Responder {
	return &Responder{gen: gen, agentID: agentID}
}

// Respond implements dispatch.Responder.
func (r *Responder) Respond(ctx context.Context, scenario model.Scenario) (string, error) {
	instructions := fmt.Sprintf("You are agent %q competing against other agents. %s", r.agentID, responderPrompt)
	out, err := r.gen.Generate(ctx, instructions, ScenarioPrompt(scenario))
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	return strings.TrimSpace(out), nil
}

const responderPrompt = `Produce a complete solution to the scenario below.
Address every objective, respect every constraint and explain how each success criterion is met.`

// Judge scores responses with a text model.
type Judge struct {
	gen TextGenerator
}

// NewJudge returns a Judge.
func NewJudge(gen TextGenerator) *Judge {
	return &Judge{gen: gen}
}

// Score implements evaluate.Scorer. The model must answer with a JSON object holding
// the five criteria.
func (j *Judge) Score(ctx context.Context, scenario model.Scenario, response model.ResponseRecord) (model.Scores, error) {
	input := ScenarioPrompt(scenario) + "\nResponse from agent " + response.AgentID + ":\n" + response.Content
	out, err := j.gen.Generate(ctx, judgePrompt, input)
	if err != nil {
		return model.Scores{}, fmt.Errorf("generate scores: %w", err)
	}
	var scores model.Scores
	if err := decodeJSON(out, &scores); err != nil {
		return model.Scores{}, fmt.Errorf("parse scores: %w", err)
	}
	return scores, nil
}

const judgePrompt = `You are an impartial judge. Score the response to the scenario on each criterion from 0 to 100:
completeness, creativity, feasibility, technical_depth, adherence_to_constraints.
Answer with only a JSON object with exactly those keys and numeric values.`

// ContentWriter writes scenario content with a text model.
type ContentWriter struct {
	gen TextGenerator
}

// NewContentWriter returns a ContentWriter.
func NewContentWriter(gen TextGenerator) *ContentWriter {
	return &ContentWriter{gen: gen}
}

// BuildContent implements scenario.ContentProvider.
func (w *ContentWriter) BuildContent(ctx context.Context, domain model.Domain, complexity model.Complexity) (model.Content, error) {
	input := fmt.Sprintf("Domain: %s\nComplexity: %s", domain, complexity)
	out, err := w.gen.Generate(ctx, contentPrompt, input)
	if err != nil {
		return model.Content{}, fmt.Errorf("generate content: %w", err)
	}
	var content model.Content
	if err := decodeJSON(out, &content); err != nil {
		return model.Content{}, fmt.Errorf("parse content: %w", err)
	}
	return content, nil
}

const contentPrompt = `Design a challenge scenario for autonomous agents in the given domain and complexity.
Answer with only a JSON object with keys description (string), objectives, constraints,
success_criteria and required_skills (arrays of strings, three to five items each).`

func decodeJSON(out string, v any) error {
	raw := []byte(strings.TrimSpace(out))
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	extracted, ok := extractJSON(raw)
	if !ok {
		return fmt.Errorf("no JSON object in model output")
	}
	return json.Unmarshal(extracted, v)
}
