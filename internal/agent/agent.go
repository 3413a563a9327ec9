// Package agent provides responders, judges and content providers backed by external agents.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/metalagman/ainvoke"
	"github.com/metalagman/gauntlet/internal/model"
)

// ExecConfig describes a CLI agent.
type ExecConfig struct {
	Cmd    []string
	UseTTY bool
	// WorkDir is where per-call run directories are created. Empty means the OS temp dir.
	WorkDir string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ExecResponder answers scenarios by running a CLI agent through ainvoke. The agent
// reads input.json from its run directory and writes output.json.
type ExecResponder struct {
	cfg    ExecConfig
	runner ainvoke.Runner
}

type execInput struct {
	Scenario     model.Scenario `json:"scenario"`
	Instructions string         `json:"instructions"`
}

type execOutput struct {
	Response string `json:"response"`
}

// NewExecResponder constructs an ExecResponder.
func NewExecResponder(cfg ExecConfig) (*ExecResponder, error) {
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("exec agent requires cmd")
	}
	r, err := ainvoke.NewRunner(ainvoke.AgentConfig{
		Cmd:    cfg.Cmd,
		UseTTY: cfg.UseTTY,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec runner: %w", err)
	}
	return &ExecResponder{cfg: cfg, runner: r}, nil
}

// Respond implements dispatch.Responder.
func (r *ExecResponder) Respond(ctx context.Context, scenario model.Scenario) (string, error) {
	runDir, err := os.MkdirTemp(r.cfg.WorkDir, "gauntlet-"+safeName(scenario.ID)+"-*")
	if err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(runDir) }()

	inv := ainvoke.Invocation{
		RunDir:       runDir,
		SystemPrompt: responderInstructions,
		Input:        execInput{Scenario: scenario, Instructions: ScenarioPrompt(scenario)},
		InputSchema:  execInputSchema,
		OutputSchema: execOutputSchema,
	}
	out, errb, exitCode, err := r.runner.Run(ctx, inv, ainvoke.WithStdout(writerOrDiscard(r.cfg.Stdout)), ainvoke.WithStderr(writerOrDiscard(r.cfg.Stderr)))
	if err != nil {
		return "", fmt.Errorf("run exec agent: %w", err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("exec agent exited with code %d: %s", exitCode, strings.TrimSpace(string(errb)))
	}
	return parseExecOutput(out), nil
}

func parseExecOutput(out []byte) string {
	var parsed execOutput
	if err := json.Unmarshal(out, &parsed); err == nil && parsed.Response != "" {
		return parsed.Response
	}
	if extracted, ok := extractJSON(out); ok {
		if err := json.Unmarshal(extracted, &parsed); err == nil && parsed.Response != "" {
			return parsed.Response
		}
	}
	return strings.TrimSpace(string(out))
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
}

// extractJSON returns the outermost JSON object embedded in text, if any.
func extractJSON(text []byte) ([]byte, bool) {
	start := strings.IndexByte(string(text), '{')
	end := strings.LastIndexByte(string(text), '}')
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := text[start : end+1]
	if !json.Valid(candidate) {
		return nil, false
	}
	return candidate, true
}

const responderInstructions = `You are competing in an evaluation scenario against other agents.
Read the scenario from input.json and produce the best possible solution.
Address every objective, respect every constraint and show how each success criterion is met.
Write {"response": "<your full solution>"} to output.json.`

const execInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "scenario": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "domain": { "type": "string" },
        "complexity": { "type": "string" },
        "description": { "type": "string" },
        "objectives": { "type": "array", "items": { "type": "string" } },
        "constraints": { "type": "array", "items": { "type": "string" } },
        "success_criteria": { "type": "array", "items": { "type": "string" } },
        "required_skills": { "type": "array", "items": { "type": "string" } },
        "time_limit_seconds": { "type": "integer" }
      },
      "required": ["id", "domain", "complexity", "objectives", "success_criteria"]
    },
    "instructions": { "type": "string" }
  },
  "required": ["scenario", "instructions"]
}`

const execOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "response": { "type": "string", "minLength": 1 }
  },
  "required": ["response"]
}`
