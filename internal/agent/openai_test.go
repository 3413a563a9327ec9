package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// responsesServer answers every Responses API call with reply and records the last
// request body.
func responsesServer(t *testing.T, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
			return
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func outputText(text string) string {
	msg, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": "", "message": ""},
		"output": []any{map[string]any{
			"type": "message",
			"role": "assistant",
			"content": []any{map[string]any{
				"type": "output_text", "text": text, "annotations": []any{},
			}},
		}},
	})
	return string(msg)
}

func newTestOpenAI(t *testing.T, srv *httptest.Server, maxTokens int64) *OpenAIGenerator {
	t.Helper()
	gen, err := NewOpenAIGenerator(OpenAIConfig{
		Model:           "gpt-5-mini",
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		MaxOutputTokens: maxTokens,
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return gen
}

func TestOpenAIGenerator_JudgeScoresResponse(t *testing.T) {
	t.Parallel()

	srv, body := responsesServer(t, outputText("```json\n{\"completeness\":80,\"creativity\":60,\"feasibility\":70,\"technical_depth\":90,\"adherence_to_constraints\":50}\n```"))
	judge := NewJudge(newTestOpenAI(t, srv, 256))

	scores, err := judge.Score(context.Background(), testScenario, model.ResponseRecord{AgentID: "guardian", Content: "block the port"})
	require.NoError(t, err)

	assert.Equal(t, model.Scores{Completeness: 80, Creativity: 60, Feasibility: 70, TechnicalDepth: 90, ConstraintAdherence: 50}, scores)
	assert.Equal(t, "gpt-5-mini", (*body)["model"])
	assert.Equal(t, judgePrompt, (*body)["instructions"])
	assert.Contains(t, (*body)["input"], "block the port")
	assert.Equal(t, float64(256), (*body)["max_output_tokens"])
}

func TestOpenAIGenerator_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		wantErr string
	}{
		{
			name:    "no output",
			reply:   `{"error":{"code":"","message":""},"output":[]}`,
			wantErr: "did not contain text",
		},
		{
			name:    "response error",
			reply:   `{"error":{"code":"server_error","message":"overloaded"},"output":[]}`,
			wantErr: "overloaded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, body := responsesServer(t, tt.reply)
			_, err := newTestOpenAI(t, srv, 0).Generate(context.Background(), "judge", "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NotContains(t, *body, "max_output_tokens")
		})
	}
}

func TestNewOpenAIGenerator_MissingKey(t *testing.T) {
	t.Setenv("GAUNTLET_TEST_OPENAI_KEY", "")

	_, err := NewOpenAIGenerator(OpenAIConfig{APIKeyEnv: "GAUNTLET_TEST_OPENAI_KEY"})
	require.Error(t, err)
}
