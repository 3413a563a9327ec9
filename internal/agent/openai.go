package agent

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	defaultOpenAIModel   = "gpt-5-mini"
	defaultOpenAIKeyEnv  = "OPENAI_API_KEY"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAIConfig configures the OpenAI generator. BaseURL may point at any
// Responses-compatible endpoint.
type OpenAIConfig struct {
	Model           string
	BaseURL         string
	APIKey          string
	APIKeyEnv       string
	Timeout         time.Duration
	MaxOutputTokens int64
	HTTPClient      *http.Client
}

// OpenAIGenerator implements TextGenerator with the OpenAI Responses API.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIGenerator creates an OpenAI API client.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		env := strings.TrimSpace(cfg.APIKeyEnv)
		if env == "" {
			env = defaultOpenAIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(env))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required (set api_key or api_key_env)")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		model:     modelName,
		maxTokens: cfg.MaxOutputTokens,
	}, nil
}

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, instructions, input string) (string, error) {
	params := responses.ResponseNewParams{
		Model:        g.model,
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
	}
	if g.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(g.maxTokens)
	}
	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return "", fmt.Errorf("openai response failed: %s", msg)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", fmt.Errorf("openai response did not contain text")
	}
	return text, nil
}
