package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/revrost/go-openrouter"
	orschema "github.com/revrost/go-openrouter/jsonschema"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const openrouterDefaultModel = "openai/gpt-4o-mini"

// OpenRouterProvider implements the Provider interface over OpenRouter
type OpenRouterProvider struct {
	client *openrouter.Client
	config Config
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(config Config) (*OpenRouterProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	clientConfig := openrouter.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenRouterProvider{
		client: openrouter.NewClientWithConfig(*clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenRouterProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Complete(ctx, CompletionRequest{System: "Reply with OK.", User: "ping", MaxTokens: 5})
	if err != nil {
		slog.Warn("OpenRouter API check failed", "error", err)
		return false
	}
	return true
}

// Complete runs a chat completion, in JSON schema mode when a schema is given
func (p *OpenRouterProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.model(openrouterDefaultModel)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout(30*time.Second))
	defer cancel()

	request := openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: req.System}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: req.User}},
		},
		MaxTokens:   p.config.maxTokens(req),
		Temperature: p.config.temperature(req),
	}
	if req.Schema != nil {
		schema, err := toOpenRouterSchema(req.Schema)
		if err != nil {
			return nil, err
		}
		request.ResponseFormat = &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName(req),
				Schema: schema,
				Strict: false, // Some models don't support strict mode
			},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, request)
	if err != nil {
		return nil, fmt.Errorf("OpenRouter API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	out := &CompletionResponse{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content.Text),
		Model: resp.Model,
	}
	if resp.Usage != nil {
		out.TokensUsed = resp.Usage.TotalTokens
	}
	return out, nil
}

// toOpenRouterSchema converts between the two libraries' identical schema types
func toOpenRouterSchema(def *jsonschema.Definition) (*orschema.Definition, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out orschema.Definition
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("convert schema: %w", err)
	}
	return &out, nil
}
