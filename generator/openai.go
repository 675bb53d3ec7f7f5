package generator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	yaverrors "github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/observability"
)

// OpenAIGenerator implements Generator against the OpenAI chat completion
// API. It is the one concrete adapter carried into this module: the engine
// only ever depends on the Generator interface, so a second backend would
// not exercise any additional orchestration behavior.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIGeneratorConfig configures an OpenAIGenerator.
type OpenAIGeneratorConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// NewOpenAIGenerator creates a new OpenAI-backed generator.
func NewOpenAIGenerator(cfg OpenAIGeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, yaverrors.NewConfigError("generator", "api_key", "OpenAI API key required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, promptTemplate string, variables map[string]any) (string, error) {
	prompt, err := render(promptTemplate, variables)
	if err != nil {
		return "", err
	}

	spanCtx, span := observability.StartLLMSpan(ctx, "openai", g.model)
	resp, err := g.client.CreateChatCompletion(spanCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		llmErr := yaverrors.NewLLMError("openai", g.model, "generate", statusCodeOf(err), err)
		observability.EndSpan(span, llmErr)
		return "", llmErr
	}
	g.recordUsage(spanCtx, span, resp)
	observability.EndSpan(span, nil)
	if len(resp.Choices) == 0 {
		return "", yaverrors.NewLLMError("openai", g.model, "generate", 0, fmt.Errorf("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured implements Generator. It asks OpenAI for a JSON object
// and validates that every key required by schema is present in the result.
func (g *OpenAIGenerator) GenerateStructured(ctx context.Context, promptTemplate string, variables map[string]any, schema map[string]any) (map[string]any, error) {
	prompt, err := render(promptTemplate, variables)
	if err != nil {
		return nil, err
	}

	spanCtx, span := observability.StartLLMSpan(ctx, "openai", g.model)
	resp, err := g.client.CreateChatCompletion(spanCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    g.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		llmErr := yaverrors.NewLLMError("openai", g.model, "generate_structured", statusCodeOf(err), err)
		observability.EndSpan(span, llmErr)
		return nil, llmErr
	}
	g.recordUsage(spanCtx, span, resp)
	observability.EndSpan(span, nil)
	if len(resp.Choices) == 0 {
		return nil, yaverrors.NewLLMError("openai", g.model, "generate_structured", 0, fmt.Errorf("no completion choices returned"))
	}

	raw := resp.Choices[0].Message.Content
	if !gjson.Valid(raw) {
		return nil, yaverrors.NewValidationError("structured_output", raw, "response is not valid JSON")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, yaverrors.NewValidationError("structured_output", raw, err.Error())
	}

	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := out[key]; !present {
				return nil, yaverrors.NewValidationError(key, nil, "required key missing from structured output")
			}
		}
	}

	return out, nil
}

// HealthCheck implements generator.HealthCheckable.
func (g *OpenAIGenerator) HealthCheck(ctx context.Context) error {
	_, err := g.client.ListModels(ctx)
	if err != nil {
		return yaverrors.NewLLMError("openai", g.model, "health_check", statusCodeOf(err), err)
	}
	return nil
}

// recordUsage folds the completion's token counts into the LLM span and
// the global cost tracker.
func (g *OpenAIGenerator) recordUsage(ctx context.Context, span trace.Span, resp openai.ChatCompletionResponse) {
	cost := observability.RecordLLMCost(ctx, "", "", "openai", g.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	observability.GetTracer().RecordLLMTokens(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cost)
}

func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}
