package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

const coachSystemPrompt = "You are a supportive learning coach. Reply with plain text only."

// OpenAIGenerator calls an OpenAI-compatible chat completions API
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIGenerator creates an OpenAI generator. OpenAIBaseURL may point at
// any compatible server.
func NewOpenAIGenerator(cfg *config.AIConfig) *OpenAIGenerator {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout()}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.OpenAIModel,
		limiter: newPacer(cfg.MaxRPS),
	}
}

// Name identifies the provider and model
func (g *OpenAIGenerator) Name() string {
	return "openai:" + g.model
}

// Generate returns the first choice's message content
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, _ *model.Learner) (string, error) {
	if err := pace(ctx, g.limiter); err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: coachSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", resilience.Transient(errors.New("openai returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return resilience.FromStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return resilience.FromStatus(reqErr.HTTPStatusCode, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return resilience.Transient(fmt.Errorf("openai request failed: %w", err))
}
