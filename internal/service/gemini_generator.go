package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

// maxErrorBody bounds how much of an error response is kept in the error
const maxErrorBody = 512

// GeminiGenerator calls the Gemini generateContent REST endpoint
type GeminiGenerator struct {
	config  *config.AIConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewGeminiGenerator creates a Gemini generator
func NewGeminiGenerator(cfg *config.AIConfig) *GeminiGenerator {
	return &GeminiGenerator{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout()},
		limiter: newPacer(cfg.MaxRPS),
	}
}

// Name identifies the provider and model
func (g *GeminiGenerator) Name() string {
	return "gemini:" + g.config.Model
}

// Generate returns the first candidate's text
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, _ *model.Learner) (string, error) {
	if err := pace(ctx, g.limiter); err != nil {
		return "", err
	}
	return g.callGemini(ctx, g.config.Model, prompt)
}

func (g *GeminiGenerator) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.7,
			"maxOutputTokens": 256,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", resilience.Permanent(err)
	}

	url := fmt.Sprintf("%s?key=%s", g.config.ModelEndpoint(modelName), g.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", resilience.Transient(fmt.Errorf("gemini request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resilience.Transient(fmt.Errorf("gemini response read failed: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", resilience.FromStatus(resp.StatusCode, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, snippet))
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", resilience.Transient(fmt.Errorf("gemini response malformed: %w", err))
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", resilience.Transient(errors.New("empty response from Gemini"))
}
