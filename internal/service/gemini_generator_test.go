package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

func geminiConfig(baseURL string) *config.AIConfig {
	cfg := config.DefaultAIConfig()
	cfg.BaseURL = baseURL
	cfg.Model = "gemini-test"
	cfg.APIKey = "test-key"
	return cfg
}

func TestGeminiGenerator_Success(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			gotPrompt = body.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Keep at it!"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiGenerator(geminiConfig(srv.URL))
	text, err := g.Generate(context.Background(), "write a nudge", testLearner())

	require.NoError(t, err)
	assert.Equal(t, "Keep at it!", text)
	assert.Equal(t, "/gemini-test:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "write a nudge", gotPrompt)
	assert.Equal(t, "gemini:gemini-test", g.Name())
}

func TestGeminiGenerator_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, true},
		{"server error", http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`, true},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad"}}`, false},
		{"unauthorized", http.StatusForbidden, `{"error":{"message":"key"}}`, false},
		{"empty candidates", http.StatusOK, `{"candidates":[]}`, true},
		{"garbage body", http.StatusOK, `not json`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiGenerator(geminiConfig(srv.URL)).Generate(context.Background(), "p", nil)

			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
			var ext *resilience.ExternalError
			if tt.status >= 400 {
				require.True(t, errors.As(err, &ext))
				assert.Equal(t, tt.status, ext.StatusCode)
			}
		})
	}
}

func TestGeminiGenerator_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGeminiGenerator(geminiConfig(url)).Generate(context.Background(), "p", nil)

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
