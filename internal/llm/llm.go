// Package llm is the boundary to the external language-model service.
// The rest of the app depends only on Provider, so tests use a stub.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tbruckner/tasktriage/internal/config"
)

// Provider generates text for a system+human prompt pair, optionally with
// an attached image or PDF for transcription.
type Provider interface {
	Generate(ctx context.Context, system, human string) (string, error)
	GenerateVision(ctx context.Context, prompt, mediaType string, data []byte) (string, error)
	IsConfigured() bool
}

const defaultBaseURL = "https://api.anthropic.com"

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Extra       map[string]any // passed through to the request body as-is
	client      *http.Client
}

// NewAnthropicProvider creates a provider from model configuration.
func NewAnthropicProvider(cfg *config.Config) *AnthropicProvider {
	return &AnthropicProvider{
		BaseURL:     defaultBaseURL,
		Model:       cfg.Model.Name,
		APIKey:      cfg.APIKey(),
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Extra:       cfg.Model.Params,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.APIKey != ""
}

// Generate sends a system+human prompt pair and returns the response text.
func (a *AnthropicProvider) Generate(ctx context.Context, system, human string) (string, error) {
	return a.send(ctx, system, []map[string]any{
		{"type": "text", "text": human},
	})
}

// GenerateVision attaches an image or PDF to the prompt. PDFs go as
// document blocks, everything else as base64 image blocks.
func (a *AnthropicProvider) GenerateVision(ctx context.Context, prompt, mediaType string, data []byte) (string, error) {
	source := map[string]any{
		"type":       "base64",
		"media_type": mediaType,
		"data":       base64.StdEncoding.EncodeToString(data),
	}
	blockType := "image"
	if mediaType == "application/pdf" {
		blockType = "document"
	}
	return a.send(ctx, "", []map[string]any{
		{"type": "text", "text": prompt},
		{"type": blockType, "source": source},
	})
}

func (a *AnthropicProvider) send(ctx context.Context, system string, content []map[string]any) (string, error) {
	if a.APIKey == "" {
		return "", fmt.Errorf("anthropic API key not configured")
	}

	body := map[string]any{
		"model":       a.Model,
		"max_tokens":  a.MaxTokens,
		"temperature": a.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	if system != "" {
		body["system"] = system
	}
	// Unrecognized config keys ride along untouched.
	for k, v := range a.Extra {
		if _, set := body[k]; !set {
			body[k] = v
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}
