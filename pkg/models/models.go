// Package models is the thin HTTP JSON client to external model providers
// (spec.md §1: "out of scope... the concrete AI model providers (HTTP JSON
// endpoints returning text)" — this package specifies only their contract
// and a minimal client against it). Grounded on the OpenAI-compatible
// chat/embeddings shape every corpus provider adapter exposes.
package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// Mode distinguishes the cheap (sensing) and expensive (shaping) model
// tiers the Strange-Loop Worker pairs (§4.11).
type Mode string

const (
	ModePrimary   Mode = "primary"   // expensive/shaping model
	ModeSecondary Mode = "secondary" // cheap/sensing model
)

// Client talks to one model provider's OpenAI-compatible HTTP API.
type Client struct {
	baseURL string
	model   string
	mode    Mode
	apiKey  string
	http    *http.Client
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Model   string
	Mode    Mode
	APIKey  string
	Timeout time.Duration
}

// New constructs a Client. BaseURL typically comes from OLLAMA_HOST or an
// equivalent per-provider env var (§6.5).
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		mode:    cfg.Mode,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ChatMessage is one OpenAI-compatible chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends messages to the provider and returns the first choice's
// text content.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", herrors.Wrap(herrors.KindInternal, "marshal chat request", err)
	}

	var out chatResponse
	if err := c.post(ctx, "/v1/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", herrors.New(herrors.KindParseFailed, "provider returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one embedding vector per input string.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: inputs})
	if err != nil {
		return nil, herrors.Wrap(herrors.KindInternal, "marshal embeddings request", err)
	}

	var out embeddingsResponse
	if err := c.post(ctx, "/v1/embeddings", body, &out); err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return herrors.Wrap(herrors.KindUnreachable, "reach model provider", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return herrors.New(herrors.KindAuthFailed, fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return herrors.New(herrors.KindRateLimited, "provider rate limit exceeded")
	case resp.StatusCode >= 400:
		return herrors.New(herrors.KindUnreachable, fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return herrors.Wrap(herrors.KindParseFailed, "decode provider response", err)
	}
	return nil
}

// Ping implements probe.ModelPinger: a minimal reachability + latency
// check used by the Resource Probe's "external AI" dimension (§4.3).
func (c *Client) Ping(ctx context.Context) (mode string, latencyMS int64, err error) {
	start := time.Now()
	_, err = c.Complete(ctx, []ChatMessage{{Role: "user", Content: "ping"}})
	latencyMS = time.Since(start).Milliseconds()
	if err != nil {
		return "", latencyMS, err
	}
	return string(c.mode), latencyMS, nil
}

// ModelAvailable implements supervisor.ModelChecker: a provider is treated
// as having the requested model available if it answers at all (probing a
// per-model availability endpoint is provider-specific and out of scope,
// §1).
func (c *Client) ModelAvailable(ctx context.Context, modelID string) (bool, error) {
	_, _, err := c.Ping(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}
