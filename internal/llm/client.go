package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/arden/townsim/internal/townsim"
)

// GeminiClient implements townsim.ReasoningClient against Google's
// Gemini API, grounded on the teacher's GeminiClient (internal/llm/client.go)
// but generalized from "pick the next game action" (GetAction, a closed
// JSON action schema) to "write the next conversation line" (free text),
// since the kernel's own decision.go now picks actions algorithmically per
// spec.md §4.5 and the reasoning service's only remaining job is dialogue.
type GeminiClient struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	baseURL    string
}

func NewGeminiClient(apiKey, model string, timeout time.Duration, maxTokens int) *GeminiClient {
	if maxTokens <= 0 {
		maxTokens = 128
	}
	return &GeminiClient{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// GenerateConversationLine implements townsim.ReasoningClient.
func (c *GeminiClient) GenerateConversationLine(ctx context.Context, req townsim.ConversationLineRequest) (string, error) {
	if c.apiKey == "" {
		return fallbackLine(req), fmt.Errorf("no API key configured")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: BuildPrompt(req)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.9,
			MaxOutputTokens: c.maxTokens,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fallbackLine(req), fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fallbackLine(req), fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("reasoning service request failed", "speaker", req.SpeakerName, "model", c.model, "error", err)
		return fallbackLine(req), fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("reasoning service response read failed", "speaker", req.SpeakerName, "error", err)
		return fallbackLine(req), fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("reasoning service rate limited", "speaker", req.SpeakerName, "model", c.model, "status", resp.StatusCode)
		return fallbackLine(req), fmt.Errorf("rate limited (status 429): %s", string(body))
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("reasoning service API error", "speaker", req.SpeakerName, "model", c.model, "status", resp.StatusCode, "body", string(body))
		return fallbackLine(req), fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Error("reasoning service response parse failed", "speaker", req.SpeakerName, "error", err)
		return fallbackLine(req), fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		slog.Error("reasoning service returned error", "speaker", req.SpeakerName, "code", parsed.Error.Code, "message", parsed.Error.Message)
		return fallbackLine(req), fmt.Errorf("API error: %s", parsed.Error.Message)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return fallbackLine(req), fmt.Errorf("empty response from reasoning service")
	}

	return ExtractLine(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// fallbackLine keeps the conversation moving when the reasoning service is
// unavailable, grounded on the teacher's WaitAction fallback (GetAction
// returning a safe no-op action on every error path).
func fallbackLine(req townsim.ConversationLineRequest) string {
	return "..."
}

// MockClient is a reasoning-service stand-in for dev mode, grounded on the
// teacher's MockClient (GetAction returning a pseudo-random valid action).
type MockClient struct {
	lines []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		lines: []string{
			"Hey, how's it going?",
			"I haven't seen you around here before.",
			"Watch yourself in this part of town.",
			"Got any spare credits?",
			"Nice weather we're having, don't you think?",
			"I should get going, things to do.",
		},
	}
}

func (c *MockClient) GenerateConversationLine(ctx context.Context, req townsim.ConversationLineRequest) (string, error) {
	idx := int(time.Now().UnixNano()+rand.Int63n(1000)) % len(c.lines)
	if idx < 0 {
		idx += len(c.lines)
	}
	return c.lines[idx], nil
}
