package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lucenthq/lucent/internal/retry"
)

// chatMessage mirrors the OpenAI chat/completions wire shape, same field
// names as the teacher's gpufeeder.ChatMessage / VLLMMessage.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	Stream         bool           `json:"stream"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	Delta        chatMessage `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// HTTPClient calls an OpenAI-chat-completions-compatible endpoint. It is
// the production Client: real search/LLM vendors are swapped in by pointing
// BaseURL/Model/APIKey at them, exactly as gpufeeder.VLLMHTTPClient targets
// whichever vLLM server is configured.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Model   string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient builds a Client against baseURL (e.g. "https://api.openai.com/v1").
func NewHTTPClient(baseURL, apiKey, model string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// CallStructured issues a low-temperature chat completion constrained to a
// JSON schema via response_format, retrying transient failures.
func (c *HTTPClient) CallStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	body := chatRequest{
		Model:       c.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    systemAndUser(req.SystemPrompt, req.Prompt),
	}
	if req.Schema != nil {
		body.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "response",
				"schema": req.Schema,
				"strict": true,
			},
		}
	}

	var result json.RawMessage
	err := retry.Do(ctx, c.logger, retry.AlwaysTransient, func(ctx context.Context) error {
		resp, err := c.send(ctx, body)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("llmclient: empty choices")
		}
		content := resp.Choices[0].Message.Content
		if !json.Valid([]byte(content)) {
			return fmt.Errorf("llmclient: response is not valid JSON")
		}
		result = json.RawMessage(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: call structured: %w", err)
	}
	return result, nil
}

// StreamCompletion issues a streaming chat completion, forwarding each
// delta fragment to req.OnChunk as it arrives. Retries only apply to the
// initial connection attempt: once tokens have started streaming, a
// mid-stream failure is surfaced as an error rather than restarted, since
// replaying would duplicate already-forwarded chunks.
func (c *HTTPClient) StreamCompletion(ctx context.Context, req StreamRequest) (string, error) {
	body := chatRequest{
		Model:       c.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
		Messages:    systemAndUser(req.SystemPrompt, req.Prompt),
	}

	var full strings.Builder
	err := retry.Do(ctx, c.logger, isConnectTransient, func(ctx context.Context) error {
		full.Reset()
		return c.stream(ctx, body, func(delta string) {
			full.WriteString(delta)
			if req.OnChunk != nil {
				req.OnChunk(delta)
			}
		})
	})
	if err != nil {
		return full.String(), fmt.Errorf("llmclient: stream completion: %w", err)
	}
	return full.String(), nil
}

// isConnectTransient only retries the streaming call if it failed before
// any chunk was forwarded downstream (see partialStreamError).
func isConnectTransient(err error) bool {
	_, partial := err.(*partialStreamError)
	return !partial
}

// partialStreamError marks a stream failure that happened after at least
// one chunk was already delivered to the caller's OnChunk.
type partialStreamError struct{ err error }

func (p *partialStreamError) Error() string { return p.err.Error() }
func (p *partialStreamError) Unwrap() error { return p.err }

func (c *HTTPClient) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("llm server error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm request rejected: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// stream performs the streaming HTTP call and scans Server-Sent-Events
// "data: {...}" frames, forwarding each delta.content fragment to onDelta.
func (c *HTTPClient) stream(ctx context.Context, body chatRequest, onDelta func(string)) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm server error: status %d", resp.StatusCode)
	}

	delivered := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if d := chunk.Choices[0].Delta.Content; d != "" {
			onDelta(d)
			delivered = true
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		if delivered {
			return &partialStreamError{err: err}
		}
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}

func systemAndUser(system, user string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	return msgs
}
