package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"resume-review/internal/documents"
	"resume-review/internal/extract"
	"resume-review/internal/llm"
	"resume-review/internal/shared/telemetry"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are a resume review engine. Respond with JSON only. No markdown."

// DocumentReader reads a stored document by path.
type DocumentReader interface {
	Read(ctx context.Context, path string) (*documents.Blob, error)
}

// Client implements llm.Client using OpenAI Chat Completions. The document is
// sent as extracted text.
type Client struct {
	apiKey     string
	model      string
	docs       DocumentReader
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, docs DocumentReader) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document reader is required")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		docs:   docs,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string      `json:"role"`
			Content llm.Content `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// errTemperatureUnsupported marks a rejection of the temperature parameter.
var errTemperatureUnsupported = errors.New("temperature unsupported")

// Feedback reads the document, extracts its text and asks the model for an
// evaluation following instructions.
func (c *Client) Feedback(ctx context.Context, documentPath, instructions string) (*llm.Response, error) {
	blob, err := c.docs.Read(ctx, documentPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text, err := extract.TextFromBytes(ctx, blob.Data, blob.ContentType, blob.Path)
	if err != nil {
		return nil, fmt.Errorf("extract document text: %w", err)
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(instructions, text)},
	}

	useTemp := temperatureAllowed(c.model)
	resp, err := c.complete(ctx, messages, useTemp)
	if errors.Is(err, errTemperatureUnsupported) && useTemp {
		telemetry.Info("llm.temperature_fallback", map[string]any{"model": c.model})
		resp, err = c.complete(ctx, messages, false)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, withTemp bool) (*llm.Response, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	if withTemp {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		if isTemperatureError(parsed.Error.Message) {
			return nil, fmt.Errorf("%w: %s", errTemperatureUnsupported, parsed.Error.Message)
		}
		return nil, fmt.Errorf("openai http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}
	logUsage(c.model, parsed)

	msg := parsed.Choices[0].Message
	if strings.TrimSpace(msg.Content.Text()) == "" {
		return nil, llm.ErrEmptyResponse
	}
	return &llm.Response{Message: llm.Message{Role: msg.Role, Content: msg.Content}}, nil
}

func buildUserPrompt(instructions, resumeText string) string {
	return fmt.Sprintf("%s\n\nResume Text:\n%s", strings.TrimSpace(instructions), resumeText)
}

func logUsage(model string, parsed chatResponse) {
	fields := map[string]any{"model": model, "response_id": parsed.ID}
	if u := parsed.Usage; u != nil {
		fields["prompt_tokens"] = u.PromptTokens
		fields["completion_tokens"] = u.CompletionTokens
		fields["total_tokens"] = u.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

// temperatureAllowed reports whether temperature 0 may be sent for model.
// LLM_NO_TEMP0_MODELS lists extra comma-separated models that reject it.
func temperatureAllowed(model string) bool {
	if isGPT5(model) {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(model))
	for _, m := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if strings.ToLower(strings.TrimSpace(m)) == normalized && normalized != "" {
			return false
		}
	}
	return true
}

func isTemperatureError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "temperature") && strings.Contains(lower, "unsupported")
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
