package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resume-review/internal/documents"
	"resume-review/internal/llm"
	"resume-review/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// DocumentReader reads a stored document by path.
type DocumentReader interface {
	Read(ctx context.Context, path string) (*documents.Blob, error)
}

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client with Gemini. The stored document is sent
// inline so the model reads the original PDF.
type Client struct {
	models contentGenerator
	model  string
	docs   DocumentReader
}

// NewClient creates a Client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string, docs DocumentReader) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if docs == nil {
		return nil, errors.New("document reader is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(client.Models, model, docs), nil
}

func newClient(models contentGenerator, model string, docs DocumentReader) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{models: models, model: model, docs: docs}
}

// Feedback sends the document and instructions and returns every text part
// of the first candidate as list-shaped content.
func (c *Client) Feedback(ctx context.Context, documentPath, instructions string) (*llm.Response, error) {
	blob, err := c.docs.Read(ctx, documentPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	mimeType := blob.ContentType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(blob.Data, mimeType),
			genai.NewPartFromText(instructions),
		}, genai.RoleUser),
	}
	temp := float32(0)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temp,
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil, llm.ErrEmptyResponse
	}

	var parts []llm.ContentPart
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		parts = append(parts, llm.ContentPart{Type: "text", Text: part.Text})
	}
	if len(parts) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	fields := map[string]any{"model": c.model, "parts": len(parts)}
	if u := resp.UsageMetadata; u != nil {
		fields["prompt_tokens"] = u.PromptTokenCount
		fields["total_tokens"] = u.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)

	return &llm.Response{Message: llm.Message{Role: "assistant", Content: llm.PartsContent(parts...)}}, nil
}

var _ llm.Client = (*Client)(nil)
