package llm

import "context"

const placeholderFeedback = `{"overallScore":50,` +
	`"ATS":{"score":50,"tips":[{"type":"improve","tip":"Configure an LLM provider for a real review"}]},` +
	`"toneAndStyle":{"score":50,"tips":[]},` +
	`"content":{"score":50,"tips":[]},` +
	`"structure":{"score":50,"tips":[]},` +
	`"skills":{"score":50,"tips":[]}}`

// PlaceholderClient returns a fixed neutral evaluation. Used in dev when no
// provider is configured.
type PlaceholderClient struct{}

func (PlaceholderClient) Feedback(ctx context.Context, documentPath, instructions string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{Message: Message{Role: "assistant", Content: TextContent(placeholderFeedback)}}, nil
}

var _ Client = PlaceholderClient{}
