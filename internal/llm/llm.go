package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client requests an evaluation of a stored document.
type Client interface {
	// Feedback evaluates the document at documentPath following instructions.
	// A nil response with a nil error means the provider returned nothing.
	Feedback(ctx context.Context, documentPath, instructions string) (*Response, error)
}

// Response is a provider reply.
type Response struct {
	Message Message `json:"message"`
}

// Message is the reply body.
type Message struct {
	Role    string  `json:"role,omitempty"`
	Content Content `json:"content"`
}

// ContentPart is one element of list-shaped content.
type ContentPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Content is either a plain string or a list of parts.
type Content struct {
	text  string
	parts []ContentPart
	list  bool
}

// TextContent returns string-shaped content.
func TextContent(s string) Content {
	return Content{text: s}
}

// PartsContent returns list-shaped content.
func PartsContent(parts ...ContentPart) Content {
	return Content{parts: parts, list: true}
}

// IsList reports whether the content arrived as a list of parts.
func (c Content) IsList() bool { return c.list }

// Parts returns the list elements, if any.
func (c Content) Parts() []ContentPart { return c.parts }

// Text normalizes both shapes: the string itself, or the first part's text.
func (c Content) Text() string {
	if !c.list {
		return c.text
	}
	if len(c.parts) == 0 {
		return ""
	}
	return c.parts[0].Text
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.list {
		parts := c.parts
		if parts == nil {
			parts = []ContentPart{}
		}
		return json.Marshal(parts)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	case '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = PartsContent(parts...)
		return nil
	default:
		return fmt.Errorf("content must be a string or a list of parts")
	}
}

// ErrEmptyResponse is returned by providers that produced no content.
var ErrEmptyResponse = errors.New("LLM returned an empty response")
