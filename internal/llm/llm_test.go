package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestContentTextNormalizesBothShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		list bool
	}{
		{"string", `{"message":{"content":"{\"a\":1}"}}`, `{"a":1}`, false},
		{"parts", `{"message":{"content":[{"type":"text","text":"{\"a\":1}"},{"text":"ignored"}]}}`, `{"a":1}`, true},
		{"empty list", `{"message":{"content":[]}}`, "", true},
		{"null", `{"message":{"content":null}}`, "", false},
	}
	for _, tc := range cases {
		var resp Response
		if err := json.Unmarshal([]byte(tc.raw), &resp); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if got := resp.Message.Content.Text(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		if resp.Message.Content.IsList() != tc.list {
			t.Fatalf("%s: unexpected list flag", tc.name)
		}
	}
}

func TestContentRejectsObjects(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(`{"message":{"content":{"text":"x"}}}`), &resp); err == nil {
		t.Fatalf("expected error for object content")
	}
}

func TestContentMarshalKeepsShape(t *testing.T) {
	out, err := json.Marshal(PartsContent(ContentPart{Text: "hi"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `[{"text":"hi"}]` {
		t.Fatalf("unexpected parts json %s", out)
	}
	out, err = json.Marshal(TextContent("hi"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"hi"` {
		t.Fatalf("unexpected text json %s", out)
	}
}

func TestPrepareInstructions(t *testing.T) {
	got := PrepareInstructions(" Engineer ", "Build things")
	for _, want := range []string{"The job title is: Engineer\n", "The job description is: Build things", "interface Feedback"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in instructions", want)
		}
	}
	if strings.Contains(got, "{{") {
		t.Fatalf("unreplaced placeholder in instructions")
	}
}

func TestPlaceholderClientReturnsJSON(t *testing.T) {
	resp, err := PlaceholderClient{}.Feedback(context.Background(), "p", "i")
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !json.Valid([]byte(resp.Message.Content.Text())) {
		t.Fatalf("placeholder feedback is not JSON")
	}
}
