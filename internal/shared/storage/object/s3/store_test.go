package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/resume.pdf", want: "owner/resume.pdf"},
		{name: "simple prefix", prefix: "resumes", key: "owner/resume.png", want: "resumes/owner/resume.png"},
		{name: "prefix slashes", prefix: "/resumes/", key: "/owner/resume.pdf", want: "resumes/owner/resume.pdf"},
		{name: "empty key", prefix: "resumes", key: "", want: "resumes"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	if got := normalizePrefix("  /a/b/ "); got != "a/b" {
		t.Fatalf("normalizePrefix = %q", got)
	}
}
