package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("RESUMECTL_LLM_PROVIDER", "Gemini")
	t.Setenv("RESUMECTL_STORE_DIR", "/tmp/resumectl-store")

	cfg := loadConfig()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini, got %q", cfg.LLMProvider)
	}
	if cfg.LocalStoreDir != "/tmp/resumectl-store" {
		t.Fatalf("unexpected store dir %q", cfg.LocalStoreDir)
	}
}

func TestListEmptyStore(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "dev")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LLM_PROVIDER", "placeholder")
	t.Setenv("RASTERIZER_ENABLED", "false")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"pending", "--store-dir", t.TempDir()})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if !strings.HasPrefix(out.String(), "ID") {
		t.Fatalf("expected header row, got %q", out.String())
	}
}
