package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "OBJECT_STORE", "LLM_PROVIDER", "VERIFY_DELAY", "NAVIGATE_DELAY", "EVENTS_BACKEND", "RASTERIZE_SCALE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.LLMProvider != "placeholder" {
		t.Fatalf("expected placeholder provider, got %q", cfg.LLMProvider)
	}
	if cfg.VerifyDelay != 200*time.Millisecond || cfg.NavigateDelay != 500*time.Millisecond {
		t.Fatalf("unexpected delays: verify=%s navigate=%s", cfg.VerifyDelay, cfg.NavigateDelay)
	}
	if cfg.RasterizeScale != 4 {
		t.Fatalf("expected scale 4, got %v", cfg.RasterizeScale)
	}
	if cfg.EventsBackend != "none" {
		t.Fatalf("expected no events backend, got %q", cfg.EventsBackend)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("LLM_PROVIDER", "google")
	t.Setenv("VERIFY_DELAY", "0s")
	t.Setenv("EVENTS_BACKEND", "redis")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_UPLOAD_MB", "2")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "minio" {
		t.Fatalf("expected minio, got %q", cfg.ObjectStoreType)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini, got %q", cfg.LLMProvider)
	}
	if cfg.VerifyDelay != 0 {
		t.Fatalf("expected zero verify delay, got %s", cfg.VerifyDelay)
	}
	if cfg.EventsBackend != "asynq" {
		t.Fatalf("expected asynq, got %q", cfg.EventsBackend)
	}
	if !cfg.MinioUseSSL {
		t.Fatalf("expected MINIO_USE_SSL=true")
	}
	if cfg.MaxUploadBytes != 2<<20 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.MaxUploadBytes)
	}
	if cfg.IsDevLike() {
		t.Fatalf("production must not be dev-like")
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=from-file\nPORT=9999\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_MODEL", "")
	os.Unsetenv("LLM_MODEL")

	cfg := Load()
	if cfg.LLMModel != "from-file" {
		t.Fatalf("expected model from .env, got %q", cfg.LLMModel)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env to win over .env, got %q", cfg.Port)
	}
}
