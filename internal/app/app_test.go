package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hitoshi/aury/internal/store"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, want https://api.example.com", cfg.APIBaseURL)
	}

	// slogのグローバルロガーがJSON出力に設定されていることを検証する
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestResolveInstallID_IssuesAndPersists(t *testing.T) {
	kv, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()

	first, err := resolveInstallID(ctx, kv)
	if err != nil {
		t.Fatalf("resolveInstallID: %v", err)
	}
	if first == "" {
		t.Fatal("expected a non-empty install id")
	}

	// 2回目の呼び出しは永続化済みのIDを返す
	second, err := resolveInstallID(ctx, kv)
	if err != nil {
		t.Fatalf("resolveInstallID (second): %v", err)
	}
	if second != first {
		t.Errorf("install id changed across calls: %q -> %q", first, second)
	}
}

func TestRateLimitPerSecond(t *testing.T) {
	got := rateLimitPerSecond(120)
	if float64(got) != 2.0 {
		t.Errorf("rateLimitPerSecond(120) = %v, want 2.0", got)
	}
}
