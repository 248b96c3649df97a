package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSQLiteStore_SetGet は書き込んだ値を読み戻せることを検証する。
func TestSQLiteStore_SetGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyGoal, "Trip to Japan"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, ok, err := s.Get(ctx, KeyGoal)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if got != "Trip to Japan" {
		t.Errorf("value = %q, want %q", got, "Trip to Japan")
	}
}

// TestSQLiteStore_GetAbsent は存在しないキーが (\"\", false, nil) になることを検証する。
func TestSQLiteStore_GetAbsent(t *testing.T) {
	s := openTestStore(t)

	got, ok, err := s.Get(context.Background(), KeyUserID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Error("expected key to be absent")
	}
	if got != "" {
		t.Errorf("value = %q, want empty", got)
	}
}

// TestSQLiteStore_SetOverwrite は上書きが有効なことを検証する。
func TestSQLiteStore_SetOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyEmail, "old@x.com"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(ctx, KeyEmail, "new@x.com"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, _, err := s.Get(ctx, KeyEmail)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "new@x.com" {
		t.Errorf("value = %q, want %q", got, "new@x.com")
	}
}

// TestSQLiteStore_RemoveAbsent は存在しないキーの削除がエラーにならないことを検証する。
func TestSQLiteStore_RemoveAbsent(t *testing.T) {
	s := openTestStore(t)

	if err := s.Remove(context.Background(), "no_such_key"); err != nil {
		t.Errorf("Remove returned error: %v", err)
	}
}

// TestSQLiteStore_Clear はセッションキー一括削除を検証する。
func TestSQLiteStore_Clear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range SessionKeys {
		if err := s.Set(ctx, key, "value"); err != nil {
			t.Fatalf("Set(%s) returned error: %v", key, err)
		}
	}
	// install_idはログアウト対象外
	if err := s.Set(ctx, KeyInstallID, "install-1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if err := s.Clear(ctx, SessionKeys...); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	for _, key := range SessionKeys {
		_, ok, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s) returned error: %v", key, err)
		}
		if ok {
			t.Errorf("key %s should be absent after Clear", key)
		}
	}

	_, ok, err := s.Get(ctx, KeyInstallID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Error("install_id should survive Clear of session keys")
	}
}

// TestSQLiteStore_Reopen は再起動相当（開き直し）後も値が残ることを検証する。
func TestSQLiteStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	if err := s1.Set(ctx, KeyUserID, "u1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite (reopen) returned error: %v", err)
	}
	defer s2.Close()

	got, ok, err := s2.Get(ctx, KeyUserID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok || got != "u1" {
		t.Errorf("value = (%q, %v), want (%q, true)", got, ok, "u1")
	}
}
