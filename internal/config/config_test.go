package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("SERVER_HOST", "")
		t.Setenv("SERVER_PORT", "")
		t.Setenv("BALANCE_DANGER_THRESHOLD", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Server.Addr != "localhost:5002" {
			t.Errorf("Expected addr localhost:5002, got %s", cfg.Server.Addr)
		}
		if cfg.Submit.DangerThreshold != -5000 {
			t.Errorf("Expected danger threshold -5000, got %d", cfg.Submit.DangerThreshold)
		}
		if cfg.Submit.AlertThreshold != -1000 {
			t.Errorf("Expected alert threshold -1000, got %d", cfg.Submit.AlertThreshold)
		}
		if len(cfg.NoteAPI.SpecialAccounts) != 4 {
			t.Errorf("Expected 4 special accounts, got %d", len(cfg.NoteAPI.SpecialAccounts))
		}
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("NOTE_API_URL", "https://note.example.org/")
		t.Setenv("NOTE_USER_ID", "42")
		t.Setenv("SUBMIT_TIMEOUT", "5s")
		t.Setenv("NOTE_SPECIAL_ACCOUNTS", "7:Cash")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.NoteAPI.BaseURL != "https://note.example.org" {
			t.Errorf("Expected trailing slash trimmed, got %s", cfg.NoteAPI.BaseURL)
		}
		if cfg.NoteAPI.UserID != 42 {
			t.Errorf("Expected user id 42, got %d", cfg.NoteAPI.UserID)
		}
		if cfg.Submit.Timeout != 5*time.Second {
			t.Errorf("Expected 5s timeout, got %s", cfg.Submit.Timeout)
		}
		acc, ok := cfg.NoteAPI.SpecialAccount(7)
		if !ok || acc.Label != "Cash" {
			t.Errorf("Expected special account 7 Cash, got %+v (found=%v)", acc, ok)
		}
	})

	t.Run("rejects malformed special accounts", func(t *testing.T) {
		t.Setenv("NOTE_SPECIAL_ACCOUNTS", "cash")

		if _, err := Load(); err == nil {
			t.Error("Expected error for malformed special accounts")
		}
	})

	t.Run("rejects inverted thresholds", func(t *testing.T) {
		t.Setenv("NOTE_SPECIAL_ACCOUNTS", "")
		t.Setenv("BALANCE_DANGER_THRESHOLD", "100")
		t.Setenv("BALANCE_WARNING_THRESHOLD", "0")

		if _, err := Load(); err == nil {
			t.Error("Expected error when danger threshold exceeds warning threshold")
		}
	})
}
