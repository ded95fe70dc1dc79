package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.SilenceThreshold != 0.01 {
		t.Errorf("silence threshold = %v, want 0.01", cfg.SilenceThreshold)
	}
	if cfg.SilentStartTimeoutS != 4.0 {
		t.Errorf("silent start timeout = %v, want 4.0", cfg.SilentStartTimeoutS)
	}
	if !cfg.LowercaseShort || cfg.LowercaseThreshold != 4 {
		t.Errorf("lowercase defaults = %v/%d, want true/4", cfg.LowercaseShort, cfg.LowercaseThreshold)
	}
	if cfg.CleanTranscription {
		t.Error("cleaning should be off by default")
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "missing", "settings.json"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "cfg", "settings.json"))
	want := DefaultSettings()
	want.Provider = "groq"
	want.Microphone = "USB Microphone"
	want.CleanTranscription = true

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

func TestLoadFillsMissingKeysWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"stt_provider": "groq"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Provider != "groq" {
		t.Errorf("provider = %q, want groq", got.Provider)
	}
	if got.SilentStartTimeoutS != 4.0 {
		t.Errorf("missing key should keep default, got %v", got.SilentStartTimeoutS)
	}
	if !got.LowercaseShort {
		t.Error("missing bool key should keep default true")
	}
}

func TestLoadMigratesSilenceTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"silence_timeout": 2.5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.SilentStartTimeoutS != 2.5 {
		t.Fatalf("silent start timeout = %v, want migrated 2.5", got.SilentStartTimeoutS)
	}

	// the migrated file should be rewritten without the old key
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["silence_timeout"]; ok {
		t.Error("old key silence_timeout survived migration")
	}
	if raw["silent_start_timeout"] != 2.5 {
		t.Errorf("silent_start_timeout = %v, want 2.5", raw["silent_start_timeout"])
	}
}

func TestLoadMigrationPrefersNewKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"silence_timeout": 2.5, "silent_start_timeout": 3.5}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.SilentStartTimeoutS != 3.5 {
		t.Errorf("silent start timeout = %v, want 3.5 (new key wins)", got.SilentStartTimeoutS)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt settings file")
	}
}
