// Package config persists user settings in a single JSON file and migrates
// keys left behind by older releases.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type Settings struct {
	Provider     string `json:"stt_provider"` // openai, groq or fake
	Language     string `json:"stt_language"`
	Model        string `json:"stt_model"` // empty selects the provider default
	UploadFormat string `json:"upload_format"`

	CleanTranscription bool    `json:"clean_transcription"`
	CleaningTimeoutS   float64 `json:"cleaning_timeout"`
	LLMModel           string  `json:"llm_model"`

	LowercaseShort     bool `json:"lowercase_short_transcriptions"`
	LowercaseThreshold int  `json:"lowercase_threshold"`

	SilentStartTimeoutS float64 `json:"silent_start_timeout"`
	SilenceThreshold    float64 `json:"silence_threshold"`
	MinDurationS        float64 `json:"min_duration"`
	MaxDurationS        float64 `json:"max_duration"`

	Microphone   string `json:"selected_microphone"` // device name, empty means default
	HistoryLimit int    `json:"history_limit"`
}

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() Settings {
	return Settings{
		Provider:            "openai",
		Language:            "en",
		UploadFormat:        "flac",
		CleaningTimeoutS:    10.0,
		LLMModel:            "gpt-4o-mini",
		LowercaseShort:      true,
		LowercaseThreshold:  4,
		SilentStartTimeoutS: 4.0,
		SilenceThreshold:    0.01,
		MinDurationS:        1.0,
		MaxDurationS:        600.0,
		HistoryLimit:        10,
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "murmur", "settings.json"), nil
}

// Store persists settings.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads settings from disk or returns defaults when missing. Keys a
// newer release added keep their default; keys an older release renamed are
// migrated and written back.
func (s *JSONStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}

	data, migrated, err := migrate(data)
	if err != nil {
		return Settings{}, err
	}

	cfg := DefaultSettings()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, err
	}

	if migrated {
		if err := s.Save(cfg); err != nil {
			return Settings{}, err
		}
	}
	return cfg, nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// migrate rewrites settings keys from older releases in place. Returns the
// possibly-updated JSON and whether anything changed.
func migrate(data []byte) ([]byte, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, err
	}

	changed := false

	// silence_timeout was renamed to silent_start_timeout
	if v, ok := raw["silence_timeout"]; ok {
		if _, exists := raw["silent_start_timeout"]; !exists {
			raw["silent_start_timeout"] = v
		}
		delete(raw, "silence_timeout")
		changed = true
	}

	if !changed {
		return data, false, nil
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
