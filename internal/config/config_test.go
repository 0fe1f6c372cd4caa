// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OpenAI.Model != "gpt-4" {
		t.Errorf("default model = %q, want gpt-4", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature != 0.7 {
		t.Errorf("default temperature = %v, want 0.7", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.MaxTokens != 4000 {
		t.Errorf("default max_tokens = %d, want 4000", cfg.OpenAI.MaxTokens)
	}
	if cfg.OpenAI.TopP != 1.0 {
		t.Errorf("default top_p = %v, want 1.0", cfg.OpenAI.TopP)
	}
	if !cfg.Chat.DisplayWelcome {
		t.Error("display_welcome should default to true")
	}
	if cfg.Chat.WelcomeMessage != DefaultWelcomeMessage {
		t.Errorf("welcome message = %q", cfg.Chat.WelcomeMessage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INKWELL_CONFIG_DIR", dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir = %q, want %q", got, dir)
	}
}

func TestSaveLoadTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.OpenAI.Model = "gpt-4o"
	cfg.OpenAI.Temperature = 1.2
	cfg.Chat.DisplayWelcome = false

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	// SECURITY: config holds request parameters only, but keep it private
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.OpenAI.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", loaded.OpenAI.Model)
	}
	if loaded.OpenAI.Temperature != 1.2 {
		t.Errorf("temperature = %v, want 1.2", loaded.OpenAI.Temperature)
	}
	if loaded.Chat.DisplayWelcome {
		t.Error("display_welcome = false should survive the round trip")
	}
}

func TestSaveLoadJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.OpenAI.MaxTokens = 2048

	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.OpenAI.MaxTokens != 2048 {
		t.Errorf("max_tokens = %d, want 2048", loaded.OpenAI.MaxTokens)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	partial := "[openai]\nmodel = \"gpt-4-turbo-preview\"\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.OpenAI.Model != "gpt-4-turbo-preview" {
		t.Errorf("model = %q", loaded.OpenAI.Model)
	}
	// Absent keys keep defaults, including the true bool
	if loaded.OpenAI.Temperature != 0.7 {
		t.Errorf("temperature = %v, want default 0.7", loaded.OpenAI.Temperature)
	}
	if !loaded.Chat.DisplayWelcome {
		t.Error("absent display_welcome should keep its true default")
	}
	if loaded.Chat.WelcomeMessage != DefaultWelcomeMessage {
		t.Errorf("welcome = %q, want default", loaded.Chat.WelcomeMessage)
	}
}

func TestEmptyWelcomeFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	content := "[chat]\nwelcome_message = \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Chat.WelcomeMessage != DefaultWelcomeMessage {
		t.Errorf("empty welcome should fall back to default, got %q", loaded.Chat.WelcomeMessage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"temperature too high", func(c *Config) { c.OpenAI.Temperature = 2.5 }, true},
		{"temperature negative", func(c *Config) { c.OpenAI.Temperature = -0.1 }, true},
		{"top_p too high", func(c *Config) { c.OpenAI.TopP = 1.5 }, true},
		{"max_tokens zero", func(c *Config) { c.OpenAI.MaxTokens = 0 }, true},
		{"frequency_penalty out of range", func(c *Config) { c.OpenAI.FrequencyPenalty = 3 }, true},
		{"presence_penalty out of range", func(c *Config) { c.OpenAI.PresencePenalty = -2.5 }, true},
		{"temperature boundary", func(c *Config) { c.OpenAI.Temperature = 2.0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("INKWELL_MODEL", "o1-mini")
	t.Setenv("INKWELL_TEMPERATURE", "0.3")
	t.Setenv("INKWELL_MAX_TOKENS", "512")
	t.Setenv("INKWELL_NO_WELCOME", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.OpenAI.Model != "o1-mini" {
		t.Errorf("model = %q, want o1-mini", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.MaxTokens != 512 {
		t.Errorf("max_tokens = %d, want 512", cfg.OpenAI.MaxTokens)
	}
	if cfg.Chat.DisplayWelcome {
		t.Error("INKWELL_NO_WELCOME=1 should disable the welcome message")
	}
}

func TestGetSet_DotNotation(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("openai.model")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "gpt-4" {
		t.Errorf("Get(openai.model) = %v", val)
	}

	if err := cfg.Set("openai.temperature", "1.5"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.OpenAI.Temperature != 1.5 {
		t.Errorf("temperature = %v after Set, want 1.5", cfg.OpenAI.Temperature)
	}

	if err := cfg.Set("chat.display_welcome", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.Chat.DisplayWelcome {
		t.Error("display_welcome should be false after Set")
	}

	if _, err := cfg.Get("openai.bogus"); err == nil {
		t.Error("Get with unknown key should fail")
	}
	if err := cfg.Set("nope.nothing", "x"); err == nil {
		t.Error("Set with unknown key should fail")
	}
}

func TestGetAllKeys_Resolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %q not resolvable: %v", key, err)
		}
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	updated := Default()
	updated.OpenAI.Model = "gpt-4o-mini"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := got != nil && got.OpenAI.Model == "gpt-4o-mini"
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not deliver reloaded config in time")
}
