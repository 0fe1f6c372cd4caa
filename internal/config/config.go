// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/inkwell/internal/util"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config is the root configuration for inkwell.
type Config struct {
	// Version is the config schema version
	Version string `toml:"version" json:"version"`

	// Chat holds conversation behavior settings
	Chat ChatConfig `toml:"chat" json:"chat"`

	// OpenAI holds model request parameters
	OpenAI OpenAIConfig `toml:"openai" json:"openai"`
}

// ChatConfig configures conversation behavior.
type ChatConfig struct {
	// WelcomeMessage is shown as the assistant's first message in a new session
	WelcomeMessage string `toml:"welcome_message" json:"welcome_message"`
	// DisplayWelcome controls whether new sessions open with the welcome message
	DisplayWelcome bool `toml:"display_welcome" json:"display_welcome"`
}

// OpenAIConfig configures the model request parameters.
type OpenAIConfig struct {
	// Model is the default model identifier
	Model string `toml:"model" json:"model"`
	// Temperature controls sampling randomness (0.0-2.0)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps the completion length
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// TopP is the nucleus sampling cutoff (0.0-1.0)
	TopP float64 `toml:"top_p" json:"top_p"`
	// FrequencyPenalty discourages token repetition (-2.0-2.0)
	FrequencyPenalty float64 `toml:"frequency_penalty" json:"frequency_penalty"`
	// PresencePenalty discourages topic repetition (-2.0-2.0)
	PresencePenalty float64 `toml:"presence_penalty" json:"presence_penalty"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultWelcomeMessage opens a fresh session when no custom welcome
// text is configured.
const DefaultWelcomeMessage = "I am a helpful AI writing assistant. How can I help you today?"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Chat: ChatConfig{
			WelcomeMessage: DefaultWelcomeMessage,
			DisplayWelcome: true,
		},

		OpenAI: OpenAIConfig{
			Model:            "gpt-4",
			Temperature:      0.7,
			MaxTokens:        4000,
			TopP:             1.0,
			FrequencyPenalty: 0.0,
			PresencePenalty:  0.0,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the inkwell configuration directory path.
// INKWELL_CONFIG_DIR overrides the default of ~/.inkwell.
func ConfigDir() (string, error) {
	if dir := os.Getenv("INKWELL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".inkwell"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The extension picks the format; TOML is the default.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file, decoding over the
// values already in cfg so absent keys keep their defaults.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults. Decoding over
// Default() already preserves bools and zero-valued numerics the file
// omits; this covers strings and out-of-range leftovers.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Chat.WelcomeMessage == "" {
		cfg.Chat.WelcomeMessage = defaults.Chat.WelcomeMessage
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaults.OpenAI.Model
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		cfg.OpenAI.MaxTokens = defaults.OpenAI.MaxTokens
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# inkwell configuration file")
	fmt.Fprintln(file, "# Generated by inkwell - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.OpenAI.Model == "" {
		return ValidationError{Field: "openai.model", Message: "model must not be empty"}
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return ValidationError{Field: "openai.temperature", Message: "must be between 0.0 and 2.0"}
	}
	if c.OpenAI.TopP < 0 || c.OpenAI.TopP > 1 {
		return ValidationError{Field: "openai.top_p", Message: "must be between 0.0 and 1.0"}
	}
	if c.OpenAI.MaxTokens < 1 || c.OpenAI.MaxTokens > 128000 {
		return ValidationError{Field: "openai.max_tokens", Message: "must be between 1 and 128000"}
	}
	if c.OpenAI.FrequencyPenalty < -2 || c.OpenAI.FrequencyPenalty > 2 {
		return ValidationError{Field: "openai.frequency_penalty", Message: "must be between -2.0 and 2.0"}
	}
	if c.OpenAI.PresencePenalty < -2 || c.OpenAI.PresencePenalty > 2 {
		return ValidationError{Field: "openai.presence_penalty", Message: "must be between -2.0 and 2.0"}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - INKWELL_MODEL: overrides openai.model
//   - INKWELL_TEMPERATURE: overrides openai.temperature
//   - INKWELL_MAX_TOKENS: overrides openai.max_tokens
//   - INKWELL_WELCOME: overrides chat.welcome_message
//   - INKWELL_NO_WELCOME: set to "1" or "true" to suppress the welcome message
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("INKWELL_MODEL"); model != "" {
		c.OpenAI.Model = model
	}

	if temp := os.Getenv("INKWELL_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			c.OpenAI.Temperature = v
		}
	}

	if max := os.Getenv("INKWELL_MAX_TOKENS"); max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			c.OpenAI.MaxTokens = v
		}
	}

	if welcome := os.Getenv("INKWELL_WELCOME"); welcome != "" {
		c.Chat.WelcomeMessage = welcome
	}

	if noWelcome := os.Getenv("INKWELL_NO_WELCOME"); noWelcome != "" {
		c.Chat.DisplayWelcome = !(noWelcome == "1" || strings.ToLower(noWelcome) == "true")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "openai.model").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "openai.temperature").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// String input gets parsed into the field's type
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"chat.welcome_message",
		"chat.display_welcome",
		"openai.model",
		"openai.temperature",
		"openai.max_tokens",
		"openai.top_p",
		"openai.frequency_penalty",
		"openai.presence_penalty",
	}
}
