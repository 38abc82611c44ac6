package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Relay     RelayConfig     `json:"relay"`
	Languages LanguagesConfig `json:"languages"`
	Autoreply AutoreplyConfig `json:"autoreply"`
	Storage   StorageConfig   `json:"storage"`
}

type TelegramConfig struct {
	Token     string              `env:"TINYDESK_TELEGRAM_TOKEN"      json:"token"`
	AllowFrom FlexibleStringSlice `env:"TINYDESK_TELEGRAM_ALLOW_FROM" json:"allow_from"`
}

// RelayConfig names the support destination that user messages are
// forwarded to. TopicID is optional and selects a forum sub-thread.
type RelayConfig struct {
	SupportChatID int64 `env:"TINYDESK_RELAY_SUPPORT_CHAT_ID" json:"support_chat_id"`
	TopicID       int   `env:"TINYDESK_RELAY_TOPIC_ID"        json:"topic_id,omitempty"`
}

type LanguagesConfig struct {
	Default   string   `env:"TINYDESK_LANGUAGES_DEFAULT"   json:"default"`
	Supported []string `env:"TINYDESK_LANGUAGES_SUPPORTED" json:"supported,omitempty"`
}

type AutoreplyConfig struct {
	Enabled bool `env:"TINYDESK_AUTOREPLY_ENABLED" json:"enabled"`

	// Anthropic-backed generation. When the API key is empty the
	// placeholder generator is used instead.
	AnthropicAPIKey  string `env:"TINYDESK_AUTOREPLY_ANTHROPIC_API_KEY"  json:"anthropic_api_key,omitempty"`
	AnthropicAPIBase string `env:"TINYDESK_AUTOREPLY_ANTHROPIC_API_BASE" json:"anthropic_api_base,omitempty"`
	Model            string `env:"TINYDESK_AUTOREPLY_MODEL"              json:"model,omitempty"`
	MaxTokens        int    `env:"TINYDESK_AUTOREPLY_MAX_TOKENS"         json:"max_tokens,omitempty"`
}

type StorageConfig struct {
	DataDir   string `env:"TINYDESK_STORAGE_DATA_DIR"   json:"data_dir"`
	AuditPath string `env:"TINYDESK_STORAGE_AUDIT_PATH" json:"audit_path"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".tinydesk")
	return &Config{
		Languages: LanguagesConfig{
			Default:   "en",
			Supported: []string{"en", "ru", "ka"},
		},
		Autoreply: AutoreplyConfig{
			Enabled:   true,
			Model:     "claude-sonnet-4.6",
			MaxTokens: 1024,
		},
		Storage: StorageConfig{
			DataDir:   filepath.Join(base, "state"),
			AuditPath: filepath.Join(base, "conversations.tsv"),
		},
	}
}

// LoadConfig reads the JSON config at path, then overlays TINYDESK_*
// environment variables. A missing file yields the defaults. A .env file
// in the working directory is honored before the overlay.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks invariants that would otherwise surface deep inside the
// gateway: the default language must be in the supported set.
func (c *Config) Validate() error {
	if c.Languages.Default == "" {
		return errors.New("languages.default is required")
	}
	for _, tag := range c.Languages.Supported {
		if tag == c.Languages.Default {
			return nil
		}
	}
	return fmt.Errorf("languages.default %q is not in languages.supported", c.Languages.Default)
}

// SupportsLanguage reports whether tag is one of the configured languages.
func (c *Config) SupportsLanguage(tag string) bool {
	for _, t := range c.Languages.Supported {
		if t == tag {
			return true
		}
	}
	return false
}
