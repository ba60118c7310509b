// Package config loads the service configuration: a JSON file, then .env, then
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"artbiz_proposal/template"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerAddr      string        `json:"server_addr,omitempty"`
	LLM             LLMConfig     `json:"llm"`
	Storage         StorageConfig `json:"storage"`
	Docs            DocsConfig    `json:"docs"`
	TemplatePath    string        `json:"template_path,omitempty"`
	TemplateVersion string        `json:"template_version,omitempty"`
	AutoApprove     bool          `json:"auto_approve"`
	ApproveToken    string        `json:"approve_token,omitempty"`
}

// LLMConfig 对应 generator.LLMSettings。
type LLMConfig struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Dir         string `json:"dir,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
}

type DocsConfig struct {
	Dir  string `json:"dir,omitempty"`
	TopK int    `json:"top_k,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ServerAddr:      ":8080",
		LLM:             LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Storage:         StorageConfig{Driver: DriverFile, Dir: "data/proposals"},
		Docs:            DocsConfig{Dir: "data/docs", TopK: 2},
		TemplateVersion: template.DefaultVersion,
		AutoApprove:     true,
		ApproveToken:    "YES",
	}
}

// Load reads path (missing file -> defaults), loads .env and applies env overrides.
func Load(path string) (Config, error) {
	// .env 可选，不存在时忽略。
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var providerKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

func applyEnv(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = os.Getenv(name)
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Storage.DatabaseURL == "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("PROPOSAL_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("DOCS_DIR"); v != "" {
		cfg.Docs.Dir = v
	}
	if v := os.Getenv("PROPOSAL_TEMPLATE_VERSION"); v != "" {
		cfg.TemplateVersion = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.ServerAddr = v
	}
	if v := os.Getenv("APPROVE_TOKEN"); v != "" {
		cfg.ApproveToken = v
	}
	if v := os.Getenv("AUTO_APPROVE"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("AUTO_APPROVE: %w", err)
		}
		cfg.AutoApprove = b
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage driver %q not supported", c.Storage.Driver)
	}
	if c.Docs.TopK < 0 {
		return errors.New("docs.top_k must not be negative")
	}
	return nil
}
