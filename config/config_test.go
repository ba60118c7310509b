package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AUTO_APPROVE", "")
	t.Setenv("APPROVE_TOKEN", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AutoApprove || cfg.ApproveToken != "YES" || cfg.Docs.TopK != 2 || cfg.Storage.Driver != DriverFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("api key should come from env, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"server_addr": ":9000",
		"llm": {"provider": "deepseek", "model": "deepseek-chat", "base_url": "https://api.deepseek.com"},
		"storage": {"driver": "file", "dir": "/tmp/p"},
		"auto_approve": true
	}`)
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	t.Setenv("AUTO_APPROVE", "false")
	t.Setenv("PROPOSAL_DIR", "/srv/proposals")
	t.Setenv("APPROVE_TOKEN", "OK")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != ":9000" || cfg.LLM.Provider != "deepseek" || cfg.LLM.APIKey != "ds-key" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.AutoApprove || cfg.Storage.Dir != "/srv/proposals" || cfg.ApproveToken != "OK" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Docs.TopK != 2 {
		t.Fatalf("defaults should survive partial files, got top_k=%d", cfg.Docs.TopK)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"llm": `)); err == nil {
		t.Fatal("malformed file should fail")
	}
	if _, err := Load(writeConfig(t, `{"storage": {"driver": "s3"}}`)); err == nil {
		t.Fatal("unknown driver should fail")
	}
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(writeConfig(t, `{"storage": {"driver": "postgres"}}`)); err == nil {
		t.Fatal("postgres without url should fail")
	}
	t.Setenv("AUTO_APPROVE", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatal("bad AUTO_APPROVE should fail")
	}
}
