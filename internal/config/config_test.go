package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnvVar, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Dir != dir {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, dir)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Submit.Timeout != 10*time.Second {
		t.Errorf("Submit.Timeout = %v, want 10s", cfg.Submit.Timeout)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestLoad_FileInDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnvVar, dir)

	content := "[storage]\nbackend = \"sqlite\"\n\n[server]\nport = 9191\n\n[submit]\ntimeout = \"3s\"\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Submit.Timeout != 3*time.Second {
		t.Errorf("Submit.Timeout = %v, want 3s", cfg.Submit.Timeout)
	}
	if cfg.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9191\n\n[ui]\nglamour_style = \"dark\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv(DirEnvVar, dir)
	t.Setenv("POCKET_FORMS_SERVER_PORT", "7000")
	t.Setenv("POCKET_FORMS_UI_GLAMOUR_STYLE", "light")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.UI.GlamourStyle != "light" {
		t.Errorf("UI.GlamourStyle = %q, want light", cfg.UI.GlamourStyle)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv(DirEnvVar, t.TempDir())
	t.Setenv("POCKET_FORMS_STORAGE_BACKEND", "redis")

	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(DirEnvVar, t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"POCKET_FORMS_DIR":              "storage.dir",
		"POCKET_FORMS_STORAGE_BACKEND":  "storage.backend",
		"POCKET_FORMS_UI_GLAMOUR_STYLE": "ui.glamour_style",
		"POCKET_FORMS_LOG_LEVEL":        "log.level",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	if err := InitConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}

	t.Setenv(DirEnvVar, filepath.Dir(path))
	if _, err := Load(path); err != nil {
		t.Errorf("sample config does not load: %v", err)
	}
}
