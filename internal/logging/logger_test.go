package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "debug")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
	SetLogger(zap.NewNop())
}

func TestInitializeWithOptions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pocket-forms.log")
	if err := InitializeWithOptions(Options{Level: "info", File: path}); err != nil {
		t.Fatalf("InitializeWithOptions() error = %v", err)
	}
	Info("hello from test")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain output")
	}
	SetLogger(zap.NewNop())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogSubmission(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	LogSubmission("POST", "http://example.test", 200, nil)
	LogSubmission("POST", "http://example.test", 0, errors.New("boom"))

	if got := logs.FilterMessage("Prompt submitted").Len(); got != 1 {
		t.Errorf("submitted entries = %d, want 1", got)
	}
	if got := logs.FilterMessage("Prompt submission failed").Len(); got != 1 {
		t.Errorf("failed entries = %d, want 1", got)
	}
}
