package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != defaultAPIBind {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, defaultAPIBind)
	}
	if cfg.PollInterval != defaultPollSeconds*time.Second {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollSeconds*time.Second)
	}
	if !cfg.AutoFetch {
		t.Fatalf("AutoFetch = false, want true")
	}
	if cfg.Key != "id" {
		t.Fatalf("Key = %q, want id", cfg.Key)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.LogDir() != filepath.Dir(wantLog) {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir(), filepath.Dir(wantLog))
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_bind = "  10.0.0.5:9999  "
poll_seconds = 0
auto_fetch = false
key = " uuid "
log_file = "  ~/logs/synq.log  "
log_level = "DEBUG"
request_timeout_seconds = 12
retries = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "10.0.0.5:9999" {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, "10.0.0.5:9999")
	}
	if cfg.PollInterval != 0 || cfg.AutoFetch {
		t.Fatalf("PollInterval = %v AutoFetch = %v, want 0 and false", cfg.PollInterval, cfg.AutoFetch)
	}
	if cfg.Key != "uuid" || cfg.LogLevel != "debug" {
		t.Fatalf("Key = %q LogLevel = %q", cfg.Key, cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.RequestTimeout != 12*time.Second || cfg.Retries != 0 {
		t.Fatalf("RequestTimeout = %v Retries = %d", cfg.RequestTimeout, cfg.Retries)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_bind = "   "
key = ""
log_level = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("cfg = %#v, want defaults %#v", cfg, want)
	}
}

func TestLoad_StderrLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`log_file = "-"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogFile != "-" {
		t.Fatalf("LogFile = %q, want -", cfg.LogFile)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_bind = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_NegativePollFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_seconds = -1`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a negative poll interval")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
