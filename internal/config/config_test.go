package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7768 {
		t.Fatalf("Port = %d, want %d", cfg.Port, 7768)
	}
	if cfg.Bind != "127.0.0.1" {
		t.Fatalf("Bind = %q, want 127.0.0.1", cfg.Bind)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Fatalf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if cfg.FetchTimeoutSeconds != 30 {
		t.Fatalf("FetchTimeoutSeconds = %d, want 30", cfg.FetchTimeoutSeconds)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(Path(tmpDir), []byte(`{"port": 9000, "log_level": "debug"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("Port = %d, want %d", cfg.Port, 9000)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Unset fields keep defaults
	if cfg.LogFormat != "text" {
		t.Fatalf("LogFormat = %q, want text", cfg.LogFormat)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(Path(tmpDir), []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(Path(tmpDir), []byte(`{"disabled_tools": ["shelf_remove", " shelf_remove ", ""]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "shelf_remove" {
		t.Fatalf("DisabledTools = %v, want [shelf_remove]", cfg.DisabledTools)
	}
}

func TestMerge_OverlayWins(t *testing.T) {
	base := &Config{Port: 1, Bind: "a", DisabledTools: []string{"x"}}
	overlay := &Config{Port: 2, FetchIntervalMillis: 250, DisabledTools: []string{"y", "x"}}

	got := Merge(base, overlay)
	if got.Port != 2 {
		t.Errorf("Port = %d, want 2", got.Port)
	}
	if got.FetchIntervalMillis != 250 {
		t.Errorf("FetchIntervalMillis = %d, want 250", got.FetchIntervalMillis)
	}
	if got.Bind != "a" {
		t.Errorf("Bind = %q, want a", got.Bind)
	}
	if len(got.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want [x y]", got.DisabledTools)
	}
}

func TestWriteDefault(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "home")

	if err := WriteDefault(tmpDir); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if _, err := os.Stat(Path(tmpDir)); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	// Existing file is left untouched
	if err := os.WriteFile(Path(tmpDir), []byte(`{"port": 1234}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := WriteDefault(tmpDir); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("Port = %d, want 1234", cfg.Port)
	}
}

func TestResolveBaseDir(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(HomeEnv, "/should/not/be/used")
		got, err := ResolveBaseDir(dir)
		if err != nil {
			t.Fatalf("ResolveBaseDir() error = %v", err)
		}
		if got != dir {
			t.Errorf("ResolveBaseDir() = %q, want %q", got, dir)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(HomeEnv, dir)
		got, err := ResolveBaseDir("")
		if err != nil {
			t.Fatalf("ResolveBaseDir() error = %v", err)
		}
		if got != dir {
			t.Errorf("ResolveBaseDir() = %q, want %q", got, dir)
		}
	})

	t.Run("home default", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		got, err := ResolveBaseDir("")
		if err != nil {
			t.Fatalf("ResolveBaseDir() error = %v", err)
		}
		if filepath.Base(got) != ".shelf" {
			t.Errorf("ResolveBaseDir() = %q, want ~/.shelf", got)
		}
	})
}
