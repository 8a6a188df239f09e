package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultUserAgent is sent by the fetch pipeline unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HomeEnv overrides the base directory when set.
const HomeEnv = "SHELF_HOME"

// Config holds application configuration.
type Config struct {
	// Port is the web UI port.
	Port int `json:"port"`

	// Bind is the web UI bind address.
	Bind string `json:"bind"`

	// Editor opens config.json for `shelf config`.
	Editor string `json:"editor"`

	// UserAgent is sent with every fetch request.
	UserAgent string `json:"user_agent"`

	// FetchTimeoutSeconds bounds a single fetch (connect + read).
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	// FetchIntervalMillis is the minimum spacing between fetch requests.
	// 0 disables throttling.
	FetchIntervalMillis int `json:"fetch_interval_ms,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format"`

	// DBMaxOpenConns limits the maximum number of open search database connections.
	// If set to 1, all search database access is serialized.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle search database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	return &Config{
		Port:                7768,
		Bind:                "127.0.0.1",
		Editor:              editor,
		UserAgent:           DefaultUserAgent,
		FetchTimeoutSeconds: 30,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Path returns the config file location inside baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, "config.json")
}

// ResolveBaseDir picks the storage root: explicit flag value, then $SHELF_HOME,
// then ~/.shelf.
func ResolveBaseDir(flagValue string) (string, error) {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		return filepath.Abs(dir)
	}
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shelf"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.shelf.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(Path(baseDir))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// WriteDefault writes the default configuration to baseDir/config.json
// unless a file already exists there.
func WriteDefault(baseDir string) error {
	path := Path(baseDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Port:                firstInt(overlay.Port, base.Port),
		Bind:                firstString(overlay.Bind, base.Bind),
		Editor:              firstString(overlay.Editor, base.Editor),
		UserAgent:           firstString(overlay.UserAgent, base.UserAgent),
		FetchTimeoutSeconds: firstInt(overlay.FetchTimeoutSeconds, base.FetchTimeoutSeconds),
		FetchIntervalMillis: firstInt(overlay.FetchIntervalMillis, base.FetchIntervalMillis),
		LogLevel:            firstString(overlay.LogLevel, base.LogLevel),
		LogFormat:           firstString(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:      firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
