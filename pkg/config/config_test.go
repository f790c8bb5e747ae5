package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.RateLimit.RequestDelay != 2*time.Second {
		t.Errorf("Expected default request delay to be 2s, got %s", config.RateLimit.RequestDelay)
	}
	if config.RateLimit.LoginDelay != 5*time.Second {
		t.Errorf("Expected default login delay to be 5s, got %s", config.RateLimit.LoginDelay)
	}
	if !config.Browser.Headless {
		t.Error("Expected default browser mode to be headless")
	}
	if config.Output.BaseDirectory != "./output" {
		t.Errorf("Expected default output directory to be ./output, got %s", config.Output.BaseDirectory)
	}
	if config.Server.Addr != ":8080" {
		t.Errorf("Expected default server address to be :8080, got %s", config.Server.Addr)
	}
	if len(config.Extraction.PostLinkSelectors) == 0 {
		t.Error("Expected default post link selectors to be set")
	}
	if config.Extraction.MaxScrollIterations != 10 {
		t.Errorf("Expected default scroll cap to be 10, got %d", config.Extraction.MaxScrollIterations)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("INSTAGRAM_ACCOUNTS", "alice:pw1;bob:pw2")
	os.Setenv("REQUEST_DELAY", "3.5")
	os.Setenv("LOGIN_DELAY", "10s")
	os.Setenv("SESSION_DIR", "/tmp/test-sessions")
	os.Setenv("IGHARVEST_HEADLESS", "false")
	os.Setenv("IGHARVEST_OUTPUT_DIR", "/tmp/test-output")
	os.Setenv("IGHARVEST_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "DEBUG")

	defer func() {
		os.Unsetenv("INSTAGRAM_ACCOUNTS")
		os.Unsetenv("REQUEST_DELAY")
		os.Unsetenv("LOGIN_DELAY")
		os.Unsetenv("SESSION_DIR")
		os.Unsetenv("IGHARVEST_HEADLESS")
		os.Unsetenv("IGHARVEST_OUTPUT_DIR")
		os.Unsetenv("IGHARVEST_ADDR")
		os.Unsetenv("LOG_LEVEL")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Accounts.Credentials != "alice:pw1;bob:pw2" {
		t.Errorf("Expected credential list from env, got %s", config.Accounts.Credentials)
	}
	if config.RateLimit.RequestDelay != 3500*time.Millisecond {
		t.Errorf("Expected request delay 3.5s, got %s", config.RateLimit.RequestDelay)
	}
	if config.RateLimit.LoginDelay != 10*time.Second {
		t.Errorf("Expected login delay 10s, got %s", config.RateLimit.LoginDelay)
	}
	if config.Accounts.SessionDir != "/tmp/test-sessions" {
		t.Errorf("Expected session dir /tmp/test-sessions, got %s", config.Accounts.SessionDir)
	}
	if config.Browser.Headless {
		t.Error("Expected headless to be disabled")
	}
	if config.Output.BaseDirectory != "/tmp/test-output" {
		t.Errorf("Expected output dir /tmp/test-output, got %s", config.Output.BaseDirectory)
	}
	if config.Server.Addr != ":9090" {
		t.Errorf("Expected server addr :9090, got %s", config.Server.Addr)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"2", 2 * time.Second},
		{"2.5", 2500 * time.Millisecond},
		{"0", 0},
		{"1500ms", 1500 * time.Millisecond},
		{"1m", time.Minute},
	}

	for _, tt := range tests {
		got, err := parseDelay(tt.input)
		if err != nil {
			t.Errorf("parseDelay(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDelay(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}

	if _, err := parseDelay("not-a-delay"); err == nil {
		t.Error("Expected error for unparseable delay")
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")

	content := `
accounts:
  credentials: "filed:pw"
  session_dir: "/tmp/file-sessions"
rate_limit:
  request_delay: 4s
browser:
  headless: false
extraction:
  max_scroll_iterations: 20
server:
  addr: ":7070"
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Accounts.Credentials != "filed:pw" {
		t.Errorf("Expected credentials from file, got %s", config.Accounts.Credentials)
	}
	if config.RateLimit.RequestDelay != 4*time.Second {
		t.Errorf("Expected request delay 4s, got %s", config.RateLimit.RequestDelay)
	}
	if config.Browser.Headless {
		t.Error("Expected headless disabled from file")
	}
	if config.Extraction.MaxScrollIterations != 20 {
		t.Errorf("Expected scroll cap 20, got %d", config.Extraction.MaxScrollIterations)
	}
	if config.Server.Addr != ":7070" {
		t.Errorf("Expected server addr :7070, got %s", config.Server.Addr)
	}

	// Unset file values keep their defaults.
	if config.Extraction.MinCaptionLength != 10 {
		t.Errorf("Expected default min caption length, got %d", config.Extraction.MinCaptionLength)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"accounts":  "flagged:pw",
		"output":    "/tmp/flag-output",
		"headless":  false,
		"addr":      ":6060",
		"log-level": "error",
	})

	if config.Accounts.Credentials != "flagged:pw" {
		t.Errorf("Expected flag credentials, got %s", config.Accounts.Credentials)
	}
	if config.Output.BaseDirectory != "/tmp/flag-output" {
		t.Errorf("Expected flag output dir, got %s", config.Output.BaseDirectory)
	}
	if config.Browser.Headless {
		t.Error("Expected headless disabled via flag")
	}
	if config.Server.Addr != ":6060" {
		t.Errorf("Expected flag server addr, got %s", config.Server.Addr)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected flag log level, got %s", config.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}

	bad := DefaultConfig()
	bad.RateLimit.RequestDelay = -1 * time.Second
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for negative request delay")
	}

	bad = DefaultConfig()
	bad.Extraction.MaxScrollIterations = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for zero scroll cap")
	}

	bad = DefaultConfig()
	bad.Logging.Level = "noisy"
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for unknown log level")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "saved.yaml")

	original := DefaultConfig()
	original.Accounts.Credentials = "saved:pw"
	original.Server.Addr = ":5050"
	if err := original.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	if loaded.Accounts.Credentials != "saved:pw" {
		t.Errorf("Expected reloaded credentials, got %s", loaded.Accounts.Credentials)
	}
	if loaded.Server.Addr != ":5050" {
		t.Errorf("Expected reloaded server addr, got %s", loaded.Server.Addr)
	}
}
