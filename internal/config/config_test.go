package config

import (
	"strings"
	"testing"
	"time"

	"github.com/kalambet/reportlocator/internal/locator"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strs[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.Host != "" {
		t.Errorf("Server.Host = %q, want all interfaces", cfg.Server.Host)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("Mongo.URI = %q", cfg.Mongo.URI)
	}
	if cfg.Mongo.Collection != "reports" {
		t.Errorf("Mongo.Collection = %q, want %q", cfg.Mongo.Collection, "reports")
	}
	if cfg.Strategy() != locator.Sequential {
		t.Errorf("Strategy() = %q, want sequential", cfg.Strategy())
	}
	if cfg.LocateTimeout() != 30*time.Second {
		t.Errorf("LocateTimeout() = %v, want 30s", cfg.LocateTimeout())
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("ConnectTimeout() = %v, want 10s", cfg.ConnectTimeout())
	}
	if !cfg.Storage.HistoryEnabled {
		t.Error("Storage.HistoryEnabled = false, want true")
	}
	if cfg.Addr() != ":5000" {
		t.Errorf("Addr() = %q, want :5000", cfg.Addr())
	}
}

func TestAddrAndBaseURL(t *testing.T) {
	tests := []struct {
		host     string
		wantAddr string
		wantURL  string
	}{
		{"", ":5000", "http://127.0.0.1:5000"},
		{"0.0.0.0", "0.0.0.0:5000", "http://127.0.0.1:5000"},
		{"::", "[::]:5000", "http://127.0.0.1:5000"},
		{"10.0.0.5", "10.0.0.5:5000", "http://10.0.0.5:5000"},
		{"::1", "[::1]:5000", "http://[::1]:5000"},
	}
	for _, tt := range tests {
		cfg := defaults()
		cfg.Server.Host = tt.host
		if got := cfg.Addr(); got != tt.wantAddr {
			t.Errorf("host %q: Addr() = %q, want %q", tt.host, got, tt.wantAddr)
		}
		if got := cfg.BaseURL(); got != tt.wantURL {
			t.Errorf("host %q: BaseURL() = %q, want %q", tt.host, got, tt.wantURL)
		}
	}
}

// TestBackendValues verifies backend values replace defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.ints["server.port"] = 6000
	b.strs["mongo.uri"] = "mongodb://db.internal:27017"
	b.strs["locator.strategy"] = "parallel"
	b.ints["locator.parallelism"] = 8
	b.strs["storage.history_enabled"] = "false"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Mongo.URI != "mongodb://db.internal:27017" {
		t.Errorf("Mongo.URI = %q", cfg.Mongo.URI)
	}
	if cfg.Strategy() != locator.Parallel || cfg.Locator.Parallelism != 8 {
		t.Errorf("Locator = %+v", cfg.Locator)
	}
	if cfg.Storage.HistoryEnabled {
		t.Error("Storage.HistoryEnabled = true, want false")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.strs["mongo.uri"] = "mongodb://file:27017"
	t.Setenv("RLOC_MONGO_URI", "mongodb://env:27017")
	t.Setenv("RLOC_SERVER_PORT", "7000")
	t.Setenv("RLOC_LOCATOR_TIMEOUT", "0")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://env:27017" {
		t.Errorf("Mongo.URI = %q, want env value", cfg.Mongo.URI)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.LocateTimeout() != 0 {
		t.Errorf("LocateTimeout() = %v, want 0 (disabled)", cfg.LocateTimeout())
	}
}

// TestEnvOverrideBadInt verifies that an unparsable env value keeps the default.
func TestEnvOverrideBadInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("RLOC_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want default 5000", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad strategy", "locator.strategy", "random", "locator.strategy"},
		{"bad timeout", "locator.timeout", "soon", "locator.timeout"},
		{"negative timeout", "mongo.connect_timeout", "-1s", "must not be negative"},
		{"empty uri", "mongo.uri", "", "mongo.uri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			b := newMemBackend()
			b.strs[tt.key] = tt.value
			_, err := loadWith(b)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyIn(b, "server.port", "8080"); err != nil {
		t.Fatalf("setKeyIn: %v", err)
	}
	if b.ints["server.port"] != 8080 {
		t.Errorf("server.port = %d, want 8080", b.ints["server.port"])
	}

	if err := setKeyIn(b, "storage.history_enabled", "false"); err != nil {
		t.Fatalf("setKeyIn: %v", err)
	}
	if b.strs["storage.history_enabled"] != "false" {
		t.Errorf("storage.history_enabled = %q", b.strs["storage.history_enabled"])
	}

	if err := setKeyIn(b, "server.port", "eighty"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyIn(b, "locator.strategy", "random"); err == nil {
		t.Error("expected error for invalid strategy")
	}
	if _, ok := b.strs["locator.strategy"]; ok {
		t.Error("invalid value was written to the backend")
	}
	if err := setKeyIn(b, "no.such.key", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("error = %v, want unknown config key", err)
	}
}

func TestShowAllCoversEveryKey(t *testing.T) {
	keys := ShowAll(defaults())
	if len(keys) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d keys, ValidKeys %d", len(keys), len(ValidKeys()))
	}
	for _, k := range keys {
		if !strings.HasPrefix(k.EnvVar, "RLOC_") {
			t.Errorf("key %s has env var %q without RLOC_ prefix", k.Key, k.EnvVar)
		}
	}
}
