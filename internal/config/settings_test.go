package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if !strings.Contains(configDir, "dmxsync") {
		t.Errorf("GetConfigDir() = %v, should contain 'dmxsync'", configDir)
	}
	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "dmxsync") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME based path", configDir)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Sync.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", s.Sync.PollInterval, DefaultPollInterval)
	}
	if s.Push.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %v, want %v", s.Push.MaxAttempts, DefaultMaxAttempts)
	}
	if s.Push.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("ReconnectDelay = %v, want %v", s.Push.ReconnectDelay, DefaultReconnectDelay)
	}
	if s.Sync.RefreshDelay != DefaultRefreshDelay {
		t.Errorf("RefreshDelay = %v, want %v", s.Sync.RefreshDelay, DefaultRefreshDelay)
	}
	if s.Cache.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", s.Cache.Backend, BackendFile)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	s := DefaultSettings()
	s.Device.Host = "192.168.1.50"
	s.Sync.PollInterval = 20 * time.Second
	s.MQTT.Broker = "tcp://broker:1883"
	s.MQTT.Password = "secret"

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("saved settings must not contain the MQTT password")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Device.Host != "192.168.1.50" {
		t.Errorf("Host = %q", loaded.Device.Host)
	}
	if loaded.Sync.PollInterval != 20*time.Second {
		t.Errorf("PollInterval = %v", loaded.Sync.PollInterval)
	}
	if loaded.Sync.RefreshDelay != DefaultRefreshDelay {
		t.Errorf("RefreshDelay = %v, want default", loaded.Sync.RefreshDelay)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\ndevice:\n  host: dmx.local\npush:\n  max_attempts: 2\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Push.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", s.Push.MaxAttempts)
	}
	if s.Push.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("ReconnectDelay = %v, want default", s.Push.ReconnectDelay)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject an unsupported version")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\ndevice:\n  host: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DMXSYNC_HOST", "from-env")
	t.Setenv("DMXSYNC_POLL_INTERVAL", "5s")
	t.Setenv("DMXSYNC_CACHE_BACKEND", "memory")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Device.Host != "from-env" {
		t.Errorf("Host = %q, want from-env", s.Device.Host)
	}
	if s.Sync.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", s.Sync.PollInterval)
	}
	if s.Cache.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", s.Cache.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero poll interval", func(s *Settings) { s.Sync.PollInterval = 0 }, true},
		{"negative attempts", func(s *Settings) { s.Push.MaxAttempts = -1 }, true},
		{"zero attempts allowed", func(s *Settings) { s.Push.MaxAttempts = 0 }, false},
		{"unknown backend", func(s *Settings) { s.Cache.Backend = "etcd" }, true},
		{"redis without addr", func(s *Settings) { s.Cache.Backend = BackendRedis }, true},
		{"redis with addr", func(s *Settings) {
			s.Cache.Backend = BackendRedis
			s.Cache.RedisAddr = "localhost:6379"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("Validate() error should wrap ErrInvalidSettings, got %v", err)
			}
		})
	}
}

func TestURLs(t *testing.T) {
	tests := []struct {
		host     string
		tls      bool
		wantBase string
		wantPush string
	}{
		{"192.168.1.50", false, "http://192.168.1.50", "ws://192.168.1.50/ws"},
		{"dmx.local:8080", false, "http://dmx.local:8080", "ws://dmx.local:8080/ws"},
		{"http://dmx.local/", false, "http://dmx.local", "ws://dmx.local/ws"},
		{"dmx.local", true, "https://dmx.local", "wss://dmx.local/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			s := DefaultSettings()
			s.Device.Host = tt.host
			s.Device.TLS = tt.tls
			if got := s.BaseURL(); got != tt.wantBase {
				t.Errorf("BaseURL() = %q, want %q", got, tt.wantBase)
			}
			if got := s.PushURL(); got != tt.wantPush {
				t.Errorf("PushURL() = %q, want %q", got, tt.wantPush)
			}
		})
	}
}
