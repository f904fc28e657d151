package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "dmxsync"
	configFile = "config.yaml"
)

// ErrInvalidSettings is wrapped by every Validate failure.
var ErrInvalidSettings = errors.New("invalid settings")

// fileMutex serializes writes to the settings file.
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/dmxsync or $HOME/.config/dmxsync
//   - macOS: $HOME/.config/dmxsync
//   - Windows: %LOCALAPPDATA%\dmxsync
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the settings file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// DefaultCacheDir is where the file cache backend writes when Cache.Dir is empty.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		configDir, cerr := GetConfigDir()
		if cerr != nil {
			return "", fmt.Errorf("cannot determine cache directory: %w", err)
		}
		return filepath.Join(configDir, "cache"), nil
	}
	return filepath.Join(dir, appName), nil
}

// Load reads settings from path, applies environment overrides and validates
// the result. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings file: %w", err)
		}
		if s.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported settings version: %d (expected %d)", s.Version, CurrentVersion)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadDefault loads settings from GetConfigPath.
func LoadDefault() (*Settings, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings path: %w", err)
	}
	return Load(path)
}

// ApplyEnv overrides fields from DMXSYNC_* environment variables.
func (s *Settings) ApplyEnv() error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks that intervals are positive and the cache backend is known.
func (s *Settings) Validate() error {
	var problems []string
	if s.Sync.PollInterval <= 0 {
		problems = append(problems, "sync.poll_interval must be positive")
	}
	if s.Sync.RefreshDelay < 0 {
		problems = append(problems, "sync.refresh_delay must not be negative")
	}
	if s.Sync.RequestTimeout <= 0 {
		problems = append(problems, "sync.request_timeout must be positive")
	}
	if s.Push.ReconnectDelay <= 0 {
		problems = append(problems, "push.reconnect_delay must be positive")
	}
	if s.Push.MaxAttempts < 0 {
		problems = append(problems, "push.max_attempts must not be negative")
	}
	switch s.Cache.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if s.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache backend %q", s.Cache.Backend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the settings to path atomically.
func (s *Settings) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	header := []byte(`# dmxsync settings
# Passwords for Redis and MQTT are read from DMXSYNC_REDIS_PASSWORD and
# DMXSYNC_MQTT_PASSWORD and are never written here.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings file: %w", err)
	}
	return nil
}

// BaseURL is the REST root of the device, e.g. "http://192.168.1.50".
func (s *Settings) BaseURL() string {
	scheme := "http"
	if s.Device.TLS {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: s.hostOnly()}).String()
}

// PushURL is the websocket endpoint of the device, e.g. "ws://192.168.1.50/ws".
func (s *Settings) PushURL() string {
	scheme := "ws"
	if s.Device.TLS {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: s.hostOnly(), Path: "/ws"}).String()
}

// hostOnly tolerates a host pasted with a scheme or trailing slash.
func (s *Settings) hostOnly() string {
	h := strings.TrimSpace(s.Device.Host)
	for _, prefix := range []string{"http://", "https://", "ws://", "wss://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	return strings.TrimRight(h, "/")
}
