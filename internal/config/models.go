package config

import (
	"time"
)

// CurrentVersion is the settings file format version.
const CurrentVersion = 1

// Cache backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Defaults match the device web UI's timings.
const (
	DefaultPollInterval        = 15 * time.Second
	DefaultRefreshDelay        = 500 * time.Millisecond
	DefaultRequestTimeout      = 10 * time.Second
	DefaultReconnectDelay      = 3 * time.Second
	DefaultMaxAttempts         = 5
	DefaultPingInterval        = 30 * time.Second
	DefaultNotificationTimeout = 3 * time.Second
	DefaultNamePattern         = "ESP32-2DMX"
	DefaultTopicPrefix         = "dmxsync"
)

// Settings is the root of the settings file.
type Settings struct {
	Version  int            `yaml:"version"`
	Device   DeviceSettings `yaml:"device"`
	Sync     SyncSettings   `yaml:"sync"`
	Push     PushSettings   `yaml:"push"`
	Cache    CacheSettings  `yaml:"cache"`
	MQTT     MQTTSettings   `yaml:"mqtt"`
	UI       UISettings     `yaml:"ui"`
	LogLevel string         `yaml:"log_level,omitempty" env:"DMXSYNC_LOG_LEVEL"`
}

// DeviceSettings locates the controller.
type DeviceSettings struct {
	// Host is a hostname or IP, optionally with a port ("192.168.1.50", "dmx.local:8080")
	Host string `yaml:"host" env:"DMXSYNC_HOST"`

	// TLS switches to https:// and wss://
	TLS bool `yaml:"tls" env:"DMXSYNC_TLS"`

	// NamePattern filters mDNS instance names during discovery
	NamePattern string `yaml:"name_pattern" env:"DMXSYNC_NAME_PATTERN"`
}

// SyncSettings controls the config synchronizer.
type SyncSettings struct {
	PollInterval   time.Duration `yaml:"poll_interval" env:"DMXSYNC_POLL_INTERVAL"`
	RefreshDelay   time.Duration `yaml:"refresh_delay" env:"DMXSYNC_REFRESH_DELAY"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"DMXSYNC_REQUEST_TIMEOUT"`
}

// PushSettings controls the push channel client.
type PushSettings struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"DMXSYNC_RECONNECT_DELAY"`
	MaxAttempts    int           `yaml:"max_attempts" env:"DMXSYNC_MAX_ATTEMPTS"`
	PingInterval   time.Duration `yaml:"ping_interval" env:"DMXSYNC_PING_INTERVAL"`

	// RequestOnConnect sends get_config and get_status after every open
	RequestOnConnect bool `yaml:"request_on_connect" env:"DMXSYNC_REQUEST_ON_CONNECT"`
}

// CacheSettings selects where the last good configuration is kept.
type CacheSettings struct {
	Backend   string `yaml:"backend" env:"DMXSYNC_CACHE_BACKEND"`
	Dir       string `yaml:"dir,omitempty" env:"DMXSYNC_CACHE_DIR"`
	RedisAddr string `yaml:"redis_addr,omitempty" env:"DMXSYNC_REDIS_ADDR"`
	RedisDB   int    `yaml:"redis_db,omitempty" env:"DMXSYNC_REDIS_DB"`

	// Never written to disk.
	RedisPassword string `yaml:"-" env:"DMXSYNC_REDIS_PASSWORD"`
}

// MQTTSettings configures the optional status bridge. An empty Broker disables it.
type MQTTSettings struct {
	Broker      string `yaml:"broker,omitempty" env:"DMXSYNC_MQTT_BROKER"`
	ClientID    string `yaml:"client_id,omitempty" env:"DMXSYNC_MQTT_CLIENT_ID"`
	Username    string `yaml:"username,omitempty" env:"DMXSYNC_MQTT_USERNAME"`
	TopicPrefix string `yaml:"topic_prefix" env:"DMXSYNC_MQTT_TOPIC_PREFIX"`

	// Never written to disk.
	Password string `yaml:"-" env:"DMXSYNC_MQTT_PASSWORD"`
}

// UISettings controls the dashboard.
type UISettings struct {
	NotificationTimeout time.Duration `yaml:"notification_timeout" env:"DMXSYNC_NOTIFICATION_TIMEOUT"`
}

// DefaultSettings returns settings populated with defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Version: CurrentVersion,
		Device: DeviceSettings{
			NamePattern: DefaultNamePattern,
		},
		Sync: SyncSettings{
			PollInterval:   DefaultPollInterval,
			RefreshDelay:   DefaultRefreshDelay,
			RequestTimeout: DefaultRequestTimeout,
		},
		Push: PushSettings{
			ReconnectDelay: DefaultReconnectDelay,
			MaxAttempts:    DefaultMaxAttempts,
			PingInterval:   DefaultPingInterval,
		},
		Cache: CacheSettings{
			Backend: BackendFile,
		},
		MQTT: MQTTSettings{
			TopicPrefix: DefaultTopicPrefix,
		},
		UI: UISettings{
			NotificationTimeout: DefaultNotificationTimeout,
		},
	}
}
