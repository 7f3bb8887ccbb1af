// Package config loads the gateway configuration from the environment.
// Every option is enumerated here with its default; nothing else reads
// os.Getenv directly.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the listen addresses for both planes.
type ServerConfig struct {
	Host     string
	WSPort   int
	RPCPort  int
	WSPath   string
	LogLevel string
}

// AuthConfig holds token verification settings. PublicKey is a PEM file
// path (RS256); HMACSecret is the development fallback (HS256). One of
// the two must be set.
type AuthConfig struct {
	PublicKey        string
	HMACSecret       string
	EStopReleaseRole string
}

// SafetyConfig holds safety pipeline tunables.
type SafetyConfig struct {
	MaxLinearVel        float64
	MaxAngularVel       float64
	LockTTLSec          int
	WatchdogIntervalMS  int
	HeartbeatTimeoutMS  int
	ReleaseLocksOnClose bool
}

// ForwarderConfig holds the recording forwarder settings.
type ForwarderConfig struct {
	RecorderAddr  string
	BufferSize    int
	FlushInterval time.Duration
}

// AdapterConfig holds adapter transport deadlines.
type AdapterConfig struct {
	ConnectTimeout       time.Duration
	SendTimeout          time.Duration
	EStopTimeout         time.Duration
	ReconnectMaxBackoff  time.Duration
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Safety    SafetyConfig
	Forwarder ForwarderConfig
	Adapter   AdapterConfig
	RedisURL  string
	RateLimitPerMin int
	Debug     bool

	// MockRobots is a comma separated list of robot ids to bring up on
	// the built-in mock adapter. Used for demos and local development.
	MockRobots string
}

// LockTTL returns the operation lock TTL as a duration.
func (s SafetyConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSec) * time.Second
}

// WatchdogInterval returns the watchdog tick period.
func (s SafetyConfig) WatchdogInterval() time.Duration {
	return time.Duration(s.WatchdogIntervalMS) * time.Millisecond
}

// HeartbeatTimeout returns the offline threshold.
func (s SafetyConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(s.HeartbeatTimeoutMS) * time.Millisecond
}

// Load reads the configuration from the environment with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("WS_HOST", "0.0.0.0")
	v.SetDefault("WS_PORT", 8082)
	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("RPC_PORT", 50051)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("AUTH_PUBLIC_KEY", "")
	v.SetDefault("AUTH_HMAC_SECRET", "")
	v.SetDefault("ESTOP_RELEASE_ROLE", "viewer")

	v.SetDefault("MAX_LINEAR_VEL", 1.0)
	v.SetDefault("MAX_ANGULAR_VEL", 2.0)
	v.SetDefault("LOCK_TTL_SEC", 300)
	v.SetDefault("WATCHDOG_INTERVAL_MS", 500)
	v.SetDefault("HEARTBEAT_TIMEOUT_MS", 15000)
	v.SetDefault("RELEASE_LOCKS_ON_CLOSE", false)

	v.SetDefault("RECORDER_ADDR", "recorder:50052")
	v.SetDefault("FORWARDER_BUFFER", 500)
	v.SetDefault("FORWARDER_FLUSH_MS", 1000)

	v.SetDefault("ADAPTER_CONNECT_TIMEOUT_SEC", 10)
	v.SetDefault("ADAPTER_SEND_TIMEOUT_SEC", 2)
	v.SetDefault("ADAPTER_ESTOP_TIMEOUT_SEC", 1)
	v.SetDefault("RECONNECT_MAX_BACKOFF_SEC", 30)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("DEBUG", false)
	v.SetDefault("MOCK_ROBOTS", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:     v.GetString("WS_HOST"),
			WSPort:   v.GetInt("WS_PORT"),
			WSPath:   v.GetString("WS_PATH"),
			RPCPort:  v.GetInt("RPC_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			PublicKey:        v.GetString("AUTH_PUBLIC_KEY"),
			HMACSecret:       v.GetString("AUTH_HMAC_SECRET"),
			EStopReleaseRole: v.GetString("ESTOP_RELEASE_ROLE"),
		},
		Safety: SafetyConfig{
			MaxLinearVel:        v.GetFloat64("MAX_LINEAR_VEL"),
			MaxAngularVel:       v.GetFloat64("MAX_ANGULAR_VEL"),
			LockTTLSec:          v.GetInt("LOCK_TTL_SEC"),
			WatchdogIntervalMS:  v.GetInt("WATCHDOG_INTERVAL_MS"),
			HeartbeatTimeoutMS:  v.GetInt("HEARTBEAT_TIMEOUT_MS"),
			ReleaseLocksOnClose: v.GetBool("RELEASE_LOCKS_ON_CLOSE"),
		},
		Forwarder: ForwarderConfig{
			RecorderAddr:  v.GetString("RECORDER_ADDR"),
			BufferSize:    v.GetInt("FORWARDER_BUFFER"),
			FlushInterval: time.Duration(v.GetInt("FORWARDER_FLUSH_MS")) * time.Millisecond,
		},
		Adapter: AdapterConfig{
			ConnectTimeout:      time.Duration(v.GetInt("ADAPTER_CONNECT_TIMEOUT_SEC")) * time.Second,
			SendTimeout:         time.Duration(v.GetInt("ADAPTER_SEND_TIMEOUT_SEC")) * time.Second,
			EStopTimeout:        time.Duration(v.GetInt("ADAPTER_ESTOP_TIMEOUT_SEC")) * time.Second,
			ReconnectMaxBackoff: time.Duration(v.GetInt("RECONNECT_MAX_BACKOFF_SEC")) * time.Second,
		},
		RedisURL:        v.GetString("REDIS_URL"),
		RateLimitPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
		Debug:           v.GetBool("DEBUG"),
		MockRobots:      v.GetString("MOCK_ROBOTS"),
	}

	if cfg.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.WSPort <= 0 || c.Server.WSPort > 65535 {
		return fmt.Errorf("invalid WS_PORT %d", c.Server.WSPort)
	}
	if c.Server.RPCPort <= 0 || c.Server.RPCPort > 65535 {
		return fmt.Errorf("invalid RPC_PORT %d", c.Server.RPCPort)
	}
	if c.Forwarder.BufferSize <= 0 {
		return fmt.Errorf("FORWARDER_BUFFER must be positive, got %d", c.Forwarder.BufferSize)
	}
	if c.Safety.MaxLinearVel <= 0 || c.Safety.MaxAngularVel <= 0 {
		return fmt.Errorf("velocity limits must be positive")
	}
	return nil
}
