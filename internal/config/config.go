package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/profile"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL       time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
}

// PresenceConfig tunes the real-time presence channel.
type PresenceConfig struct {
	ClientBuffer     int    `mapstructure:"client_buffer" yaml:"client_buffer"`
	MaxMessageBytes  int64  `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	EchoToSender     bool   `mapstructure:"echo_to_sender" yaml:"echo_to_sender"`
	DisconnectPolicy string `mapstructure:"disconnect_policy" yaml:"disconnect_policy"`
}

// ProfileConfig selects and tunes the profile source used for avatar enrichment.
type ProfileConfig struct {
	Source             string        `mapstructure:"source" yaml:"source"`
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxInflight        int           `mapstructure:"max_inflight" yaml:"max_inflight"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout" yaml:"breaker_open_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "wiremap.db",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "wiremap",
		JWTAudience:       "wiremap-clients",
		JWTTTL:            24 * time.Hour,
		Presence: PresenceConfig{
			ClientBuffer:     64,
			MaxMessageBytes:  4096,
			EchoToSender:     true,
			DisconnectPolicy: string(presence.PolicyRemove),
		},
		Profile: ProfileConfig{
			Source:             profile.SourceSQLite,
			Timeout:            3 * time.Second,
			MaxInflight:        64,
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the fields exposed as command line flags are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Validate reports configuration values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.Presence.ClientBuffer <= 0 {
		errs = append(errs, fmt.Errorf("presence.client_buffer must be positive, got %d", c.Presence.ClientBuffer))
	}
	if c.Presence.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("presence.max_message_bytes must be positive, got %d", c.Presence.MaxMessageBytes))
	}
	if _, err := presence.ParsePolicy(c.Presence.DisconnectPolicy); err != nil {
		errs = append(errs, fmt.Errorf("presence.disconnect_policy: %w", err))
	}
	if err := profile.ValidateSource(c.Profile.Source); err != nil {
		errs = append(errs, fmt.Errorf("profile.source: %w", err))
	}
	if c.Profile.Source == profile.SourceHTTP && c.Profile.BaseURL == "" {
		errs = append(errs, errors.New("profile.base_url is required when profile.source is http"))
	}
	if c.Profile.Timeout < 0 {
		errs = append(errs, errors.New("profile.timeout must not be negative"))
	}
	if c.Profile.MaxInflight <= 0 {
		errs = append(errs, fmt.Errorf("profile.max_inflight must be positive, got %d", c.Profile.MaxInflight))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	return errors.Join(errs...)
}
