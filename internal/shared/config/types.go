package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Enabled toggles the read-through session cache in front of the store.
	Enabled bool `mapstructure:"enabled"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SecurityConfig drives the request security pipeline: session lifecycle,
// route classification, and the response header policy.
type SecurityConfig struct {
	SessionDurationHours int `mapstructure:"session_duration_hours"`
	TokenRotationMinutes int `mapstructure:"token_rotation_minutes"`
	StoreTimeoutSeconds  int `mapstructure:"store_timeout_seconds"`
	SessionSweepMinutes  int `mapstructure:"session_sweep_minutes"`

	PublicRoutes    []string `mapstructure:"public_routes"`
	SensitiveRoutes []string `mapstructure:"sensitive_routes"`

	ContentSecurityPolicy   string `mapstructure:"content_security_policy"`
	StrictTransportSecurity string `mapstructure:"strict_transport_security"`
	PermissionsPolicy       string `mapstructure:"permissions_policy"`
}

func (s *SecurityConfig) SessionDuration() time.Duration {
	return time.Duration(s.SessionDurationHours) * time.Hour
}

func (s *SecurityConfig) TokenRotationInterval() time.Duration {
	return time.Duration(s.TokenRotationMinutes) * time.Minute
}

func (s *SecurityConfig) StoreTimeout() time.Duration {
	return time.Duration(s.StoreTimeoutSeconds) * time.Second
}

func (s *SecurityConfig) SessionSweepInterval() time.Duration {
	return time.Duration(s.SessionSweepMinutes) * time.Minute
}
