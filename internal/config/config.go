package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// DatabasePath enables durability; empty keeps rooms in memory only.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	RestoreLimit int    `mapstructure:"restore_limit" yaml:"restore_limit"`

	QueueSize          int `mapstructure:"queue_size" yaml:"queue_size"`
	CatchUpLimit       int `mapstructure:"catch_up_limit" yaml:"catch_up_limit"`
	ReadLimit          int `mapstructure:"read_limit" yaml:"read_limit"`
	MaxMessagesPerRoom int `mapstructure:"max_messages_per_room" yaml:"max_messages_per_room"`

	// IdleRoomTTL enables the idle-room reaper when positive.
	IdleRoomTTL  time.Duration `mapstructure:"idle_room_ttl" yaml:"idle_room_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   64 << 10,
		AllowedOrigins:    []string{"*"},
		DatabasePath:      "chats.db",
		RestoreLimit:      500,
		QueueSize:         64,
		CatchUpLimit:      64,
		ReadLimit:         500,
		ReapInterval:      time.Minute,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
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
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RestoreLimit != 0 {
		c.RestoreLimit = other.RestoreLimit
	}
	if other.QueueSize != 0 {
		c.QueueSize = other.QueueSize
	}
	if other.CatchUpLimit != 0 {
		c.CatchUpLimit = other.CatchUpLimit
	}
	if other.ReadLimit != 0 {
		c.ReadLimit = other.ReadLimit
	}
	if other.MaxMessagesPerRoom != 0 {
		c.MaxMessagesPerRoom = other.MaxMessagesPerRoom
	}
	if other.IdleRoomTTL != 0 {
		c.IdleRoomTTL = other.IdleRoomTTL
	}
	if other.ReapInterval != 0 {
		c.ReapInterval = other.ReapInterval
	}
}
