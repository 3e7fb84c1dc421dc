package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DefaultRoom       string `mapstructure:"default_room" yaml:"default_room"`
	OutboundBuffer    int    `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`
	OverflowPolicy    string `mapstructure:"overflow_policy" yaml:"overflow_policy"`
	HistoryLimit      int    `mapstructure:"history_limit" yaml:"history_limit"`
	MaxLineBytes      int    `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	MessagesPerMinute int    `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3333",
		HTTPAddr:          ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DefaultRoom:       "general",
		OutboundBuffer:    64,
		OverflowPolicy:    "drop",
		HistoryLimit:      50,
		MaxLineBytes:      4096,
		MessagesPerMinute: 0,
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DefaultRoom != "" {
		c.DefaultRoom = other.DefaultRoom
	}
	if other.OutboundBuffer != 0 {
		c.OutboundBuffer = other.OutboundBuffer
	}
	if other.OverflowPolicy != "" {
		c.OverflowPolicy = other.OverflowPolicy
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if strings.TrimSpace(c.DefaultRoom) == "" {
		errs = append(errs, errors.New("default_room must not be empty"))
	}
	if c.OutboundBuffer <= 0 {
		errs = append(errs, fmt.Errorf("outbound_buffer must be positive, got %d", c.OutboundBuffer))
	}
	switch strings.ToLower(strings.TrimSpace(c.OverflowPolicy)) {
	case "", "drop", "disconnect":
	default:
		errs = append(errs, fmt.Errorf("unknown overflow_policy %q", c.OverflowPolicy))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit))
	}
	if c.MaxLineBytes < 64 {
		errs = append(errs, fmt.Errorf("max_line_bytes must be at least 64, got %d", c.MaxLineBytes))
	}
	if c.MessagesPerMinute < 0 {
		errs = append(errs, fmt.Errorf("messages_per_minute must not be negative, got %d", c.MessagesPerMinute))
	}
	if c.ShutdownTimeout < 0 || c.ReadHeaderTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}

	return errors.Join(errs...)
}
