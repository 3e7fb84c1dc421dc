package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "LINECHAT"
	envConfigDefaultPath = "LINECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

const defaultConfigHeader = "# linechat server configuration.\n" +
	"# Every key can be overridden with a LINECHAT_<KEY> environment variable.\n"

// Load resolves configuration and returns it with the file path it used.
// Precedence: defaults < config file < LINECHAT_* env vars. Callers apply
// flag overrides on top and validate again. A missing file is created with
// the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	path := resolveConfigPath(explicitPath)
	v := newViper(Default(), path)

	if err := readOrCreate(v, path, logger); err != nil {
		return Default(), path, err
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.OverflowPolicy = strings.ToLower(strings.TrimSpace(cfg.OverflowPolicy))

	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newViper registers every key with its default so that env vars apply to
// keys absent from the file.
func newViper(defaults Config, path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("http_addr", defaults.HTTPAddr)
	v.SetDefault("read_header_timeout", defaults.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)
	v.SetDefault("default_room", defaults.DefaultRoom)
	v.SetDefault("outbound_buffer", defaults.OutboundBuffer)
	v.SetDefault("overflow_policy", defaults.OverflowPolicy)
	v.SetDefault("history_limit", defaults.HistoryLimit)
	v.SetDefault("max_line_bytes", defaults.MaxLineBytes)
	v.SetDefault("messages_per_minute", defaults.MessagesPerMinute)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readOrCreate reads the config file. A missing file is written with the
// defaults; failing to write it is logged and the defaults still apply.
func readOrCreate(v *viper.Viper, path string, logger *zerolog.Logger) error {
	err := v.ReadInConfig()
	if err == nil {
		logger.Debug().Str("path", path).Msg("config file loaded")
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := writeDefaultConfig(path, Default()); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not write default config, using built-in defaults")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if base := os.Getenv(envConfigDefaultPath); base != "" {
		return filepath.Join(base, defaultConfigName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, defaultConfigName)
	}
	return defaultConfigName
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultConfigHeader), data...), 0o600)
}
