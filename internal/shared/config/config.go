package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"linerelay/internal/shared/types"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	minReadBufferSize    = 16
	defaultStatsInterval = 2
)

// Default returns the configuration used when no ini file is present.
func Default() *types.Config {
	return &types.Config{
		RelayConf: types.RelayConf{
			BindAddress:    "0.0.0.0",
			Port:           4509,
			Framing:        types.FramingLine,
			ReadBufferSize: 1024,
		},
		LogConf: types.LogConf{Level: "info"},
		WebConf: types.WebConf{StatsInterval: defaultStatsInterval},
	}
}

// LoadIni 加载 relay.ini 行为配置文件。
// Keys absent from the file keep the value already in cfg, and a missing
// file leaves cfg untouched. Environment overrides are applied afterwards.
func LoadIni(cfg *types.Config, fileName string) error {
	if fileName != "" {
		iniFile, err := ini.Load(fileName)
		switch {
		case err == nil:
			if err := iniFile.MapTo(cfg); err != nil {
				return fmt.Errorf("failed to map %s: %w", fileName, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("failed to load %s: %w", fileName, err)
		}
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = defaultStatsInterval
	}
	overrideFromEnvString(&cfg.RelayConf.BindAddress, "RELAY_BIND_ADDRESS")
	if err := overrideFromEnvInt(&cfg.RelayConf.Port, "RELAY_PORT"); err != nil {
		return err
	}
	overrideFromEnvString(&cfg.LogConf.Level, "RELAY_LOG_LEVEL")
	return overrideFromEnvInt(&cfg.WebConf.WebPort, "RELAY_WEB_PORT")
}

// Validate reports the first setting that the relay cannot run with.
func Validate(cfg *types.Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.WebPort < 0 || cfg.WebPort > 65535 {
		return fmt.Errorf("%w: web_port %d out of range", ErrInvalidConfig, cfg.WebPort)
	}
	switch cfg.Framing {
	case types.FramingLine, types.FramingChunk:
	default:
		return fmt.Errorf("%w: unknown framing %q", ErrInvalidConfig, cfg.Framing)
	}
	if cfg.ReadBufferSize < minReadBufferSize {
		return fmt.Errorf("%w: read_buffer_size must be at least %d", ErrInvalidConfig, minReadBufferSize)
	}
	if cfg.MaxConnections < 0 {
		return fmt.Errorf("%w: max_connections must not be negative", ErrInvalidConfig)
	}
	if cfg.WebPort > 0 && cfg.StatsInterval <= 0 {
		return fmt.Errorf("%w: stats_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func overrideFromEnvInt(target *int, envName string) error {
	envValue := os.Getenv(envName)
	if envValue == "" {
		return nil
	}
	intValue, err := strconv.Atoi(envValue)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, envName, envValue)
	}
	*target = intValue
	return nil
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
