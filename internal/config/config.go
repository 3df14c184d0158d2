package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-groups/internal/logger"
)

// Config holds the settings shared by alarm-scheduler and alarm-ctl.
type Config struct {
	// ServerAddress is the gRPC address the scheduler listens on and clients dial.
	ServerAddress string `yaml:"server_addr"`
	// DisplayPeriod is the pause between two display passes of a group worker.
	DisplayPeriod time.Duration `yaml:"display_period"`
	// ReaperPeriod is the pause between two expiry scans.
	ReaperPeriod time.Duration `yaml:"reaper_period"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of log lines, "info" when empty.
	LogLevel string `yaml:"log_level"`
	// LogFile is an optional strftime pattern of rotated JSON log files, e.g. "alarm-scheduler-%Y-%m-%d.log".
	LogFile string `yaml:"log_file,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-scheduler-settings.yaml"

	// DefaultServerAddress is used when no address is configured.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultDisplayPeriod is the default pause between display passes.
	DefaultDisplayPeriod = 5 * time.Second

	// DefaultReaperPeriod is the default pause between expiry scans.
	DefaultReaperPeriod = time.Second

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is the default minimum log level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns settings with every field set to its default.
func Default() *Config {
	return &Config{
		ServerAddress: DefaultServerAddress,
		DisplayPeriod: DefaultDisplayPeriod,
		ReaperPeriod:  DefaultReaperPeriod,
		Timeout:       DefaultTimeout,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	isDefaultPath := path == "" || path == DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if isDefaultPath && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for empty fields.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.DisplayPeriod <= 0 {
		settings.DisplayPeriod = DefaultDisplayPeriod
	}

	if settings.ReaperPeriod <= 0 {
		settings.ReaperPeriod = DefaultReaperPeriod
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	return nil
}
