// ABOUTME: Rocketry configuration loaded from defaults, a YAML file and the environment.
// ABOUTME: Loaded once at startup, validated, then passed explicitly to constructors.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/rocketry/internal/storage"
	"github.com/harperreed/rocketry/internal/validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config stores rocketry configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Worker   WorkerConfig   `koanf:"worker" yaml:"worker"`
	Logging  LoggingConfig  `koanf:"logging" yaml:"logging"`
	Backup   BackupConfig   `koanf:"backup" yaml:"backup"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	// Path supports ~ expansion. Defaults to $XDG_DATA_HOME/rocketry/rocketry.db.
	Path string `koanf:"path" yaml:"path" validate:"required"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host" yaml:"host"`
	Port            int           `koanf:"port" yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	MaxUploadMB     int64         `koanf:"max_upload_mb" yaml:"max_upload_mb" validate:"min=1"`
	CORSOrigins     []string      `koanf:"cors_origins" yaml:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
}

// WorkerConfig sizes the blocking-work pool.
type WorkerConfig struct {
	PoolSize int `koanf:"pool_size" yaml:"pool_size" validate:"min=1,max=256"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller" yaml:"caller"`
}

// BackupConfig configures the Charm KV backup target.
type BackupConfig struct {
	// Host overrides the Charm server; empty uses the charm client default.
	Host string `koanf:"host" yaml:"host"`
	// DBName is the KV database name on the Charm server.
	DBName string `koanf:"db_name" yaml:"db_name" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: storage.DefaultDBPath()},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadMB:     32,
			CORSOrigins:     []string{"*"},
			RateLimit:       120,
		},
		Worker:  WorkerConfig{PoolSize: 8},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Backup:  BackupConfig{DBName: "rocketry"},
	}
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the database path with ~ expanded.
func (c *Config) DBPath() string {
	if c.Database.Path == "" {
		return storage.DefaultDBPath()
	}
	return ExpandPath(c.Database.Path)
}

// Validate checks field rules.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "rocketry", "config.yaml")
}

// Load layers defaults, the YAML file at path (or the default path when
// empty) and environment variables, in that order of precedence.
// A missing default file is fine; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}

	// DATABASE_SQLITE loads first so ROCKETRY_DB_PATH overrides it when both are set.
	if err := k.Load(env.Provider("", ".", legacyEnvTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// envKeys maps environment variables to config paths.
var envKeys = map[string]string{
	"rocketry_db_path":          "database.path",
	"rocketry_host":             "server.host",
	"rocketry_port":             "server.port",
	"rocketry_read_timeout":     "server.read_timeout",
	"rocketry_write_timeout":    "server.write_timeout",
	"rocketry_shutdown_timeout": "server.shutdown_timeout",
	"rocketry_max_upload_mb":    "server.max_upload_mb",
	"rocketry_cors_origins":     "server.cors_origins",
	"rocketry_rate_limit":       "server.rate_limit",
	"rocketry_workers":          "worker.pool_size",
	"rocketry_log_level":        "logging.level",
	"rocketry_log_format":       "logging.format",
	"rocketry_log_caller":       "logging.caller",
	"rocketry_charm_host":       "backup.host",
	"rocketry_backup_db":        "backup.db_name",
}

// legacyEnvTransformFunc maps only the DATABASE_SQLITE variable.
func legacyEnvTransformFunc(key string) string {
	if strings.EqualFold(key, "DATABASE_SQLITE") {
		return "database.path"
	}
	return ""
}

// envTransformFunc returns "" for variables that are not ours, which koanf skips.
func envTransformFunc(key string) string {
	return envKeys[strings.ToLower(key)]
}

// splitList turns a comma-separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
