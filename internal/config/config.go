// Package config implements the layered configuration (file + env +
// defaults) backing cmd/abacctl and any embedder of this engine,
// adapted from the teacher's serv/config.go viper/afero pattern and
// trimmed to this engine's much smaller surface: no HTTP, auth, CORS
// or rate-limiter fields, since those concerns are Non-goals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config is the engine's full configuration.
type Config struct {
	// LogLevel must be one of debug, error, warn, info.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "auto" (console in dev, JSON in production), "json",
	// or "console".
	LogFormat string `mapstructure:"log_format"`

	// Production selects JSON logging when LogFormat is "auto".
	Production bool `mapstructure:"production"`

	DB       Database       `mapstructure:"database"`
	Manifest ManifestConfig `mapstructure:"manifest"`

	configPath string
	viper      *viper.Viper
}

// Database configures the Rule Store's Postgres/PostGIS connection.
type Database struct {
	ConnString string `mapstructure:"connection_string"`
	Host       string `mapstructure:"host"`
	Port       uint16 `mapstructure:"port"`
	DBName     string `mapstructure:"db_name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`

	// PoolSize is the target number of pooled connections.
	PoolSize int `mapstructure:"pool_size"`

	// MaxConnLifeTime bounds how long a connection is reused before
	// being recycled.
	MaxConnLifeTime time.Duration `mapstructure:"max_connection_life_time"`

	// MaxConnIdleTime closes idle pooled connections after this long.
	MaxConnIdleTime time.Duration `mapstructure:"max_connection_idle_time"`

	EnableTLS  bool   `mapstructure:"enable_tls"`
	ServerName string `mapstructure:"server_name"`
	ServerCert string `mapstructure:"server_cert"`
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
}

// ManifestConfig configures `abacctl generate`.
type ManifestConfig struct {
	// Realm is the realm name `abacctl generate` exports.
	Realm string `mapstructure:"realm"`

	// OutputFormat is "yaml" or "json".
	OutputFormat string `mapstructure:"output_format"`

	// Gzip is decoded from config but not read by `abacctl generate`,
	// which always writes uncompressed output.
	Gzip bool `mapstructure:"gzip"`

	// Indent is decoded from config but not read by `abacctl generate`;
	// its --indent flag sets the JSON indent width.
	Indent int `mapstructure:"indent"`
}

// ReadInConfig reads the config file at configFile, applying
// ABAC_-prefixed environment overrides on top.
func ReadInConfig(configFile string) (*Config, error) {
	return readInConfig(configFile, nil)
}

// ReadInConfigFS is ReadInConfig against an explicit afero filesystem,
// used by tests to avoid touching the real filesystem.
func ReadInConfigFS(configFile string, fs afero.Fs) (*Config, error) {
	return readInConfig(configFile, fs)
}

func readInConfig(configFile string, fs afero.Fs) (*Config, error) {
	cp := filepath.Dir(configFile)
	vi := newViper(cp, filepath.Base(configFile))
	if fs != nil {
		vi.SetFs(fs)
	}

	if err := vi.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configFile, err)
	}

	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "ABAC_") {
			continue
		}
		kv := strings.SplitN(e, "=", 2)
		key := strings.ToLower(strings.TrimPrefix(kv[0], "ABAC_"))
		key = strings.ReplaceAll(key, "_", ".")
		if len(kv) == 2 {
			vi.Set(key, kv[1])
		}
	}

	cfg := &Config{viper: vi, configPath: cp}
	if err := vi.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

func newViper(configPath, configFile string) *viper.Viper {
	vi := viper.New()

	vi.SetDefault("log_level", "info")
	vi.SetDefault("log_format", "auto")
	vi.SetDefault("production", false)

	vi.SetDefault("database.host", "localhost")
	vi.SetDefault("database.port", 5432)
	vi.SetDefault("database.user", "postgres")
	vi.SetDefault("database.pool_size", 10)
	vi.SetDefault("database.max_connection_life_time", time.Hour)
	vi.SetDefault("database.max_connection_idle_time", 30*time.Minute)

	vi.SetDefault("manifest.output_format", "yaml")
	vi.SetDefault("manifest.gzip", false)
	vi.SetDefault("manifest.indent", 2)

	vi.BindEnv("database.host", "ABAC_DB_HOST")         //nolint:errcheck
	vi.BindEnv("database.password", "ABAC_DB_PASSWORD") //nolint:errcheck

	vi.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))
	if configPath == "" {
		vi.AddConfigPath(".")
	} else {
		vi.AddConfigPath(configPath)
	}
	return vi
}

// AbsolutePath resolves p relative to the directory the config file
// was loaded from.
func (c *Config) AbsolutePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configPath, p)
}

// ShouldUseJSONLogs mirrors the teacher's auto/json/console log-format
// resolution.
func (c *Config) ShouldUseJSONLogs() bool {
	if c.LogFormat == "json" {
		return true
	}
	return c.LogFormat == "auto" && c.Production
}
