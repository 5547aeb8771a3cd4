// Package config loads the server and validator configuration from YAML or
// from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gofhir/conformance/definitions"
	"github.com/gofhir/conformance/profile"
)

// Config holds all configuration for the conformance server.
type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Definitions  definitions.StoreConfig `yaml:"definitions"`
	ProfileLayer profile.Config          `yaml:"profile_layer"`
	Engine       EngineConfig            `yaml:"engine"`
	Logging      LoggingConfig           `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig tunes the validator.
type EngineConfig struct {
	SchemaCacheSize int `yaml:"schema_cache_size"`
	Workers         int `yaml:"workers"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Definitions: definitions.StoreConfig{
			Dir:   "resources/fhir_base",
			IGDir: "resources/ig",
		},
		ProfileLayer: profile.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. Environment variables in the
// file are expanded; settings the file leaves out keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults(Default())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from FHIR_CONFORMANCE_* environment variables.
func LoadFromEnv() *Config {
	def := Default()
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("FHIR_CONFORMANCE_HOST", def.Server.Host),
			Port:         getEnvInt("FHIR_CONFORMANCE_PORT", def.Server.Port),
			ReadTimeout:  getEnvDuration("FHIR_CONFORMANCE_READ_TIMEOUT", def.Server.ReadTimeout),
			WriteTimeout: getEnvDuration("FHIR_CONFORMANCE_WRITE_TIMEOUT", def.Server.WriteTimeout),
			CORSOrigins:  getEnvList("FHIR_CONFORMANCE_CORS_ORIGINS", def.Server.CORSOrigins),
		},
		Definitions: definitions.StoreConfig{
			Dir:   getEnv("FHIR_CONFORMANCE_DEFINITIONS_DIR", def.Definitions.Dir),
			IGDir: getEnv("FHIR_CONFORMANCE_IG_DIR", def.Definitions.IGDir),
		},
		ProfileLayer: def.ProfileLayer,
		Engine: EngineConfig{
			SchemaCacheSize: getEnvInt("FHIR_CONFORMANCE_SCHEMA_CACHE_SIZE", 0),
			Workers:         getEnvInt("FHIR_CONFORMANCE_WORKERS", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("FHIR_CONFORMANCE_LOG_LEVEL", def.Logging.Level),
			Format: getEnv("FHIR_CONFORMANCE_LOG_FORMAT", def.Logging.Format),
		},
	}
	cfg.ProfileLayer.BaseURL = getEnv("FHIR_CONFORMANCE_PROFILE_BASE_URL", def.ProfileLayer.BaseURL)
	cfg.ProfileLayer.Country = getEnv("FHIR_CONFORMANCE_COUNTRY", def.ProfileLayer.Country)
	cfg.ProfileLayer.RequiredExtensions = profile.DefaultRequiredExtensions(cfg.ProfileLayer.BaseURL)
	return cfg
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Engine.SchemaCacheSize < 0 {
		return fmt.Errorf("invalid schema cache size %d", c.Engine.SchemaCacheSize)
	}
	return nil
}

func (c *Config) applyDefaults(def *Config) {
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if c.Definitions.Dir == "" {
		c.Definitions.Dir = def.Definitions.Dir
	}

	pl, dpl := &c.ProfileLayer, def.ProfileLayer
	if pl.BaseURL == "" {
		pl.BaseURL = dpl.BaseURL
	}
	if pl.Profiles == nil {
		pl.Profiles = dpl.Profiles
	}
	if pl.Country == "" {
		pl.Country = dpl.Country
	}
	if pl.RequiredExtensions == nil {
		pl.RequiredExtensions = profile.DefaultRequiredExtensions(pl.BaseURL)
	}
	if pl.IdentifierRules == nil {
		pl.IdentifierRules = dpl.IdentifierRules
	}
	if pl.BindingConventions == nil {
		pl.BindingConventions = dpl.BindingConventions
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
