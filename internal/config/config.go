package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config 应用配置
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Source      SourceConfig      `koanf:"source"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port        string        `koanf:"port" validate:"required"`
	Mode        string        `koanf:"mode" validate:"oneof=debug release test"`
	RateLimit   float64       `koanf:"rate_limit" validate:"min=0"` // Requests per second per IP, 0 disables
	RateBurst   int           `koanf:"rate_burst" validate:"min=0"`
	CORSOrigin  string        `koanf:"cors_origin"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
}

// DatabaseConfig SQLite 配置
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// SourceConfig 数据源配置
type SourceConfig struct {
	Kind           string `koanf:"kind" validate:"oneof=geojson csv sqlite"`
	Path           string `koanf:"path" validate:"required_unless=Kind sqlite"`
	ReportedField  string `koanf:"reported_field" validate:"required"`
	FallbackField  string `koanf:"fallback_field"`
	LongitudeField string `koanf:"longitude_field"`
	LatitudeField  string `koanf:"latitude_field"`
}

// AggregationConfig 聚合配置
type AggregationConfig struct {
	ValidateRange bool          `koanf:"validate_range"`
	MaxSamples    int           `koanf:"max_samples" validate:"min=0,max=1000"`
	LoadTimeout   time.Duration `koanf:"load_timeout" validate:"min=0"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error fatal"`
}

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envMappings maps the supported environment variables to config paths
var envMappings = map[string]string{
	"port":            "server.port",
	"gin_mode":        "server.mode",
	"rate_limit":      "server.rate_limit",
	"rate_burst":      "server.rate_burst",
	"cors_origin":     "server.cors_origin",
	"read_timeout":    "server.read_timeout",
	"db_path":         "database.path",
	"source_kind":     "source.kind",
	"data_path":       "source.path",
	"reported_field":  "source.reported_field",
	"fallback_field":  "source.fallback_field",
	"longitude_field": "source.longitude_field",
	"latitude_field":  "source.latitude_field",
	"validate_range":  "aggregation.validate_range",
	"max_samples":     "aggregation.max_samples",
	"load_timeout":    "aggregation.load_timeout",
	"log_level":       "logging.level",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        ":8080",
			Mode:        "release",
			RateLimit:   20,
			RateBurst:   40,
			CORSOrigin:  "*",
			ReadTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/cases/cases.db",
		},
		Source: SourceConfig{
			Kind:           "geojson",
			Path:           "./data/conposcovidloc.geojson",
			ReportedField:  "Case_Reported_Date",
			FallbackField:  "Test_Reported_Date",
			LongitudeField: "Reporting_PHU_Longitude",
			LatitudeField:  "Reporting_PHU_Latitude",
		},
		Aggregation: AggregationConfig{
			ValidateRange: false,
			MaxSamples:    10,
			LoadTimeout:   2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load 加载配置: defaults, then the optional YAML file, then environment
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps known variables to config paths and drops the rest
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
