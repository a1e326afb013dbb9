package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix for overrides, e.g. PHIGUARD_AI_API_KEY for ai.api_key.
const EnvPrefix = "PHIGUARD"

type Config struct {
	Server struct {
		Port        int      `mapstructure:"port"`
		APIKeys     []string `mapstructure:"api_keys"`
		RateLimit   float64  `mapstructure:"rate_limit"` // requests per second per client, 0 = off
		RateBurst   int      `mapstructure:"rate_burst"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"server"`

	Database struct {
		Driver   string `mapstructure:"driver"` // mysql | postgres | none
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"ssl_mode"`
	} `mapstructure:"database"`

	Storage struct {
		LocalPath string `mapstructure:"local_path"`
	} `mapstructure:"storage"`

	Minio struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		UseSSL    bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`

	GitHub struct {
		APIURL            string        `mapstructure:"api_url"`
		Token             string        `mapstructure:"token"`
		Timeout           time.Duration `mapstructure:"timeout"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	} `mapstructure:"github"`

	AI struct {
		APIKey    string `mapstructure:"api_key"`
		BaseURL   string `mapstructure:"base_url"`
		Model     string `mapstructure:"model"`
		MaxTokens int    `mapstructure:"max_tokens"`
	} `mapstructure:"ai"`

	Scan struct {
		MaxFiles    int      `mapstructure:"max_files"`
		Incremental bool     `mapstructure:"incremental"`
		Exclude     []string `mapstructure:"exclude"`
	} `mapstructure:"scan"`

	Log struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"log"`
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// Load baca file config (YAML) lalu override dari env. A missing file is
// fine: defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "none", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver %q: want mysql, postgres or none", c.Database.Driver)
	}
	if c.Scan.MaxFiles < 0 {
		return fmt.Errorf("scan.max_files must not be negative")
	}
	if c.Server.RateLimit < 0 || c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}

// DatabaseEnabled reports whether a SQL tier is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Driver == "mysql" || c.Database.Driver == "postgres"
}

// MinioEnabled reports whether the report archive is configured.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.Bucket != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "phiguard")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("storage.local_path", defaultLocalPath())

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "phiguard-reports")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.timeout", 30*time.Second)
	v.SetDefault("github.requests_per_second", 0.0)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 4000)

	v.SetDefault("scan.max_files", 50)
	v.SetDefault("scan.incremental", true)
	v.SetDefault("scan.exclude", []string{})

	v.SetDefault("log.debug", false)
}

func defaultLocalPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".phiguard")
	}
	return ".phiguard"
}
