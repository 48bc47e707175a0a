package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Research  ResearchConfig  `mapstructure:"research"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// ResearchConfig tunes session execution and history reads
type ResearchConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	IndexRebuild   int           `mapstructure:"index_rebuild"`
}

func (r ResearchConfig) Validate() error {
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("research.max_attempts must be > 0")
	}
	if r.HistoryLimit <= 0 {
		return fmt.Errorf("research.history_limit must be > 0")
	}
	return nil
}

// SourcesConfig configures the upstream data providers
type SourcesConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	NewsAPI   NewsAPIConfig   `mapstructure:"newsapi"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
}

// CoinGeckoConfig points at the market data API
type CoinGeckoConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// NewsAPIConfig points at the news API. Without an api_key the news
// provider is not registered and news queries fall back to general.
type NewsAPIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// WikipediaConfig points at the encyclopedia summary API
type WikipediaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required")
	}
	return nil
}

// DSN resolves the connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. An empty host disables
// the findings cache.
type RedisConfig struct {
	Host      string                   `mapstructure:"host"`
	Port      string                   `mapstructure:"port"`
	Password  string                   `mapstructure:"password"`
	DB        int                      `mapstructure:"db"`
	CacheTTLs map[string]time.Duration `mapstructure:"cache_ttls"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required when host is set")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("research.max_attempts", 3)
	viper.SetDefault("research.attempt_timeout", "10s")
	viper.SetDefault("research.retry_backoff", "500ms")
	viper.SetDefault("research.history_limit", 50)
	viper.SetDefault("research.index_rebuild", 200)
	viper.SetDefault("sources.timeout", "15s")
	viper.SetDefault("sources.coingecko.endpoint", "https://api.coingecko.com/api/v3")
	viper.SetDefault("sources.newsapi.endpoint", "https://newsapi.org/v2/everything")
	viper.SetDefault("sources.newsapi.max_results", 5)
	viper.SetDefault("sources.wikipedia.endpoint", "https://en.wikipedia.org/api/rest_v1/page/summary")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.user", "researcher")
	viper.SetDefault("storage.postgres.password", "researcher")
	viper.SetDefault("storage.postgres.dbname", "researcher")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.redis.port", "6379")
	viper.SetDefault("storage.redis.cache_ttls.crypto", "1m")
	viper.SetDefault("storage.redis.cache_ttls.news", "10m")
	viper.SetDefault("storage.redis.cache_ttls.general", "1h")
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("RESEARCHER")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (RESEARCHER_*)

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus env vars are a complete configuration, so a
		// missing file is fine. A malformed one is not.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	// unmarshal config
	var config Config

	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Research.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	return &config
}
