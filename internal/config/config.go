package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the browser User-Agent sent with every upstream request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultMirrors is the ordered list of upstream mirror domains tried by the resolver.
var DefaultMirrors = []string{
	"https://hdrezka.ag",
	"https://hdrezka.me",
	"https://rezka.ag",
	"https://kinopub.me",
}

type Config struct {
	Mirrors               []string `mapstructure:"mirrors"`
	ProxyConnectionString string   `mapstructure:"proxy_connection_string"`
	ProxyListURL          string   `mapstructure:"proxy_list_url"` // free proxy list queried at startup when no static proxy is set
	ClientTimeout         string   `mapstructure:"client_timeout"` // Go duration string like "30s", "1h", etc.
	MirrorTimeout         string   `mapstructure:"mirror_timeout"`
	UserAgent             string   `mapstructure:"user_agent"`
	BrowserTLS            bool     `mapstructure:"browser_tls"`
	TranslationID         string   `mapstructure:"translation_id"`
	Quality               string   `mapstructure:"quality"`
	SubtitleLanguage      string   `mapstructure:"subtitle_language"`
	Upstream              struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
		MaxSearchPages    int     `mapstructure:"max_search_pages"`
	} `mapstructure:"upstream"`
	Subtitles struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"subtitles"`
	Proxy struct {
		ChunkSize    int    `mapstructure:"chunk_size"`
		ProbeTimeout string `mapstructure:"probe_timeout"`
		IdleTimeout  string `mapstructure:"idle_timeout"`
	} `mapstructure:"proxy"`
	Server struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	GRPC struct {
		Port int `mapstructure:"port"` // 0 disables the health server
	} `mapstructure:"grpc"`
	LogLevel string `mapstructure:"log_level"`
	Cache    struct {
		Provider string `mapstructure:"provider"` // "memory" or "redis"
		Size     int    `mapstructure:"size"`     // Maximum number of entries in the LRU cache
		TTL      string `mapstructure:"ttl"`      // Go duration string like "1h", "24h", etc.
		Redis    struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

var (
	mu           sync.RWMutex
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	apply(config)
	logger.Info().Msg("Configuration loaded successfully")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mirrors", DefaultMirrors)
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("mirror_timeout", "10s")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("translation_id", "238")
	v.SetDefault("quality", "1080p")
	v.SetDefault("subtitle_language", "en")
	v.SetDefault("upstream.requests_per_second", 5)
	v.SetDefault("upstream.burst", 10)
	v.SetDefault("upstream.max_search_pages", 5)
	v.SetDefault("subtitles.dir", "static/subtitles")
	v.SetDefault("proxy.chunk_size", 8192)
	v.SetDefault("proxy.probe_timeout", "15s")
	v.SetDefault("proxy.idle_timeout", "30s")
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.size", 200)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("log_level", "info")
}

// LoadConfig reads config.yaml from the working directory (or ./config) and the
// APP_* environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit config file path. An empty path
// falls back to the default search locations.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// Serverless deployments only have a writable temp dir
	if os.Getenv("VERCEL_ENV") == "production" {
		v.SetDefault("subtitles.dir", os.TempDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if len(config.Mirrors) == 0 {
		config.Mirrors = DefaultMirrors
	}

	return &config, nil
}

// Reload loads the given file and makes it the process configuration.
func Reload(path string) (*Config, error) {
	config, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	apply(config)
	logger.Info().Str("file", path).Msg("Configuration reloaded")
	return config, nil
}

func apply(config *Config) {
	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)

	mu.Lock()
	logger = logger.Level(level)
	globalConfig = config
	mu.Unlock()

	logger.Info().Str("level", level.String()).Msg("Logging configured")
}

func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

func GetUserAgent() string {
	if cfg := GetConfig(); cfg != nil && cfg.UserAgent != "" {
		return cfg.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Duration parses a Go duration string, returning fallback when value is empty
// or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger := GetLogger()
		logger.Warn().Err(err).Str("duration", value).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	}
	return parsed
}
