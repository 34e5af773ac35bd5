// Package config loads rowsite settings from the environment.
//
// A .env file in the working directory is loaded by the command through
// github.com/joho/godotenv/autoload; real environment variables win.
// Command-line flags override everything loaded here.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/hf-rowsite/pkg/cache"
	"github.com/Sternrassler/hf-rowsite/pkg/client"
	"github.com/Sternrassler/hf-rowsite/pkg/storage"
)

// DatasetConfig selects the dataset and the fields rendered on a card.
type DatasetConfig struct {
	Name       string
	Config     string
	Split      string
	TextField  string
	TitleField string
	LangField  string
	DateField  string
	LinkField  string
}

// ClientConfig holds dataset-server client settings.
type ClientConfig struct {
	APIURL    string
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

// RedisConfig enables the response cache when URL is set.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// AppConfig is the complete configuration.
type AppConfig struct {
	// Pages is the raw page list (ROWSITE_PAGES), parsed by the command.
	Pages string
	// BaseURL is the public site URL used for the sitemap.
	BaseURL string
	Port    string
	Dataset DatasetConfig
	Client  ClientConfig
	Redis   RedisConfig
	Log     LogConfig
	S3      storage.Config
}

// Load reads configuration from environment variables.
func Load() *AppConfig {
	return &AppConfig{
		Pages:   getEnv("ROWSITE_PAGES", ""),
		BaseURL: getEnv("ROWSITE_BASE_URL", ""),
		Port:    getEnv("PORT", "8080"),
		Dataset: DatasetConfig{
			Name:       getEnv("ROWSITE_DATASET", client.DefaultDatasetName),
			Config:     getEnv("ROWSITE_CONFIG", client.DefaultDatasetConfig),
			Split:      getEnv("ROWSITE_SPLIT", client.DefaultDatasetSplit),
			TextField:  getEnv("ROWSITE_TEXT_FIELD", "full_text"),
			TitleField: getEnvOrEmpty("ROWSITE_TITLE_FIELD", "topic"),
			LangField:  getEnvOrEmpty("ROWSITE_LANG_FIELD", "lang"),
			DateField:  getEnvOrEmpty("ROWSITE_DATE_FIELD", "date"),
			LinkField:  getEnvOrEmpty("ROWSITE_LINK_FIELD", "link"),
		},
		Client: ClientConfig{
			APIURL:    getEnv("ROWSITE_API_URL", client.DefaultAPIURL),
			UserAgent: getEnv("ROWSITE_USER_AGENT", client.DefaultUserAgent),
			Timeout:   getEnvDuration("ROWSITE_TIMEOUT", 30*time.Second),
			Retries:   getEnvInt("ROWSITE_RETRIES", 0),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			CacheTTL: getEnvDuration("CACHE_TTL", cache.DefaultTTL),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		S3: storage.Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			UseSSL:    getEnvBool("S3_USE_SSL", true),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvOrEmpty is getEnv except that a variable set to "" counts as set.
func getEnvOrEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
