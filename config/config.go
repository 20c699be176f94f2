package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	LLM       LLMConfig
	Assistant AssistantConfig
}

type AppConfig struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	TimeZone    string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// LLMConfig describes the OpenAI-compatible completion gateway.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type AssistantConfig struct {
	RatePerMinute  int
	RateBurst      int
	IdempotencyTTL time.Duration
}

const (
	DefaultLLMBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultLLMModel   = "google/gemini-2.5-flash"
)

// LoadConfig reads ./.env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env file; a missing file is not an error,
// environment variables always take precedence.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGIN", "*")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("LLM_BASE_URL", DefaultLLMBaseURL)
	v.SetDefault("LLM_MODEL", DefaultLLMModel)
	v.SetDefault("ASSISTANT_RATE_PER_MINUTE", 20)
	v.SetDefault("ASSISTANT_RATE_BURST", 5)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port:            v.GetString("APP_PORT"),
			Env:             v.GetString("APP_ENV"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			CORSAllowOrigin: v.GetString("CORS_ALLOW_ORIGIN"),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			TimeZone:    v.GetString("DB_TIMEZONE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  parseDuration(v.GetString("JWT_ACCESS_EXPIRY"), 15*time.Minute),
			RefreshExpiry: parseDuration(v.GetString("JWT_REFRESH_EXPIRY"), 7*24*time.Hour),
		},
		LLM: LLMConfig{
			APIKey:  v.GetString("LLM_API_KEY"),
			BaseURL: v.GetString("LLM_BASE_URL"),
			Model:   v.GetString("LLM_MODEL"),
			Timeout: parseDuration(v.GetString("LLM_TIMEOUT"), 30*time.Second),
		},
		Assistant: AssistantConfig{
			RatePerMinute:  v.GetInt("ASSISTANT_RATE_PER_MINUTE"),
			RateBurst:      v.GetInt("ASSISTANT_RATE_BURST"),
			IdempotencyTTL: parseDuration(v.GetString("IDEMPOTENCY_TTL"), 24*time.Hour),
		},
	}

	return config, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
