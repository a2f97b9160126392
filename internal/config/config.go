package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	App       AppConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Geo       GeoConfig
	Clicks    ClicksConfig
}

type AppConfig struct {
	Port              string
	Env               string
	BaseURL           string
	DefaultProfileImg string
}

type StorageConfig struct {
	Driver string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TTL      time.Duration
}

// Enabled сообщает, настроен ли Redis (без него используется no-op кэш)
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	APIKeys   map[string]string // API key -> name/description
	JWTSecret string
	JWTTTL    time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type CORSConfig struct {
	Origins []string
}

type GeoConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type ClicksConfig struct {
	Workers int
	Buffer  int
}

const defaultProfileImg = "https://cdn-icons-png.flaticon.com/512/847/847969.png"

// Load читает конфиг из .env (если файл есть) и переменных окружения
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile читает конфиг из указанного файла и переменных окружения
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	cfg.App.DefaultProfileImg = v.GetString("DEFAULT_PROFILE_IMG")

	cfg.Storage.Driver = strings.ToLower(v.GetString("STORAGE_DRIVER"))

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.TTL = v.GetDuration("CACHE_TTL")

	// Format: key1:name1,key2:name2
	cfg.Auth.APIKeys = parseAPIKeys(v.GetString("API_KEYS"))
	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.JWTTTL = v.GetDuration("JWT_TTL")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.CORS.Origins = parseList(v.GetString("CORS_ORIGINS"))

	cfg.Geo.Endpoint = strings.TrimRight(v.GetString("GEO_ENDPOINT"), "/")
	cfg.Geo.Timeout = v.GetDuration("GEO_TIMEOUT")

	cfg.Clicks.Workers = v.GetInt("CLICK_WORKERS")
	if cfg.Clicks.Workers <= 0 {
		cfg.Clicks.Workers = 3
	}
	cfg.Clicks.Buffer = v.GetInt("CLICK_BUFFER")
	if cfg.Clicks.Buffer <= 0 {
		cfg.Clicks.Buffer = 1000
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_BASE_URL", "http://localhost:5000")
	v.SetDefault("DEFAULT_PROFILE_IMG", defaultProfileImg)
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "scissors")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("GEO_ENDPOINT", "https://ipapi.co")
	v.SetDefault("GEO_TIMEOUT", "2s")
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
