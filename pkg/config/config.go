package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store drivers.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cookie   CookieConfig
	Hashing  HashingConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig carries the secrets and lifetimes of the session subsystem.
type AuthConfig struct {
	Pepper             string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	SessionStore       string
}

// CookieConfig describes the rotation cookie.
type CookieConfig struct {
	Name   string
	Secret string
	Secure bool
	Path   string
}

// HashingConfig sizes the password hashing worker pool.
type HashingConfig struct {
	Workers   int
	QueueSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	secrets, err := loadSecrets(v, "AUTH_PEPPER", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "COOKIE_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.Auth = AuthConfig{
		Pepper:             secrets["AUTH_PEPPER"],
		AccessTokenSecret:  secrets["ACCESS_TOKEN_SECRET"],
		RefreshTokenSecret: secrets["REFRESH_TOKEN_SECRET"],
		AccessTokenTTL:     parseDuration(v.GetString("ACCESS_TOKEN_TTL"), time.Hour),
		RefreshTokenTTL:    parseDuration(v.GetString("REFRESH_TOKEN_TTL"), 48*time.Hour),
		SessionStore:       strings.ToLower(v.GetString("SESSION_STORE")),
	}

	cfg.Cookie = CookieConfig{
		Name:   v.GetString("COOKIE_NAME"),
		Secret: secrets["COOKIE_SECRET"],
		Secure: v.GetBool("COOKIE_SECURE") || cfg.Env == EnvProduction,
		Path:   v.GetString("COOKIE_PATH"),
	}

	cfg.Hashing = HashingConfig{
		Workers:   v.GetInt("HASH_WORKERS"),
		QueueSize: v.GetInt("HASH_QUEUE_SIZE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	switch cfg.Auth.SessionStore {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		return nil, errors.New("SESSION_STORE must be postgres or redis")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "urlessen")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN_TTL", "3600")
	v.SetDefault("REFRESH_TOKEN_TTL", "172800")
	v.SetDefault("SESSION_STORE", SessionStorePostgres)

	v.SetDefault("COOKIE_NAME", "session")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_PATH", "/auth")

	v.SetDefault("HASH_WORKERS", 2)
	v.SetDefault("HASH_QUEUE_SIZE", 64)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// loadSecrets reads each key and fills the unset ones with a random 32-byte hex value.
func loadSecrets(v *viper.Viper, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			generated, err := RandomKey()
			if err != nil {
				return nil, err
			}
			value = generated
		}
		out[key] = value
	}
	return out, nil
}

// RandomKey returns 32 random bytes encoded as hex.
func RandomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// parseDuration accepts Go durations ("90m") and bare seconds ("3600").
func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
