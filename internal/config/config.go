package config

import (
	"errors"
	"strings"
	"time"

	"restaurant_pos_backend/pkg/utils"

	"github.com/spf13/viper"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Kitchen   KitchenConfig
	PlansFile string
	LogLevel  string
	LogPretty bool
}

type ServerConfig struct {
	Port           string
	Mode           string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ApplySchema  bool
}

type AuthConfig struct {
	JWTSecret          string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	SuperadminUsername string
	SuperadminPassword string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// KitchenConfig configures the kitchen event publisher. An empty URL disables publishing.
type KitchenConfig struct {
	RabbitMQURL string
	Exchange    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("REQUEST_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "restaurant_pos")
	v.SetDefault("DB_PASSWORD", "restaurant_pos")
	v.SetDefault("DB_NAME", "restaurant_pos")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_APPLY_SCHEMA", false)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("SUPERADMIN_USERNAME", "")
	v.SetDefault("SUPERADMIN_PASSWORD", "")

	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("KITCHEN_EXCHANGE", "kitchen.events")

	v.SetDefault("PLANS_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
}

// Load reads the optional env file named by CONFIG_FILE (default .env) and
// then the process environment, which always wins.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetDefault("CONFIG_FILE", ".env")
	_ = v.BindEnv("CONFIG_FILE")
	v.SetConfigFile(v.GetString("CONFIG_FILE"))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		utils.LogDebug("No config file found, using environment only", map[string]interface{}{"reason": err.Error()})
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Mode:           v.GetString("GIN_MODE"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			ApplySchema:  v.GetBool("DB_APPLY_SCHEMA"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("JWT_SECRET"),
			AccessTTL:          v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL:         v.GetDuration("JWT_REFRESH_TTL"),
			SuperadminUsername: v.GetString("SUPERADMIN_USERNAME"),
			SuperadminPassword: v.GetString("SUPERADMIN_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Kitchen: KitchenConfig{
			RabbitMQURL: v.GetString("RABBITMQ_URL"),
			Exchange:    v.GetString("KITCHEN_EXCHANGE"),
		},
		PlansFile: v.GetString("PLANS_FILE"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),
	}

	if cfg.Server.Mode == "release" && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set in release mode")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
