package config

import (
	"fmt"
	"time"

	"pbxconnect-backend/pkg/env"
)

// Config holds the voip-service runtime configuration, assembled from the
// environment. Secrets support the _FILE convention for Docker secrets.
type Config struct {
	Env      string
	HTTPPort int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	JWTSecret   string
	JWTAudience string
	JWTDuration time.Duration

	ContactCacheTTL time.Duration
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		Env:      env.GetString("ENV", "development"),
		HTTPPort: env.GetInt("HTTP_PORT", 8084),

		DBHost:     env.GetString("DB_HOST", "localhost"),
		DBPort:     env.GetInt("DB_PORT", 5432),
		DBUser:     env.GetString("DB_USER", "postgres"),
		DBPassword: env.GetStringFromFile("DB_PASSWORD", "postgres"),
		DBName:     env.GetString("DB_NAME", "pbxconnect"),
		DBSSLMode:  env.GetString("DB_SSLMODE", "disable"),

		RedisHost:     env.GetString("REDIS_HOST", "localhost"),
		RedisPort:     env.GetInt("REDIS_PORT", 6379),
		RedisPassword: env.GetStringFromFile("REDIS_PASSWORD", ""),
		RedisDB:       env.GetInt("REDIS_DB", 0),

		MinIOEndpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: env.GetStringFromFile("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey: env.GetStringFromFile("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucket:    env.GetString("MINIO_BUCKET", "voip-recordings"),
		MinIOUseSSL:    env.GetBool("MINIO_USE_SSL", false),

		JWTSecret:   env.GetStringFromFile("JWT_SECRET", ""),
		JWTAudience: env.GetString("JWT_AUDIENCE", "pbxconnect-api"),
		JWTDuration: env.GetDuration("JWT_DURATION", 24*time.Hour),

		ContactCacheTTL: env.GetDuration("CONTACT_CACHE_TTL", 5*time.Minute),
	}
}

// Validate checks invariants that would otherwise only surface at request time
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Env == "production" && c.DBSSLMode == "disable" {
		return fmt.Errorf("DB_SSLMODE must not be disable in production")
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
