package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	SSLMode      string
	RedisHost    string
	RedisPort    string
	NatsHost     string
	NatsPort     string
	HTTPPort     string
	RPCTimeoutMS int
}

// New loads and validates configuration from environment variables. Postgres
// and NATS are required by every service. Redis is optional: RedisAddr()
// returns an error when it is not configured and callers skip the cache.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:       os.Getenv("WDM_POSTGRES_USER"),
		DBPass:       os.Getenv("WDM_POSTGRES_PASSWORD"),
		DBHost:       os.Getenv("WDM_POSTGRES_HOST"),
		DBPort:       os.Getenv("WDM_POSTGRES_PORT"),
		DBName:       os.Getenv("WDM_POSTGRES_DB"),
		SSLMode:      os.Getenv("WDM_POSTGRES_SSLMODE"),
		RedisHost:    os.Getenv("WDM_REDIS_HOST"),
		RedisPort:    os.Getenv("WDM_REDIS_PORT"),
		NatsHost:     os.Getenv("WDM_NATS_HOST"),
		NatsPort:     os.Getenv("WDM_NATS_PORT"),
		HTTPPort:     os.Getenv("WDM_HTTP_PORT"),
		RPCTimeoutMS: getEnvInt("WDM_RPC_TIMEOUT_MS", 5000),
	}

	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: WDM_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: WDM_NATS_HOST/PORT")
	}

	if cfg.HTTPPort == "" {
		return nil, fmt.Errorf("missing required env: WDM_HTTP_PORT")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

// RedisAddr returns the cache address if one is configured. Services that can
// run without the cache treat an error as "no cache".
func (c *Config) RedisAddr() (string, error) {
	if c.RedisHost == "" || c.RedisPort == "" {
		return "", fmt.Errorf("redis is not configured (WDM_REDIS_HOST/PORT)")
	}
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort), nil
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMS) * time.Millisecond
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}
