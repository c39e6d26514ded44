package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Values come from an optional YAML
// file and are overridden by environment variables.
type Config struct {
	Port            string   `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	TickIntervalMS  int      `yaml:"tick_interval_ms"`
	JWTSecret       string   `yaml:"jwt_secret"`
	NATSURL         string   `yaml:"nats_url"`
	SubjectPrefix   string   `yaml:"subject_prefix"`
	CodeCharset     string   `yaml:"code_charset"`
	SessionTTLHours int      `yaml:"session_ttl_hours"`
}

func defaultConfig() Config {
	return Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		TickIntervalMS:  1000,
		SessionTTLHours: 24,
	}
}

func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.TickIntervalMS = getEnvAsInt("TICK_INTERVAL_MS", config.TickIntervalMS)
	config.JWTSecret = getEnv("JWT_SECRET", config.JWTSecret)
	config.NATSURL = getEnv("NATS_URL", config.NATSURL)
	config.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", config.SubjectPrefix)
	config.CodeCharset = getEnv("DISPLAY_CODE_CHARSET", config.CodeCharset)
	config.SessionTTLHours = getEnvAsInt("SESSION_TTL_HOURS", config.SessionTTLHours)

	return config, nil
}

func (c Config) tickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func (c Config) sessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
