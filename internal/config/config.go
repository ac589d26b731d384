package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string
	UploadDir   string

	// Optional SQL sources run at startup, in this order: schema first, then
	// seed data. Useful for loading a fixture database.
	SchemaFile string
	SeedFile   string
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite:friendsnet.db"),
		LogLevel:    strings.TrimSpace(getEnv("LOG_LEVEL", "info")),
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),

		SchemaFile: strings.TrimSpace(getEnv("SCHEMA_FILE", "")),
		SeedFile:   strings.TrimSpace(getEnv("SEED_FILE", "")),
	}

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultValue
	}
	return v
}
