// Package config содержит логику чтения конфигурации сервиса контроля расходов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса контроля расходов.
// Секреты (ключ API, пароль кеша, токен авторизации) задаются только переменными окружения.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	SyncteraBaseURL string `env:"SYNCTERA_BASE_URL"`
	SyncteraAPIKey  string `env:"SYNCTERA_API_KEY"`
	ExcludeJIT      bool   `env:"SYNCTERA_EXCLUDE_JIT"`
	RedisAddress    string `env:"REDIS_ADDRESS"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	DatabaseURI     string `env:"DATABASE_URI"`
	AuthToken       string `env:"AUTH_TOKEN"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envSyncteraBaseURL := cfg.SyncteraBaseURL
	envRedisAddress := cfg.RedisAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.SyncteraBaseURL, "s", "", "transaction ledger base URL")
	flag.StringVar(&cfg.RedisAddress, "r", "localhost:6379", "cache address")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "decision audit database URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envSyncteraBaseURL != "" {
		cfg.SyncteraBaseURL = envSyncteraBaseURL
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.RedisAddress == "" {
		cfg.RedisAddress = "localhost:6379"
	}

	return cfg, nil
}
