package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Risk     RiskConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	JWTSecret string

	// GatewaySigningKey - общий секрет HMAC подписи запросов к OMS.
	// Ордера отменяются только подписанными запросами.
	GatewaySigningKey string
}

// RiskConfig - настройки риск-ядра
type RiskConfig struct {
	// Цикл оценки: период зажимается в [1s, 2s]
	EvalInterval time.Duration

	// Хранение снапшотов перед очисткой
	SnapshotRetention time.Duration

	// OMS / источник метрик
	GatewayBaseURL  string
	ProviderBaseURL string
	GatewayTimeout  time.Duration

	// Очередь аудита: при переполнении запись отклоняется, не блокирует
	AuditQueueSize int

	// Rate limit на запуск kill switch (запросов/сек и burst)
	KillSwitchRate  float64
	KillSwitchBurst float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "riskengine"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
			GatewaySigningKey: getEnv("GATEWAY_SIGNING_KEY", ""),
		},
		Risk: RiskConfig{
			EvalInterval:      getEnvAsDuration("RISK_EVAL_INTERVAL", 1*time.Second),
			SnapshotRetention: getEnvAsDuration("SNAPSHOT_RETENTION", 24*time.Hour),
			GatewayBaseURL:    getEnv("GATEWAY_BASE_URL", "http://localhost:9010"),
			ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "http://localhost:9011"),
			GatewayTimeout:    getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),
			AuditQueueSize:    getEnvAsInt("AUDIT_QUEUE_SIZE", 1024),
			KillSwitchRate:    getEnvAsFloat("KILL_SWITCH_RATE", 1),
			KillSwitchBurst:   getEnvAsFloat("KILL_SWITCH_BURST", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// JWT_SECRET обязателен и не должен быть default значением
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required for authentication")
	}

	if c.Security.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be changed from default value in production")
	}

	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}

	// Без подписи OMS отклонит gate/cancel запросы
	if c.Security.GatewaySigningKey == "" {
		return fmt.Errorf("GATEWAY_SIGNING_KEY is required for signing order gateway requests")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Интервал оценки зажимается монитором, но явный мусор отклоняем
	if c.Risk.EvalInterval <= 0 {
		return fmt.Errorf("RISK_EVAL_INTERVAL must be positive, got %v", c.Risk.EvalInterval)
	}

	if c.Risk.SnapshotRetention < time.Minute {
		return fmt.Errorf("SNAPSHOT_RETENTION must be at least 1 minute, got %v", c.Risk.SnapshotRetention)
	}

	if c.Risk.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %v", c.Risk.GatewayTimeout)
	}

	if c.Risk.AuditQueueSize < 1 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be at least 1, got %d", c.Risk.AuditQueueSize)
	}

	if c.Risk.KillSwitchRate <= 0 || c.Risk.KillSwitchBurst <= 0 {
		return fmt.Errorf("kill switch rate limit must be positive, got rate=%v burst=%v",
			c.Risk.KillSwitchRate, c.Risk.KillSwitchBurst)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
