package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Engine      EngineConfig
	MarketMaker MarketMakerConfig
	Kafka       KafkaConfig
	Admin       AdminConfig
	Logging     LoggingConfig
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

// EngineConfig - параметры матчингового ядра и расчетов
type EngineConfig struct {
	FeeRate          float64 // комиссия от notional сделки
	DepthLevels      int     // уровней цен на сторону в публикуемом стакане
	ProtectiveBuffer float64 // запас защитной оценки MARKET BUY поверх best ask
	OrderRateLimit   int     // заявок в минуту на одного владельца (0 = без лимита)
}

// MarketMakerConfig - настройки бота-провайдера ликвидности
type MarketMakerConfig struct {
	Enabled    bool
	Symbols    []string
	Interval   time.Duration // период перевыставления лесенки
	Levels     int           // уровней котировок на сторону
	SpreadStep float64       // шаг лесенки в долях от референсной цены
	MinLot     int64
	MaxLot     int64
}

// KafkaConfig - настройки публикации рыночных событий
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// AdminConfig - доступ к служебным endpoint'ам
type AdminConfig struct {
	PasswordHash string // bcrypt хэш админского пароля
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "stockforge"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Engine: EngineConfig{
			FeeRate:          getEnvAsFloat("FEE_RATE", 0.001),
			DepthLevels:      getEnvAsInt("DEPTH_LEVELS", 5),
			ProtectiveBuffer: getEnvAsFloat("PROTECTIVE_BUFFER", 0.05),
			OrderRateLimit:   getEnvAsInt("ORDER_RATE_LIMIT", 60),
		},
		MarketMaker: MarketMakerConfig{
			Enabled:    getEnvAsBool("MM_ENABLED", true),
			Symbols:    getEnvAsSlice("MM_SYMBOLS", []string{"AAPL", "GOOGL", "TSLA", "MSFT", "AMZN"}),
			Interval:   getEnvAsDuration("MM_INTERVAL", 10*time.Second),
			Levels:     getEnvAsInt("MM_LEVELS", 3),
			SpreadStep: getEnvAsFloat("MM_SPREAD_STEP", 0.002),
			MinLot:     int64(getEnvAsInt("MM_MIN_LOT", 100)),
			MaxLot:     int64(getEnvAsInt("MM_MAX_LOT", 1000)),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "market-events"),
		},
		Admin: AdminConfig{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Engine.FeeRate < 0 || c.Engine.FeeRate >= 1 {
		return fmt.Errorf("FEE_RATE must be in [0, 1), got %v", c.Engine.FeeRate)
	}

	if c.Engine.DepthLevels < 1 {
		return fmt.Errorf("DEPTH_LEVELS must be positive, got %d", c.Engine.DepthLevels)
	}

	if c.Engine.OrderRateLimit < 0 {
		return fmt.Errorf("ORDER_RATE_LIMIT cannot be negative, got %d", c.Engine.OrderRateLimit)
	}

	if c.MarketMaker.Enabled {
		if len(c.MarketMaker.Symbols) == 0 {
			return fmt.Errorf("MM_SYMBOLS must not be empty when market maker is enabled")
		}
		if c.MarketMaker.Interval <= 0 {
			return fmt.Errorf("MM_INTERVAL must be positive, got %v", c.MarketMaker.Interval)
		}
		if c.MarketMaker.Levels < 1 {
			return fmt.Errorf("MM_LEVELS must be positive, got %d", c.MarketMaker.Levels)
		}
		if c.MarketMaker.SpreadStep <= 0 || c.MarketMaker.SpreadStep >= 1 {
			return fmt.Errorf("MM_SPREAD_STEP must be in (0, 1), got %v", c.MarketMaker.SpreadStep)
		}
		if c.MarketMaker.MinLot < 1 || c.MarketMaker.MaxLot < c.MarketMaker.MinLot {
			return fmt.Errorf("invalid MM lot range [%d, %d]", c.MarketMaker.MinLot, c.MarketMaker.MaxLot)
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty when Kafka is enabled")
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
