// Пакет config — загрузка и валидация конфигурации Flight Store
// из переменных окружения (и необязательного .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bigkaa/flightstore/internal/domain/model"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Flight Store.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к CSV-файлу с записями о рейсах
	DataFile string
	// Путь к директории журнала операций записи
	WALDir string
	// Схема файла: базовые колонки и включённые опциональные
	Schema model.Schema
	// Отклонять создание записи с уже существующим id
	UniqueIDs bool
	// Проверять запросы по OpenAPI контракту
	OpenAPIValidation bool
	// Монтировать маршруты прежней версии API (/voos, /contar_registros, /hash)
	LegacyRoutes bool
	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал фоновой проверки целостности файла данных
	IntegrityInterval time.Duration

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Таймауты HTTP-сервера
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadDotEnv загружает переменные из .env файла. Уже заданные переменные
// окружения не перезаписываются. Отсутствующий файл — не ошибка.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return nil
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FLIGHTS_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FLIGHTS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FLIGHTS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FLIGHTS_DATA_FILE — путь к CSV-файлу (по умолчанию data/flights.csv)
	cfg.DataFile = getEnvDefault("FLIGHTS_DATA_FILE", filepath.Join("data", "flights.csv"))
	if strings.HasSuffix(cfg.DataFile, "/") {
		return nil, fmt.Errorf("FLIGHTS_DATA_FILE: %q — путь к директории, ожидается путь к файлу", cfg.DataFile)
	}

	// FLIGHTS_WAL_DIR — директория журнала (по умолчанию <директория данных>/wal)
	cfg.WALDir = getEnvDefault("FLIGHTS_WAL_DIR", filepath.Join(filepath.Dir(cfg.DataFile), "wal"))

	// FLIGHTS_OPTIONAL_FIELDS — опциональные колонки через запятую (по умолчанию carrier)
	optional, err := model.ParseOptionalFields(getEnvDefault("FLIGHTS_OPTIONAL_FIELDS", "carrier"))
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_OPTIONAL_FIELDS: %w", err)
	}
	cfg.Schema, err = model.NewSchema(optional...)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_OPTIONAL_FIELDS: %w", err)
	}

	// FLIGHTS_UNIQUE_IDS — проверка уникальности id (по умолчанию false)
	cfg.UniqueIDs, err = getEnvBool("FLIGHTS_UNIQUE_IDS", false)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_UNIQUE_IDS: %w", err)
	}

	// FLIGHTS_OPENAPI_VALIDATION — проверка запросов по контракту (по умолчанию true)
	cfg.OpenAPIValidation, err = getEnvBool("FLIGHTS_OPENAPI_VALIDATION", true)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_OPENAPI_VALIDATION: %w", err)
	}

	// FLIGHTS_LEGACY_ROUTES — маршруты прежней версии API (по умолчанию true)
	cfg.LegacyRoutes, err = getEnvBool("FLIGHTS_LEGACY_ROUTES", true)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_LEGACY_ROUTES: %w", err)
	}

	// FLIGHTS_TLS_CERT / FLIGHTS_TLS_KEY — оба или ни одного
	cfg.TLSCert = getEnvDefault("FLIGHTS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("FLIGHTS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("FLIGHTS_TLS_CERT и FLIGHTS_TLS_KEY задаются только вместе")
	}

	// FLIGHTS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FLIGHTS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_LOG_LEVEL: %w", err)
	}

	// FLIGHTS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FLIGHTS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FLIGHTS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FLIGHTS_INTEGRITY_INTERVAL — интервал проверки целостности (по умолчанию 5m)
	cfg.IntegrityInterval, err = getEnvDuration("FLIGHTS_INTEGRITY_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_INTEGRITY_INTERVAL: %w", err)
	}

	// FLIGHTS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 10s)
	cfg.ShutdownTimeout, err = getEnvDuration("FLIGHTS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.ReadTimeout, err = getEnvDuration("FLIGHTS_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_READ_TIMEOUT: %w", err)
	}
	cfg.WriteTimeout, err = getEnvDuration("FLIGHTS_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_WRITE_TIMEOUT: %w", err)
	}
	cfg.IdleTimeout, err = getEnvDuration("FLIGHTS_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FLIGHTS_IDLE_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
// Допустимы значения strconv.ParseBool: 1, t, true, 0, f, false и т.п.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("длительность должна быть положительной: %q", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
