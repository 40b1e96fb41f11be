// Пакет config — загрузка и валидация конфигурации рабочего места
// из переменных окружения (префикс WB_) и файлов .env.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "WB_"

// DotenvFiles — файлы с переменными окружения, загружаемые при наличии.
// Уже заданные переменные окружения не перезаписываются.
var DotenvFiles = []string{".env", ".env.local"}

// Config содержит все параметры конфигурации.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int `env:"PORT" envDefault:"8040"`
	// Уровень логирования (debug, info, warn, error)
	LogLevelName string `env:"LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// Разобранный уровень логирования
	LogLevel slog.Level `env:"-"`

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Разрешённые источники CORS (через запятую)
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// --- Сервис данных ---

	// Базовый URL сервиса данных (обязательный)
	DataServiceURL string `env:"DATA_SERVICE_URL,required"`
	// Статический bearer-токен сервиса данных
	DataServiceToken string `env:"DATA_SERVICE_TOKEN"`
	// Путь к CA-сертификату для TLS
	DataServiceCACert string `env:"DATA_SERVICE_CA_CERT"`
	// Таймаут запроса к сервису данных
	DataServiceTimeout time.Duration `env:"DATA_SERVICE_TIMEOUT" envDefault:"30s"`
	// Путь health endpoint сервиса данных для dephealth
	DataServiceHealthPath string `env:"DATA_SERVICE_HEALTH_PATH" envDefault:"/health"`

	// --- Представления ---

	// Пауза ввода перед применением фильтров
	DebounceDelay time.Duration `env:"DEBOUNCE_DELAY" envDefault:"600ms"`
	// Время подсветки изменённой записи
	HighlightTTL time.Duration `env:"HIGHLIGHT_TTL" envDefault:"4s"`
	// Размер страницы по умолчанию (20, 50, 100, 500, 1000)
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"20"`
	// Время жизни неактивного представления
	ViewTTL time.Duration `env:"VIEW_TTL" envDefault:"30m"`
	// Максимальное количество представлений
	MaxViews int `env:"MAX_VIEWS" envDefault:"1000"`

	// --- Кэш словарей ---

	FacetCacheSize int           `env:"FACET_CACHE_SIZE" envDefault:"512"`
	FacetCacheTTL  time.Duration `env:"FACET_CACHE_TTL" envDefault:"10m"`

	// --- Мониторинг зависимостей ---

	DephealthGroup         string        `env:"DEPHEALTH_GROUP" envDefault:"licitaciones"`
	DephealthCheckInterval time.Duration `env:"DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`
	DephealthIsEntry       bool          `env:"DEPHEALTH_ISENTRY" envDefault:"false"`
}

// Load загружает .env-файлы (если есть) и конфигурацию из окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	if err := loadDotenv(DotenvFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет значения, которые нельзя выразить тегами.
func (c *Config) validate() error {
	var err error
	c.LogLevel, err = parseLogLevel(c.LogLevelName)
	if err != nil {
		return fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("%sLOG_FORMAT: недопустимый формат %q, допустимые: json, text", EnvPrefix, c.LogFormat)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%sPORT: порт вне диапазона 1-65535: %d", EnvPrefix, c.Port)
	}

	u, err := url.ParseRequestURI(c.DataServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%sDATA_SERVICE_URL: некорректный URL %q", EnvPrefix, c.DataServiceURL)
	}
	c.DataServiceURL = strings.TrimRight(c.DataServiceURL, "/")

	if !model.IsValidPageSize(c.DefaultPageSize) {
		return fmt.Errorf("%sDEFAULT_PAGE_SIZE: допустимые значения %v, получено %d",
			EnvPrefix, model.PageSizes, c.DefaultPageSize)
	}

	positive := map[string]time.Duration{
		"DEBOUNCE_DELAY":           c.DebounceDelay,
		"HIGHLIGHT_TTL":            c.HighlightTTL,
		"VIEW_TTL":                 c.ViewTTL,
		"FACET_CACHE_TTL":          c.FacetCacheTTL,
		"DATA_SERVICE_TIMEOUT":     c.DataServiceTimeout,
		"DEPHEALTH_CHECK_INTERVAL": c.DephealthCheckInterval,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s%s: значение должно быть > 0", EnvPrefix, key)
		}
	}

	if c.MaxViews <= 0 {
		return fmt.Errorf("%sMAX_VIEWS: значение должно быть > 0", EnvPrefix)
	}
	if c.FacetCacheSize <= 0 {
		return fmt.Errorf("%sFACET_CACHE_SIZE: значение должно быть > 0", EnvPrefix)
	}
	return nil
}

// loadDotenv загружает существующие файлы из списка.
func loadDotenv(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("проверка %s: %w", f, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("загрузка .env: %w", err)
	}
	return nil
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
