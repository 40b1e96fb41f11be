// main.go — точка входа BFF рабочего места по тендерам.
// Порядок: config → logger → клиент сервиса данных → dephealth →
// реестр представлений → HTTP-сервер.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/licitaciones-workbench/internal/api/handlers"
	"github.com/bigkaa/licitaciones-workbench/internal/api/middleware"
	"github.com/bigkaa/licitaciones-workbench/internal/api/openapi"
	"github.com/bigkaa/licitaciones-workbench/internal/config"
	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
	"github.com/bigkaa/licitaciones-workbench/internal/facets"
	"github.com/bigkaa/licitaciones-workbench/internal/server"
	"github.com/bigkaa/licitaciones-workbench/internal/service"
	"github.com/bigkaa/licitaciones-workbench/internal/workspace"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения и .env
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Рабочее место запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_service", cfg.DataServiceURL),
	)

	if os.Getenv(config.EnvPrefix+"DEPHEALTH_GROUP") == "" {
		logger.Warn(config.EnvPrefix+"DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Клиент сервиса данных
	client, err := dataclient.New(
		cfg.DataServiceURL,
		cfg.DataServiceCACert,
		cfg.DataServiceTimeout,
		cfg.DataServiceToken,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания клиента сервиса данных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. topologymetrics — мониторинг сервиса данных
	ctx := context.Background()
	var readiness handlers.ReadinessChecker
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthOptions{
		ServiceID:      "licitaciones-workbench",
		Group:          cfg.DephealthGroup,
		DataServiceURL: cfg.DataServiceURL,
		HealthPath:     cfg.DataServiceHealthPath,
		CheckInterval:  cfg.DephealthCheckInterval,
		IsEntry:        cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		readiness = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 5. Реестр представлений (общий кэш дочерних словарей)
	views := workspace.NewRegistry(workspace.Options{
		Source:       client,
		Cache:        facets.NewOptionsCache(cfg.FacetCacheSize, cfg.FacetCacheTTL),
		Debounce:     cfg.DebounceDelay,
		HighlightTTL: cfg.HighlightTTL,
		PageSize:     cfg.DefaultPageSize,
		Logger:       logger,
	}, cfg.MaxViews, cfg.ViewTTL)

	// 6. Описание API для проверки входящих запросов
	apiDoc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки описания API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.OpenAPIValidator(apiDoc, logger)
	if err != nil {
		logger.Error("Ошибка инициализации проверки запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. HTTP-сервер
	apiHandler := handlers.NewAPIHandler(handlers.NewHealthHandler(readiness), views, logger)
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		validator,
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	views.Close()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Рабочее место остановлено")
}
