// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Рабочее место мониторит одну зависимость:
//   - сервис данных — HTTP checker к health endpoint (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// DataServiceDependency — имя зависимости сервиса данных в метриках.
const DataServiceDependency = "data-service"

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// DephealthOptions — параметры мониторинга.
type DephealthOptions struct {
	ServiceID      string        // имя вершины графа текущего приложения
	Group          string        // имя группы в метриках (WB_DEPHEALTH_GROUP)
	DataServiceURL string        // базовый URL сервиса данных
	HealthPath     string        // путь health endpoint сервиса данных
	CheckInterval  time.Duration // интервал проверки (WB_DEPHEALTH_CHECK_INTERVAL)
	IsEntry        bool          // лейбл isentry=yes (WB_DEPHEALTH_ISENTRY)
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(opts DephealthOptions, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(opts, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	opts DephealthOptions,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(opts, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(opts DephealthOptions, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(opts.DataServiceURL),
		dephealth.WithHTTPHealthPath(opts.HealthPath),
		dephealth.CheckInterval(opts.CheckInterval),
		dephealth.Critical(true),
	}
	if opts.IsEntry {
		depOpts = append(depOpts, dephealth.WithLabel("isentry", "yes"))
	}
	if parsed, err := url.Parse(opts.DataServiceURL); err == nil && parsed.Scheme == "https" {
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	all := make([]dephealth.Option, 0, 2+len(extraOpts))
	all = append(all,
		dephealth.WithLogger(logger),
		dephealth.HTTP(DataServiceDependency, depOpts...),
	)
	all = append(all, extraOpts...)

	dh, err := dephealth.New(opts.ServiceID, opts.Group, all...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (сервис данных)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady реализует проверку готовности для /health/ready.
func (ds *DephealthService) CheckReady() (status, message string) {
	return readiness(ds.Health())
}

// readiness сводит состояние зависимостей к статусу readiness.
// Пока не было ни одной проверки — degraded.
func readiness(health map[string]bool) (status, message string) {
	if len(health) == 0 {
		return "degraded", "проверка зависимостей ещё не выполнялась"
	}

	var failed []string
	for name, ok := range health {
		if !ok {
			failed = append(failed, name)
		}
	}
	if len(failed) == 0 {
		return "ok", ""
	}
	sort.Strings(failed)
	return "fail", "недоступно: " + strings.Join(failed, ", ")
}
