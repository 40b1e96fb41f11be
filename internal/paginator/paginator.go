// Пакет paginator — постраничная загрузка отчёта по тендерам.
//
// Каждый запрос помечается монотонно растущим номером; применяется только
// ответ на последний запрос, остальные отбрасываются. При ошибке прежние
// данные сохраняются, номер страницы не меняется, а сообщение сервера
// доступно в снимке состояния.
package paginator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

var (
	// ErrStaleResponse — ответ пришёл после более нового запроса и отброшен.
	ErrStaleResponse = errors.New("устаревший ответ отчёта отброшен")
	// ErrPageOutOfRange — запрошена страница вне [1, totalPages].
	ErrPageOutOfRange = errors.New("страница вне допустимого диапазона")
	// ErrInvalidPageSize — размер страницы не входит в допустимый набор.
	ErrInvalidPageSize = errors.New("недопустимый размер страницы")
	// ErrPaginationStale — итоги относятся к прежним параметрам отчёта,
	// переход по страницам недоступен до следующего ответа.
	ErrPaginationStale = errors.New("пагинация устарела, дождитесь результата поиска")
)

// Prometheus-метрики загрузки отчётов.
var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_report_fetch_total",
		Help: "Количество запросов страниц отчёта по результату.",
	}, []string{"result"})
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wb_report_fetch_duration_seconds",
		Help:    "Длительность запроса страницы отчёта в секундах.",
		Buckets: prometheus.DefBuckets,
	})
	staleTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wb_report_stale_total",
		Help: "Количество отброшенных устаревших ответов отчёта.",
	})
)

// Source — источник страниц отчёта.
type Source interface {
	GenerateReport(ctx context.Context, req model.ReportRequest) (*model.ReportResponse, error)
}

// Snapshot — согласованный снимок состояния пагинатора.
type Snapshot struct {
	ReportType model.ReportType      `json:"report_type"`
	Filters    model.SearchFilters   `json:"filters"`
	Records    []model.Licitacion    `json:"records"`
	Pagination model.PaginationState `json:"pagination"`
	Label      string                `json:"label"`
	HasPrev    bool                  `json:"has_prev"`
	HasNext    bool                  `json:"has_next"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error,omitempty"`
}

// Paginator — постраничный загрузчик отчёта одного представления.
// Потокобезопасен через sync.Mutex; сетевой запрос выполняется вне мьютекса.
type Paginator struct {
	source Source
	logger *slog.Logger

	mu         sync.Mutex
	seq        uint64
	inFlight   int
	reportType model.ReportType
	filters    model.SearchFilters
	records    []model.Licitacion
	state      model.PaginationState
	errMsg     string
}

// New создаёт пагинатор. pageSize должен входить в model.PageSizes.
func New(source Source, reportType model.ReportType, pageSize int, logger *slog.Logger) (*Paginator, error) {
	if !model.IsValidPageSize(pageSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	if reportType == "" {
		reportType = model.DefaultReportType
	}
	return &Paginator{
		source:     source,
		logger:     logger.With(slog.String("component", "paginator")),
		reportType: reportType,
		state:      model.PaginationState{Page: 1, PageSize: pageSize},
	}, nil
}

// Search загружает первую страницу для новых фильтров.
// До прихода ответа пагинация помечена как устаревшая.
func (p *Paginator) Search(ctx context.Context, filters model.SearchFilters) (Snapshot, error) {
	p.mu.Lock()
	p.filters = filters
	p.state.Stale = true
	p.mu.Unlock()

	return p.fetch(ctx, 1)
}

// GoTo загружает страницу page с текущими фильтрами.
// Страницы вне [1, totalPages] отклоняются без запроса. Пока итоги устарели
// (фильтры, размер страницы или тип отчёта изменены, ответа ещё нет),
// переход отклоняется целиком.
func (p *Paginator) GoTo(ctx context.Context, page int) (Snapshot, error) {
	p.mu.Lock()
	if p.state.Stale {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, fmt.Errorf("%w: страница %d", ErrPaginationStale, page)
	}
	last := max(p.state.TotalPages, 1)
	if page < 1 || page > last {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, fmt.Errorf("%w: %d (всего %d)", ErrPageOutOfRange, page, last)
	}
	p.mu.Unlock()

	return p.fetch(ctx, page)
}

// Next загружает следующую страницу.
func (p *Paginator) Next(ctx context.Context) (Snapshot, error) {
	return p.GoTo(ctx, p.currentPage()+1)
}

// Prev загружает предыдущую страницу.
func (p *Paginator) Prev(ctx context.Context) (Snapshot, error) {
	return p.GoTo(ctx, p.currentPage()-1)
}

// Refresh повторно загружает текущую страницу (после изменения записей).
// При устаревших итогах загружается первая страница.
func (p *Paginator) Refresh(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	page := p.state.Page
	if p.state.Stale {
		page = 1
	}
	p.mu.Unlock()

	return p.fetch(ctx, page)
}

// SetPageSize меняет размер страницы и загружает первую страницу.
func (p *Paginator) SetPageSize(ctx context.Context, limit int) (Snapshot, error) {
	if !model.IsValidPageSize(limit) {
		return p.Snapshot(), fmt.Errorf("%w: %d", ErrInvalidPageSize, limit)
	}
	p.mu.Lock()
	p.state.PageSize = limit
	p.state.Stale = true
	p.mu.Unlock()

	return p.fetch(ctx, 1)
}

// SetReportType меняет тип отчёта и загружает первую страницу.
func (p *Paginator) SetReportType(ctx context.Context, rt model.ReportType) (Snapshot, error) {
	p.mu.Lock()
	p.reportType = rt
	p.state.Stale = true
	p.mu.Unlock()

	return p.fetch(ctx, 1)
}

// Clear сбрасывает данные и сообщение об ошибке.
func (p *Paginator) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.records = nil
	p.errMsg = ""
	p.state = model.PaginationState{Page: 1, PageSize: p.state.PageSize}
}

// Snapshot возвращает текущее состояние.
func (p *Paginator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Paginator) currentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Page
}

// fetch выполняет запрос страницы и применяет ответ, если он последний.
func (p *Paginator) fetch(ctx context.Context, page int) (Snapshot, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.inFlight++
	req := model.ReportRequest{
		Tipo:    p.reportType,
		Page:    page,
		Limit:   p.state.PageSize,
		Filtros: p.filters,
	}
	p.mu.Unlock()

	start := time.Now()
	resp, err := p.source.GenerateReport(ctx, req)
	fetchDuration.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--

	if seq != p.seq {
		staleTotal.Inc()
		p.logger.Debug("Устаревший ответ отчёта отброшен",
			slog.Int("page", page),
		)
		return p.snapshotLocked(), ErrStaleResponse
	}

	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		p.errMsg = dataclient.Message(err)
		p.logger.Warn("Ошибка загрузки отчёта",
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return p.snapshotLocked(), fmt.Errorf("загрузка страницы %d: %w", page, err)
	}

	fetchTotal.WithLabelValues("ok").Inc()
	p.apply(resp, req)
	return p.snapshotLocked(), nil
}

// apply применяет успешный ответ. Вызывается под p.mu.
func (p *Paginator) apply(resp *model.ReportResponse, req model.ReportRequest) {
	p.errMsg = ""
	p.records = DedupeBy(resp.Data, func(l model.Licitacion) (string, bool) {
		return l.IDConvocatoria, l.IDConvocatoria != ""
	})

	if resp.Pagination == nil {
		p.state = model.PaginationState{
			Page:       1,
			PageSize:   req.Limit,
			Total:      len(p.records),
			TotalPages: 1,
		}
		return
	}

	pg := resp.Pagination
	totalPages := max(pg.TotalPages, 0)
	limit := req.Limit
	if model.IsValidPageSize(pg.Limit) {
		limit = pg.Limit
	}
	p.state = model.PaginationState{
		Page:       min(max(pg.Page, 1), max(totalPages, 1)),
		PageSize:   limit,
		Total:      pg.Total,
		TotalPages: totalPages,
	}
}

func (p *Paginator) snapshotLocked() Snapshot {
	return Snapshot{
		ReportType: p.reportType,
		Filters:    p.filters,
		Records:    slices.Clone(p.records),
		Pagination: p.state,
		Label:      p.state.Label(),
		HasPrev:    !p.state.Stale && p.state.HasPrev(),
		HasNext:    !p.state.Stale && p.state.HasNext(),
		Loading:    p.inFlight > 0,
		Error:      p.errMsg,
	}
}
