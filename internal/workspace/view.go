// Пакет workspace — представление аналитика: единственный владелец
// состояния фильтров, словарей, отчёта, редактора и диалогов.
//
// Состояние меняется только командами View. Отложенная публикация
// фильтров запускает поиск, успешный поиск отражается в URL,
// изменение департамента или провинции подгружает дочерние словари в фоне.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/facets"
	"github.com/bigkaa/licitaciones-workbench/internal/filters"
	"github.com/bigkaa/licitaciones-workbench/internal/orchestrator"
	"github.com/bigkaa/licitaciones-workbench/internal/paginator"
)

// ErrInvalidInput — некорректная строка запроса или параметр команды.
var ErrInvalidInput = errors.New("некорректный параметр")

// DataSource — всё, что представлению нужно от сервиса данных.
type DataSource interface {
	facets.Source
	paginator.Source
	orchestrator.RecordStore
}

// Options — параметры создания представления.
type Options struct {
	Source       DataSource
	Cache        *facets.OptionsCache // может быть nil
	Debounce     time.Duration
	HighlightTTL time.Duration
	PageSize     int
	Logger       *slog.Logger
}

// State — снимок состояния представления.
type State struct {
	ID             string              `json:"id"`
	Query          string              `json:"query"`
	Filters        model.SearchFilters `json:"filters"`
	Effective      model.SearchFilters `json:"effective"`
	FiltersPending bool                `json:"filters_pending"`
	Facets         model.Facets        `json:"facets"`
	Report         paginator.Snapshot  `json:"report"`
	Records        orchestrator.State  `json:"records"`
}

// View — представление аналитика. Потокобезопасно: каждый компонент
// защищает своё состояние, фоновые задачи отменяются в Stop.
type View struct {
	id       string
	location *filters.Location
	store    *filters.Store
	resolver *facets.Resolver
	pag      *paginator.Paginator
	orch     *orchestrator.Orchestrator
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewView создаёт представление из строки запроса закладки (без «?»).
// Сеть не используется до Init.
func NewView(id, rawQuery string, opts Options) (*View, error) {
	logger := opts.Logger.With(slog.String("view", id))

	location, err := filters.NewLocation(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	initial, reportType, err := filters.DecodeQuery(location.Query())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	pag, err := paginator.New(opts.Source, reportType, opts.PageSize, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		id:       id,
		location: location,
		store:    filters.NewStore(initial, opts.Debounce, location, logger),
		resolver: facets.NewResolver(opts.Source, opts.Cache, logger),
		pag:      pag,
		logger:   logger.With(slog.String("component", "view")),
		ctx:      ctx,
		cancel:   cancel,
	}
	v.orch = orchestrator.New(opts.Source, v.refresh, opts.HighlightTTL, logger)

	v.store.OnEffective(v.runSearch)
	v.store.OnCascade(v.onCascade)
	v.store.OnReset(v.onReset)
	return v, nil
}

// ID возвращает идентификатор представления.
func (v *View) ID() string { return v.id }

// Init загружает словари (с откатом на встроенные), дочерние списки
// географии для фильтров из закладки и первую страницу отчёта.
func (v *View) Init(ctx context.Context) State {
	v.resolver.Init(ctx)

	f := v.store.Effective()
	if f.Departamento != "" {
		v.logFacetError(v.resolver.ResolveProvinces(ctx, f.Departamento))
	}
	if f.Provincia != "" {
		v.logFacetError(v.resolver.ResolveDistricts(ctx, f.Departamento, f.Provincia))
	}

	v.runSearch(f)
	return v.State()
}

// SetFilter изменяет поле фильтра. Поиск выполнится после паузы ввода.
func (v *View) SetFilter(field, value string) error {
	key, err := model.ParseFilterField(field)
	if err != nil {
		return fmt.Errorf("%w: %q", filters.ErrUnknownField, field)
	}
	return v.store.SetField(key, value)
}

// ResetFilters очищает все фильтры и выполняет поиск без фильтров.
func (v *View) ResetFilters() State {
	v.store.Reset()
	return v.State()
}

// Search применяет фильтры немедленно (кнопка «Buscar»).
// URL обновляется даже при ошибке загрузки.
func (v *View) Search() State {
	f := v.store.Apply()
	v.store.MarkApplied(f, v.pag.Snapshot().ReportType)
	return v.State()
}

// GoToPage загружает страницу с текущими фильтрами.
func (v *View) GoToPage(ctx context.Context, page int) (State, error) {
	_, err := v.pag.GoTo(ctx, page)
	return v.State(), inputError(err)
}

// NextPage загружает следующую страницу.
func (v *View) NextPage(ctx context.Context) (State, error) {
	_, err := v.pag.Next(ctx)
	return v.State(), inputError(err)
}

// PrevPage загружает предыдущую страницу.
func (v *View) PrevPage(ctx context.Context) (State, error) {
	_, err := v.pag.Prev(ctx)
	return v.State(), inputError(err)
}

// SetPageSize меняет размер страницы (только из набора пресетов).
func (v *View) SetPageSize(ctx context.Context, limit int) (State, error) {
	_, err := v.pag.SetPageSize(ctx, limit)
	return v.State(), inputError(err)
}

// SetReportType меняет тип отчёта; успешная загрузка отражается в URL.
func (v *View) SetReportType(ctx context.Context, tipo string) (State, error) {
	rt, err := model.ParseReportType(tipo)
	if err != nil {
		return v.State(), fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	snap, err := v.pag.SetReportType(ctx, rt)
	if err == nil {
		v.store.MarkApplied(snap.Filters, snap.ReportType)
	}
	return v.State(), inputError(err)
}

// MatchFacet ранжирует значения словаря по строке поиска.
func (v *View) MatchFacet(name, query string, limit int) ([]string, error) {
	return v.resolver.Match(model.FacetName(name), query, limit)
}

// State возвращает согласованный снимок представления.
func (v *View) State() State {
	return State{
		ID:             v.id,
		Query:          v.location.Encode(),
		Filters:        v.store.Raw(),
		Effective:      v.store.Effective(),
		FiltersPending: v.store.Pending(),
		Facets:         v.resolver.Snapshot(),
		Report:         v.pag.Snapshot(),
		Records:        v.orch.Snapshot(),
	}
}

// Stop отменяет таймеры и фоновые загрузки и дожидается их завершения.
func (v *View) Stop() {
	v.store.Stop()
	v.orch.Stop()
	v.cancel()
	v.wg.Wait()
}

// runSearch загружает первую страницу для опубликованных фильтров.
func (v *View) runSearch(f model.SearchFilters) {
	snap, err := v.pag.Search(v.ctx, f)
	if err != nil {
		return
	}
	v.store.MarkApplied(snap.Filters, snap.ReportType)
}

// refresh перезапрашивает текущую страницу после изменения записей.
func (v *View) refresh(ctx context.Context) error {
	_, err := v.pag.Refresh(ctx)
	if errors.Is(err, paginator.ErrStaleResponse) {
		return nil
	}
	return err
}

// onCascade сразу сбрасывает устаревшие дочерние словари и регистрирует заявку
// на новые; загрузка идёт в фоне.
func (v *View) onCascade(field model.FilterField, value string, f model.SearchFilters) {
	switch field {
	case model.FieldDepartamento:
		req := v.resolver.BeginProvinces(value)
		v.background(func(ctx context.Context) {
			v.logFacetError(v.resolver.Finish(ctx, req))
		})
	case model.FieldProvincia:
		req := v.resolver.BeginDistricts(f.Departamento, value)
		v.background(func(ctx context.Context) {
			v.logFacetError(v.resolver.Finish(ctx, req))
		})
	}
}

func (v *View) onReset() {
	v.resolver.DropChildren()
}

func (v *View) background(fn func(ctx context.Context)) {
	if v.ctx.Err() != nil {
		return
	}
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		fn(v.ctx)
	}()
}

func (v *View) logFacetError(_ []string, err error) {
	if err == nil || errors.Is(err, facets.ErrStaleResponse) || errors.Is(err, context.Canceled) {
		return
	}
	v.logger.Warn("Не удалось загрузить дочерний словарь",
		slog.String("error", err.Error()),
	)
}

// inputError оставляет только ошибки запроса пользователя. Ошибки загрузки
// уже отражены в снимке отчёта, устаревшие ответы не являются ошибкой.
func inputError(err error) error {
	if errors.Is(err, paginator.ErrPageOutOfRange) ||
		errors.Is(err, paginator.ErrInvalidPageSize) ||
		errors.Is(err, paginator.ErrPaginationStale) {
		return err
	}
	return nil
}
