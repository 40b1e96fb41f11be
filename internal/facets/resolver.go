// Пакет facets — загрузка словарей для элементов фильтра.
//
// Глобальные словари запрашиваются один раз; пустые или не полученные
// заменяются встроенными значениями. Провинции и округа запрашиваются
// при каждом изменении родителя. Каждый такой запрос помечается
// порядковым номером по своему измерению: ответ с устаревшим номером
// отбрасывается и не перезаписывает более новый список.
package facets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

var (
	// ErrStaleResponse — ответ пришёл после более нового запроса того же измерения.
	ErrStaleResponse = errors.New("устаревший ответ словаря отброшен")
	// ErrUnknownFacet — запрошен неизвестный словарь.
	ErrUnknownFacet = errors.New("неизвестный словарь")
)

var staleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wb_facet_stale_responses_total",
	Help: "Количество отброшенных устаревших ответов дочерних словарей.",
}, []string{"facet"})

// separateFacets — глобальные словари, запрашиваемые отдельными endpoint'ами.
var separateFacets = []model.FacetName{
	model.FacetCategorias,
	model.FacetCompradores,
	model.FacetAnios,
	model.FacetMeses,
	model.FacetTiposGarantia,
}

// Source — источник словарей (сервис данных).
type Source interface {
	GetGlobalOptions(ctx context.Context) (model.GlobalOptions, error)
	GetFacet(ctx context.Context, name model.FacetName) ([]string, error)
	GetProvinces(ctx context.Context, departamento string) ([]string, error)
	GetDistricts(ctx context.Context, departamento, provincia string) ([]string, error)
}

// Resolver — словари одного представления.
// Потокобезопасен через sync.RWMutex.
type Resolver struct {
	source Source
	cache  *OptionsCache
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	global    model.Facets
	provinces []string
	districts []string
	provSeq   uint64
	distSeq   uint64
}

// NewResolver создаёт резолвер. cache может быть nil — тогда дочерние
// словари всегда запрашиваются у источника.
// До вызова Init глобальные словари заполнены встроенными значениями.
func NewResolver(source Source, cache *OptionsCache, logger *slog.Logger) *Resolver {
	r := &Resolver{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "facet_resolver")),
		now:    time.Now,
	}
	r.global = r.withFallbacks(model.Facets{})
	return r
}

// Init загружает глобальные словари. Ошибки источника не фатальны:
// для каждого пустого словаря подставляется встроенный.
// Возвращает имена словарей, для которых использованы встроенные значения.
func (r *Resolver) Init(ctx context.Context) []model.FacetName {
	loaded := model.Facets{}

	opts, err := r.source.GetGlobalOptions(ctx)
	if err != nil {
		r.logger.Warn("Не удалось загрузить глобальные словари",
			slog.String("error", err.Error()),
		)
	} else {
		for name, values := range opts.Facets() {
			loaded[name] = values
		}
	}

	for _, name := range separateFacets {
		values, err := r.source.GetFacet(ctx, name)
		if err != nil {
			r.logger.Warn("Не удалось загрузить словарь",
				slog.String("facet", string(name)),
				slog.String("error", err.Error()),
			)
			continue
		}
		loaded[name] = values
	}

	var fallbacks []model.FacetName
	for _, name := range model.GlobalFacetNames {
		if len(loaded[name]) == 0 {
			fallbacks = append(fallbacks, name)
		}
	}
	if len(fallbacks) > 0 {
		r.logger.Info("Использованы встроенные словари",
			slog.Any("facets", fallbacks),
		)
	}

	r.mu.Lock()
	r.global = r.withFallbacks(loaded)
	r.mu.Unlock()

	return fallbacks
}

// withFallbacks дополняет набор встроенными значениями для пустых словарей.
func (r *Resolver) withFallbacks(f model.Facets) model.Facets {
	out := make(model.Facets, len(model.GlobalFacetNames))
	for _, name := range model.GlobalFacetNames {
		if values := f[name]; len(values) > 0 {
			out[name] = slices.Clone(values)
			continue
		}
		out[name] = defaultOptions(name, r.now())
	}
	return out
}

// Request — заявка на загрузку дочернего словаря. Номер заявки фиксируется
// в момент создания, поэтому ответ более ранней заявки отбрасывается
// независимо от порядка выполнения загрузок.
type Request struct {
	facet  model.FacetName
	seq    uint64
	key    string
	parent string
	load   func(context.Context) ([]string, error)
}

// BeginProvinces регистрирует заявку на провинции департамента.
// Текущие списки провинций и округов сбрасываются сразу, заявки в полёте
// становятся устаревшими.
func (r *Resolver) BeginProvinces(departamento string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.provSeq++
	r.distSeq++
	r.provinces = nil
	r.districts = nil

	req := &Request{facet: model.FacetProvincias, seq: r.provSeq, parent: departamento}
	if departamento != "" {
		req.key = "provincias|" + departamento
		req.load = func(ctx context.Context) ([]string, error) {
			return r.source.GetProvinces(ctx, departamento)
		}
	}
	return req
}

// BeginDistricts регистрирует заявку на округа провинции.
// Текущий список округов сбрасывается сразу.
func (r *Resolver) BeginDistricts(departamento, provincia string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.distSeq++
	r.districts = nil

	req := &Request{facet: model.FacetDistritos, seq: r.distSeq, parent: provincia}
	if provincia != "" {
		req.key = "distritos|" + departamento + "|" + provincia
		req.load = func(ctx context.Context) ([]string, error) {
			return r.source.GetDistricts(ctx, departamento, provincia)
		}
	}
	return req
}

// Finish выполняет заявку и применяет результат, если за это время не была
// зарегистрирована более новая заявка того же словаря.
// Пустой родитель — пустой список без запроса. Ошибка источника оставляет
// список пустым.
func (r *Resolver) Finish(ctx context.Context, req *Request) ([]string, error) {
	if req.load == nil {
		return []string{}, nil
	}

	list, err := r.fetch(ctx, req.key, req.load)

	r.mu.Lock()
	defer r.mu.Unlock()

	seq, dst := &r.provSeq, &r.provinces
	if req.facet == model.FacetDistritos {
		seq, dst = &r.distSeq, &r.districts
	}
	if req.seq != *seq {
		staleTotal.WithLabelValues(string(req.facet)).Inc()
		return nil, ErrStaleResponse
	}
	if err != nil {
		*dst = []string{}
		return []string{}, fmt.Errorf("загрузка словаря %s для %q: %w", req.facet, req.parent, err)
	}
	*dst = list
	return slices.Clone(list), nil
}

// ResolveProvinces запрашивает провинции департамента и ждёт результат.
func (r *Resolver) ResolveProvinces(ctx context.Context, departamento string) ([]string, error) {
	return r.Finish(ctx, r.BeginProvinces(departamento))
}

// ResolveDistricts запрашивает округа провинции и ждёт результат.
func (r *Resolver) ResolveDistricts(ctx context.Context, departamento, provincia string) ([]string, error) {
	return r.Finish(ctx, r.BeginDistricts(departamento, provincia))
}

// fetch возвращает список из кэша или запрашивает его у источника.
// Ошибки не кэшируются.
func (r *Resolver) fetch(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	if r.cache != nil {
		if list, ok := r.cache.Get(key); ok {
			return list, nil
		}
	}
	list, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	if r.cache != nil {
		r.cache.Set(key, list)
	}
	return list, nil
}

// DropChildren сбрасывает списки провинций и округов и
// инвалидирует запросы, находящиеся в полёте.
func (r *Resolver) DropChildren() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provSeq++
	r.distSeq++
	r.provinces = nil
	r.districts = nil
}

// DropDistricts сбрасывает список округов.
func (r *Resolver) DropDistricts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distSeq++
	r.districts = nil
}

// Options возвращает текущий список значений словаря (копию).
func (r *Resolver) Options(name model.FacetName) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch name {
	case model.FacetProvincias:
		return slices.Clone(r.provinces), nil
	case model.FacetDistritos:
		return slices.Clone(r.districts), nil
	}
	values, ok := r.global[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFacet, name)
	}
	return slices.Clone(values), nil
}

// Snapshot возвращает все текущие словари, включая дочерние.
func (r *Resolver) Snapshot() model.Facets {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(model.Facets, len(r.global)+2)
	for name, values := range r.global {
		out[name] = slices.Clone(values)
	}
	out[model.FacetProvincias] = slices.Clone(r.provinces)
	out[model.FacetDistritos] = slices.Clone(r.districts)
	return out
}

// Match ранжирует значения словаря по нечёткому совпадению с query
// (без учёта регистра и диакритики). Пустой query — весь словарь.
// limit <= 0 — без ограничения.
func (r *Resolver) Match(name model.FacetName, query string, limit int) ([]string, error) {
	options, err := r.Options(name)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return truncate(options, limit), nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, options)
	sort.Stable(ranks)

	out := make([]string, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, rank.Target)
	}
	return truncate(out, limit), nil
}

func truncate(list []string, limit int) []string {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
