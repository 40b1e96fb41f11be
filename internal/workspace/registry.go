package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrViewNotFound — представление не существует или истекло.
var ErrViewNotFound = errors.New("представление не найдено")

var viewsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "wb_views_active",
	Help: "Количество активных представлений.",
})

// Registry — реестр представлений по UUID с вытеснением по TTL и размеру.
// Вытесненное представление останавливается (таймеры отменяются).
// Представления не синхронизируются между собой.
type Registry struct {
	views  *expirable.LRU[string, *View]
	opts   Options
	logger *slog.Logger
}

// NewRegistry создаёт реестр. TTL отсчитывается от последнего обращения.
func NewRegistry(opts Options, maxViews int, ttl time.Duration) *Registry {
	r := &Registry{
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "registry")),
	}
	r.views = expirable.NewLRU[string, *View](maxViews, r.onEvict, ttl)
	return r
}

// Create создаёт представление из строки запроса закладки и инициализирует его.
func (r *Registry) Create(ctx context.Context, rawQuery string) (*View, State, error) {
	id := uuid.NewString()
	v, err := NewView(id, rawQuery, r.opts)
	if err != nil {
		return nil, State{}, fmt.Errorf("создание представления: %w", err)
	}
	state := v.Init(ctx)

	r.views.Add(id, v)
	viewsActive.Inc()
	r.logger.Debug("Представление создано",
		slog.String("view", id),
		slog.String("query", rawQuery),
	)
	return v, state, nil
}

// Get возвращает представление и продлевает его TTL.
func (r *Registry) Get(id string) (*View, error) {
	v, ok := r.views.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	r.views.Add(id, v)
	return v, nil
}

// Delete закрывает представление. Возвращает false, если его не было.
func (r *Registry) Delete(id string) bool {
	return r.views.Remove(id)
}

// Len возвращает количество активных представлений.
func (r *Registry) Len() int {
	return r.views.Len()
}

// Close останавливает все представления.
func (r *Registry) Close() {
	r.views.Purge()
}

// onEvict вызывается под блокировкой LRU, поэтому остановка идёт в фоне.
func (r *Registry) onEvict(id string, v *View) {
	viewsActive.Dec()
	r.logger.Debug("Представление закрыто", slog.String("view", id))
	go v.Stop()
}
