// cache.go — LRU-кэш дочерних словарей (провинции, округа) с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package facets

import (
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша словарей.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wb_facet_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш дочерних словарей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wb_facet_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша дочерних словарей.",
	})
)

// OptionsCache — LRU-кэш списков значений с автоматическим TTL.
// Ключ включает родительское значение: "provincias|LIMA", "distritos|LIMA|HUAURA".
// Кэш общий для всех представлений процесса: словари не зависят от пользователя.
type OptionsCache struct {
	cache *expirable.LRU[string, []string]
}

// NewOptionsCache создаёт кэш с указанным максимальным размером и TTL.
func NewOptionsCache(maxSize int, ttl time.Duration) *OptionsCache {
	return &OptionsCache{cache: expirable.NewLRU[string, []string](maxSize, nil, ttl)}
}

// Get возвращает копию списка по ключу.
// Обновляет Prometheus-метрики hit/miss.
func (c *OptionsCache) Get(key string) ([]string, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return slices.Clone(val), true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет список в кэше.
func (c *OptionsCache) Set(key string, options []string) {
	c.cache.Add(key, slices.Clone(options))
}

// Purge очищает кэш.
func (c *OptionsCache) Purge() {
	c.cache.Purge()
}

// Len возвращает количество записей в кэше.
func (c *OptionsCache) Len() int {
	return c.cache.Len()
}
