// Пакет filters — хранилище состояния фильтров отчёта.
//
// Каждое изменение поля сразу видно в «сыром» состоянии, а эффективное
// значение, по которому строится отчёт, публикуется после паузы ввода
// (debounce). Каскадная очистка дочерних полей географии выполняется
// синхронно с записью, до любой задержки.
package filters

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/licitaciones-workbench/internal/debounce"
	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// DefaultDebounce — пауза ввода по умолчанию.
const DefaultDebounce = 600 * time.Millisecond

// ErrUnknownField — попытка изменить несуществующее поле фильтра.
var ErrUnknownField = errors.New("неизвестное поле фильтра")

// CascadeHook вызывается после изменения поля, у которого есть дочерние
// поля (departamento, provincia). filters — состояние после каскада.
type CascadeHook func(field model.FilterField, value string, filters model.SearchFilters)

// Store — хранилище фильтров одного представления.
// Подписчики регистрируются до начала работы; вызываются вне мьютекса.
type Store struct {
	mu          sync.Mutex
	raw         model.SearchFilters
	effective   model.SearchFilters
	task        *debounce.Task
	location    *Location
	onEffective []func(model.SearchFilters)
	onReset     []func()
	onCascade   []CascadeHook
	logger      *slog.Logger
}

// NewStore создаёт хранилище с начальными фильтрами (например, из URL).
// location может быть nil — тогда URL не синхронизируется.
func NewStore(initial model.SearchFilters, delay time.Duration, location *Location, logger *slog.Logger) *Store {
	initial = initial.Normalize()
	return &Store{
		raw:       initial,
		effective: initial,
		task:      debounce.New(delay),
		location:  location,
		logger:    logger.With(slog.String("component", "filter_store")),
	}
}

// OnEffective регистрирует подписчика на публикацию эффективных фильтров.
func (s *Store) OnEffective(fn func(model.SearchFilters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEffective = append(s.onEffective, fn)
}

// OnReset регистрирует обработчик сброса (соседние компоненты сбрасываются синхронно).
func (s *Store) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// OnCascade регистрирует обработчик изменения родительского поля географии.
func (s *Store) OnCascade(fn CascadeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCascade = append(s.onCascade, fn)
}

// SetField изменяет поле и планирует публикацию эффективного состояния.
// Запись того же значения ничего не меняет.
// departamento очищает provincia и distrito, provincia очищает distrito.
func (s *Store) SetField(field model.FilterField, value string) error {
	s.mu.Lock()
	if _, err := model.ParseFilterField(string(field)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if s.raw.Get(field) == value {
		s.mu.Unlock()
		return nil
	}

	s.raw.Set(field, value)
	children := model.Children(field)
	for _, child := range children {
		s.raw.Set(child, "")
	}
	snapshot := s.raw
	hooks := append([]CascadeHook(nil), s.onCascade...)
	s.mu.Unlock()

	if len(children) > 0 {
		for _, hook := range hooks {
			hook(field, value, snapshot)
		}
	}

	s.task.Schedule(func() { s.publish() })
	return nil
}

// Apply публикует текущие фильтры немедленно, отменяя ожидающую публикацию
// (явное действие «Buscar»).
func (s *Store) Apply() model.SearchFilters {
	s.task.Cancel()
	return s.publish()
}

// Reset очищает все поля, отменяет ожидающую публикацию, уведомляет
// обработчики сброса и публикует пустые фильтры.
func (s *Store) Reset() {
	s.task.Cancel()

	s.mu.Lock()
	s.raw = model.SearchFilters{}
	hooks := append([]func(){}, s.onReset...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	s.logger.Debug("Фильтры сброшены")
	s.publish()
}

// publish делает сырое состояние эффективным и уведомляет подписчиков.
func (s *Store) publish() model.SearchFilters {
	s.mu.Lock()
	s.effective = s.raw
	f := s.effective
	subs := append([]func(model.SearchFilters){}, s.onEffective...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(f)
	}
	return f
}

// MarkApplied отражает применённые фильтры в URL.
// Вызывается после явного поиска или успешной загрузки по debounce.
func (s *Store) MarkApplied(f model.SearchFilters, rt model.ReportType) {
	if s.location == nil {
		return
	}
	q, err := EncodeQuery(f, rt)
	if err != nil {
		s.logger.Warn("Не удалось обновить URL",
			slog.String("error", err.Error()),
		)
		return
	}
	s.location.Replace(q)
}

// Raw возвращает текущее (ещё не опубликованное) состояние.
func (s *Store) Raw() model.SearchFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Effective возвращает последнее опубликованное состояние.
func (s *Store) Effective() model.SearchFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective
}

// Pending возвращает true, если публикация ожидает окончания паузы ввода.
func (s *Store) Pending() bool {
	return s.task.Pending()
}

// Stop отменяет ожидающую публикацию и запрещает новые.
func (s *Store) Stop() {
	s.task.Stop()
}
