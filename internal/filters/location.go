package filters

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/go-playground/form"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// ReportTypeParam — query-параметр типа отчёта.
const ReportTypeParam = "type"

// Кодеки form кэшируют структуру типов и безопасны для конкурентного использования.
var (
	queryEncoder = form.NewEncoder()
	queryDecoder = form.NewDecoder()
)

// EncodeQuery кодирует фильтры в query-параметры URL.
// В URL попадают только заданные поля и тип отчёта.
func EncodeQuery(f model.SearchFilters, rt model.ReportType) (url.Values, error) {
	values, err := queryEncoder.Encode(f.Normalize())
	if err != nil {
		return nil, fmt.Errorf("кодирование фильтров в URL: %w", err)
	}
	if rt != "" {
		values.Set(ReportTypeParam, string(rt))
	}
	return values, nil
}

// DecodeQuery восстанавливает фильтры и тип отчёта из query-параметров
// (закладка или ссылка). Неизвестные параметры игнорируются.
func DecodeQuery(q url.Values) (model.SearchFilters, model.ReportType, error) {
	var f model.SearchFilters
	if err := queryDecoder.Decode(&f, q); err != nil {
		return model.SearchFilters{}, "", fmt.Errorf("разбор фильтров из URL: %w", err)
	}
	rt, err := model.ParseReportType(q.Get(ReportTypeParam))
	if err != nil {
		return model.SearchFilters{}, "", err
	}
	return f.Normalize(), rt, nil
}

// Location — состояние адресной строки представления (query-часть URL).
// Потокобезопасна через sync.RWMutex.
type Location struct {
	mu    sync.RWMutex
	query url.Values
}

// NewLocation создаёт состояние из строки запроса (без «?»).
func NewLocation(rawQuery string) (*Location, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("разбор строки запроса: %w", err)
	}
	return &Location{query: q}, nil
}

// Query возвращает копию параметров.
func (l *Location) Query() url.Values {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneValues(l.query)
}

// Encode возвращает строку запроса в каноническом виде.
func (l *Location) Encode() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query.Encode()
}

// Replace заменяет параметры целиком.
func (l *Location) Replace(q url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = cloneValues(q)
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
