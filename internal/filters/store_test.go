package filters

import (
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// recorder собирает опубликованные фильтры.
type recorder struct {
	mu   sync.Mutex
	seen []model.SearchFilters
}

func (r *recorder) record(f model.SearchFilters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, f)
}

func (r *recorder) all() []model.SearchFilters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SearchFilters(nil), r.seen...)
}

func newTestStore(t *testing.T, delay time.Duration) (*Store, *recorder) {
	t.Helper()
	loc, err := NewLocation("")
	require.NoError(t, err)
	s := NewStore(model.SearchFilters{}, delay, loc, slog.Default())
	t.Cleanup(s.Stop)
	rec := &recorder{}
	s.OnEffective(rec.record)
	return s, rec
}

// TestStore_CascadeIsSynchronous проверяет очистку дочерних полей до debounce.
func TestStore_CascadeIsSynchronous(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	require.NoError(t, s.SetField(model.FieldDepartamento, "LIMA"))
	require.NoError(t, s.SetField(model.FieldProvincia, "HUAURA"))
	require.NoError(t, s.SetField(model.FieldDistrito, "HUACHO"))

	require.NoError(t, s.SetField(model.FieldProvincia, "CANTA"))
	raw := s.Raw()
	assert.Equal(t, "LIMA", raw.Departamento)
	assert.Equal(t, "CANTA", raw.Provincia)
	assert.Empty(t, raw.Distrito)

	require.NoError(t, s.SetField(model.FieldDistrito, "OBRAJILLO"))
	require.NoError(t, s.SetField(model.FieldDepartamento, "CUSCO"))
	raw = s.Raw()
	assert.Equal(t, "CUSCO", raw.Departamento)
	assert.Empty(t, raw.Provincia)
	assert.Empty(t, raw.Distrito)

	// Эффективное состояние ещё не опубликовано
	assert.True(t, s.Effective().IsEmpty())
	assert.True(t, s.Pending())
}

// TestStore_CascadeHook проверяет уведомление о смене родителя.
func TestStore_CascadeHook(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	var fields []model.FilterField
	var states []model.SearchFilters
	s.OnCascade(func(field model.FilterField, _ string, f model.SearchFilters) {
		fields = append(fields, field)
		states = append(states, f)
	})

	require.NoError(t, s.SetField(model.FieldCategoria, "OBRAS"))
	require.NoError(t, s.SetField(model.FieldDepartamento, "LIMA"))
	require.NoError(t, s.SetField(model.FieldProvincia, "HUAURA"))

	assert.Equal(t, []model.FilterField{model.FieldDepartamento, model.FieldProvincia}, fields)
	assert.Equal(t, "HUAURA", states[1].Provincia)
}

// TestStore_Debounce проверяет, что серия изменений публикуется один раз.
func TestStore_Debounce(t *testing.T) {
	s, rec := newTestStore(t, 30*time.Millisecond)

	for _, v := range []string{"p", "pu", "pue", "puente"} {
		require.NoError(t, s.SetField(model.FieldBusqueda, v))
	}

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	seen := rec.all()
	require.Len(t, seen, 1)
	assert.Equal(t, "puente", seen[0].Busqueda)
	assert.Equal(t, "puente", s.Effective().Busqueda)
}

// TestStore_SameValueIsNoop проверяет, что запись того же значения не каскадирует.
func TestStore_SameValueIsNoop(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	require.NoError(t, s.SetField(model.FieldDepartamento, "LIMA"))
	require.NoError(t, s.SetField(model.FieldProvincia, "HUAURA"))
	require.NoError(t, s.SetField(model.FieldDepartamento, "LIMA"))

	assert.Equal(t, "HUAURA", s.Raw().Provincia)
}

// TestStore_Apply проверяет немедленную публикацию с отменой ожидания.
func TestStore_Apply(t *testing.T) {
	s, rec := newTestStore(t, 40*time.Millisecond)

	require.NoError(t, s.SetField(model.FieldCategoria, "OBRAS"))
	f := s.Apply()
	assert.Equal(t, "OBRAS", f.Categoria)
	assert.False(t, s.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.Len(t, rec.all(), 1, "отменённая отложенная публикация не должна сработать")
}

// TestStore_Reset проверяет очистку, отмену ожидания и уведомление соседей.
func TestStore_Reset(t *testing.T) {
	s, rec := newTestStore(t, time.Hour)

	resets := 0
	s.OnReset(func() { resets++ })

	require.NoError(t, s.SetField(model.FieldDepartamento, "LIMA"))
	require.NoError(t, s.SetField(model.FieldOrigenTipo, string(model.OriginManual)))
	s.Reset()

	assert.Equal(t, 1, resets)
	assert.True(t, s.Raw().IsEmpty())
	assert.True(t, s.Effective().IsEmpty())
	assert.False(t, s.Pending())
	require.Len(t, rec.all(), 1)
	assert.True(t, rec.all()[0].IsEmpty())
}

// TestStore_UnknownField проверяет отказ для неизвестного ключа.
func TestStore_UnknownField(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	err := s.SetField(model.FilterField("color"), "rojo")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.False(t, s.Pending())
}

// TestStore_MarkApplied проверяет синхронизацию URL только непустыми полями.
func TestStore_MarkApplied(t *testing.T) {
	loc, err := NewLocation("busqueda=viejo")
	require.NoError(t, err)
	s := NewStore(model.SearchFilters{}, time.Hour, loc, slog.Default())
	defer s.Stop()

	s.MarkApplied(model.SearchFilters{Departamento: "LIMA", Categoria: "OBRAS"}, model.ReportCustom)

	q := loc.Query()
	assert.Equal(t, url.Values{
		"departamento": {"LIMA"},
		"categoria":    {"OBRAS"},
		"type":         {"personalizado"},
	}, q)
}

// TestQueryCodec проверяет восстановление фильтров из закладки.
func TestQueryCodec(t *testing.T) {
	q, err := url.ParseQuery("departamento=LIMA&distrito=HUACHO&anio=2024&utm_source=mail&type=garantias")
	require.NoError(t, err)

	f, rt, err := DecodeQuery(q)
	require.NoError(t, err)
	assert.Equal(t, model.ReportGuarantees, rt)
	assert.Equal(t, model.SearchFilters{Departamento: "LIMA", Anio: "2024"}, f,
		"distrito без provincia отбрасывается")

	encoded, err := EncodeQuery(f, rt)
	require.NoError(t, err)
	assert.Equal(t, "anio=2024&departamento=LIMA&type=garantias", encoded.Encode())

	_, _, err = DecodeQuery(url.Values{"type": {"mapa"}})
	assert.Error(t, err)
}
