package facets

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// --- Mock источника словарей ---

type mockSource struct {
	globalFn    func(ctx context.Context) (model.GlobalOptions, error)
	facetFn     func(ctx context.Context, name model.FacetName) ([]string, error)
	provincesFn func(ctx context.Context, dep string) ([]string, error)
	districtsFn func(ctx context.Context, dep, prov string) ([]string, error)
}

func (m *mockSource) GetGlobalOptions(ctx context.Context) (model.GlobalOptions, error) {
	if m.globalFn != nil {
		return m.globalFn(ctx)
	}
	return model.GlobalOptions{}, nil
}

func (m *mockSource) GetFacet(ctx context.Context, name model.FacetName) ([]string, error) {
	if m.facetFn != nil {
		return m.facetFn(ctx, name)
	}
	return nil, nil
}

func (m *mockSource) GetProvinces(ctx context.Context, dep string) ([]string, error) {
	if m.provincesFn != nil {
		return m.provincesFn(ctx, dep)
	}
	return nil, nil
}

func (m *mockSource) GetDistricts(ctx context.Context, dep, prov string) ([]string, error) {
	if m.districtsFn != nil {
		return m.districtsFn(ctx, dep, prov)
	}
	return nil, nil
}

// TestResolver_InitFallbacks проверяет подстановку встроенных словарей.
func TestResolver_InitFallbacks(t *testing.T) {
	src := &mockSource{
		globalFn: func(context.Context) (model.GlobalOptions, error) {
			return model.GlobalOptions{Estados: []string{"CONVOCADO"}, Departamentos: []string{}}, nil
		},
		facetFn: func(_ context.Context, name model.FacetName) ([]string, error) {
			if name == model.FacetCategorias {
				return []string{"OBRAS"}, nil
			}
			return nil, errors.New("недоступно")
		},
	}
	r := NewResolver(src, nil, slog.Default())
	r.now = func() time.Time { return time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC) }

	fallbacks := r.Init(context.Background())

	assert.NotContains(t, fallbacks, model.FacetEstados)
	assert.NotContains(t, fallbacks, model.FacetCategorias)
	assert.Contains(t, fallbacks, model.FacetDepartamentos)

	estados, err := r.Options(model.FacetEstados)
	require.NoError(t, err)
	assert.Equal(t, []string{"CONVOCADO"}, estados)

	deps, err := r.Options(model.FacetDepartamentos)
	require.NoError(t, err)
	assert.Contains(t, deps, "LIMA")
	assert.Len(t, deps, 25)

	years, err := r.Options(model.FacetAnios)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020", "2019", "2018"}, years)
}

// TestResolver_InitSourceDown проверяет, что полный отказ источника не оставляет
// пустых элементов управления (кроме словаря покупателей со свободным вводом).
func TestResolver_InitSourceDown(t *testing.T) {
	src := &mockSource{
		globalFn: func(context.Context) (model.GlobalOptions, error) {
			return model.GlobalOptions{}, errors.New("connection refused")
		},
		facetFn: func(context.Context, model.FacetName) ([]string, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := NewResolver(src, nil, slog.Default())
	r.Init(context.Background())

	for _, name := range model.GlobalFacetNames {
		if name == model.FacetCompradores {
			continue
		}
		opts, err := r.Options(name)
		require.NoError(t, err)
		assert.NotEmpty(t, opts, "словарь %s не должен быть пустым", name)
	}
}

// TestResolver_EmptyParent проверяет, что пустой родитель не вызывает запрос.
func TestResolver_EmptyParent(t *testing.T) {
	var calls atomic.Int32
	src := &mockSource{
		provincesFn: func(context.Context, string) ([]string, error) {
			calls.Add(1)
			return []string{"X"}, nil
		},
		districtsFn: func(context.Context, string, string) ([]string, error) {
			calls.Add(1)
			return []string{"Y"}, nil
		},
	}
	r := NewResolver(src, nil, slog.Default())

	provs, err := r.ResolveProvinces(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, provs)

	dists, err := r.ResolveDistricts(context.Background(), "LIMA", "")
	require.NoError(t, err)
	assert.Empty(t, dists)

	assert.Equal(t, int32(0), calls.Load())
}

// TestResolver_StaleProvinces проверяет, что медленный ответ для старого
// департамента не перезаписывает список нового.
func TestResolver_StaleProvinces(t *testing.T) {
	release := make(chan struct{})
	src := &mockSource{
		provincesFn: func(_ context.Context, dep string) ([]string, error) {
			if dep == "CUSCO" {
				<-release
				return []string{"URUBAMBA"}, nil
			}
			return []string{"LIMA", "HUAURA"}, nil
		},
	}
	r := NewResolver(src, nil, slog.Default())

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = r.ResolveProvinces(context.Background(), "CUSCO")
	}()

	// Ждём, пока медленный запрос займёт свой номер
	require.Eventually(t, func() bool {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.provSeq == 1
	}, time.Second, time.Millisecond)

	provs, err := r.ResolveProvinces(context.Background(), "LIMA")
	require.NoError(t, err)
	assert.Equal(t, []string{"LIMA", "HUAURA"}, provs)

	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrStaleResponse)
	current, _ := r.Options(model.FacetProvincias)
	assert.Equal(t, []string{"LIMA", "HUAURA"}, current)
}

// TestResolver_RequestOrderWins проверяет, что актуальность ответа определяется
// порядком регистрации заявок, а не порядком завершения загрузок.
func TestResolver_RequestOrderWins(t *testing.T) {
	src := &mockSource{
		provincesFn: func(_ context.Context, dep string) ([]string, error) {
			if dep == "CUSCO" {
				return []string{"CUSCO", "URUBAMBA"}, nil
			}
			return []string{"LIMA", "HUAURA"}, nil
		},
		districtsFn: func(_ context.Context, _, prov string) ([]string, error) {
			return []string{prov + "-1"}, nil
		},
	}
	r := NewResolver(src, nil, slog.Default())
	ctx := context.Background()

	_, err := r.ResolveProvinces(ctx, "LIMA")
	require.NoError(t, err)

	older := r.BeginProvinces("LIMA")
	newer := r.BeginProvinces("CUSCO")

	// Заявка сразу сбрасывает текущий список
	current, _ := r.Options(model.FacetProvincias)
	assert.Empty(t, current)

	provs, err := r.Finish(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, []string{"CUSCO", "URUBAMBA"}, provs)

	_, err = r.Finish(ctx, older)
	assert.ErrorIs(t, err, ErrStaleResponse)

	current, _ = r.Options(model.FacetProvincias)
	assert.Equal(t, []string{"CUSCO", "URUBAMBA"}, current)

	// То же для округов; новая заявка на провинции устаревает заявку на округа
	dist := r.BeginDistricts("CUSCO", "URUBAMBA")
	_ = r.BeginProvinces("LIMA")
	_, err = r.Finish(ctx, dist)
	assert.ErrorIs(t, err, ErrStaleResponse)
	dists, _ := r.Options(model.FacetDistritos)
	assert.Empty(t, dists)
}

// TestResolver_FailedChildFetch проверяет, что ошибка оставляет список пустым.
func TestResolver_FailedChildFetch(t *testing.T) {
	src := &mockSource{
		provincesFn: func(context.Context, string) ([]string, error) {
			return nil, errors.New("timeout")
		},
	}
	r := NewResolver(src, nil, slog.Default())

	provs, err := r.ResolveProvinces(context.Background(), "LIMA")
	require.Error(t, err)
	assert.Empty(t, provs)

	current, _ := r.Options(model.FacetProvincias)
	assert.Empty(t, current)
}

// TestResolver_ProvinceChangeDropsDistricts проверяет каскадный сброс округов.
func TestResolver_ProvinceChangeDropsDistricts(t *testing.T) {
	src := &mockSource{
		provincesFn: func(context.Context, string) ([]string, error) { return []string{"HUAURA"}, nil },
		districtsFn: func(context.Context, string, string) ([]string, error) { return []string{"HUACHO"}, nil },
	}
	r := NewResolver(src, nil, slog.Default())
	ctx := context.Background()

	_, err := r.ResolveProvinces(ctx, "LIMA")
	require.NoError(t, err)
	_, err = r.ResolveDistricts(ctx, "LIMA", "HUAURA")
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, []string{"HUACHO"}, snap[model.FacetDistritos])

	r.DropDistricts()
	dists, _ := r.Options(model.FacetDistritos)
	assert.Empty(t, dists)
	provs, _ := r.Options(model.FacetProvincias)
	assert.Equal(t, []string{"HUAURA"}, provs)

	r.DropChildren()
	provs, _ = r.Options(model.FacetProvincias)
	assert.Empty(t, provs)
}

// TestResolver_CacheReuse проверяет повторное использование кэша дочерних словарей.
func TestResolver_CacheReuse(t *testing.T) {
	var calls atomic.Int32
	src := &mockSource{
		provincesFn: func(context.Context, string) ([]string, error) {
			calls.Add(1)
			return []string{"HUAURA"}, nil
		},
	}
	r := NewResolver(src, NewOptionsCache(10, time.Minute), slog.Default())

	for range 3 {
		_, err := r.ResolveProvinces(context.Background(), "LIMA")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

// TestResolver_Match проверяет нечёткий поиск по словарю.
func TestResolver_Match(t *testing.T) {
	src := &mockSource{
		globalFn: func(context.Context) (model.GlobalOptions, error) {
			return model.GlobalOptions{Departamentos: []string{"LIMA", "LA LIBERTAD", "LAMBAYEQUE", "CUSCO"}}, nil
		},
	}
	r := NewResolver(src, nil, slog.Default())
	r.Init(context.Background())

	got, err := r.Match(model.FacetDepartamentos, "lib", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"LA LIBERTAD"}, got)

	got, err = r.Match(model.FacetDepartamentos, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"LIMA", "LA LIBERTAD"}, got)

	_, err = r.Match(model.FacetName("colores"), "x", 0)
	assert.ErrorIs(t, err, ErrUnknownFacet)
}
