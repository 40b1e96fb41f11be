package paginator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// mockSource — мок источника отчётов.
type mockSource struct {
	fn    func(ctx context.Context, req model.ReportRequest) (*model.ReportResponse, error)
	calls atomic.Int32
}

func (m *mockSource) GenerateReport(ctx context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
	m.calls.Add(1)
	return m.fn(ctx, req)
}

func rows(ids ...string) []model.Licitacion {
	out := make([]model.Licitacion, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Licitacion{IDConvocatoria: id, Descripcion: "Licitación " + id})
	}
	return out
}

func paged(total, totalPages, page int, ids ...string) *model.ReportResponse {
	return &model.ReportResponse{
		Success: true,
		Data:    rows(ids...),
		Pagination: &model.ReportPagination{
			Total: total, TotalPages: totalPages, Limit: 20, Page: page,
		},
	}
}

func newTestPaginator(t *testing.T, src Source) *Paginator {
	t.Helper()
	p, err := New(src, model.ReportCustom, 20, slog.Default())
	require.NoError(t, err)
	return p
}

// TestPaginator_FirstPage проверяет пример «Página 1 de 3 (45 items)».
func TestPaginator_FirstPage(t *testing.T) {
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		assert.Equal(t, model.ReportCustom, req.Tipo)
		assert.Equal(t, 1, req.Page)
		assert.Equal(t, 20, req.Limit)
		assert.Equal(t, "LIMA", req.Filtros.Departamento)
		return paged(45, 3, 1, "1", "2", "3"), nil
	}}
	p := newTestPaginator(t, src)

	snap, err := p.Search(context.Background(), model.SearchFilters{Departamento: "LIMA"})
	require.NoError(t, err)

	assert.Equal(t, "Página 1 de 3 (45 items)", snap.Label)
	assert.True(t, snap.HasNext)
	assert.False(t, snap.HasPrev)
	assert.False(t, snap.Pagination.Stale)
	assert.Len(t, snap.Records, 3)
}

// TestPaginator_Dedupe проверяет удаление дубликатов с сохранением порядка.
func TestPaginator_Dedupe(t *testing.T) {
	src := &mockSource{fn: func(context.Context, model.ReportRequest) (*model.ReportResponse, error) {
		resp := paged(4, 1, 1, "b", "a", "b", "c", "a")
		resp.Data = append(resp.Data, model.Licitacion{Descripcion: "sin id"}, model.Licitacion{Descripcion: "sin id 2"})
		return resp, nil
	}}
	p := newTestPaginator(t, src)

	snap, err := p.Search(context.Background(), model.SearchFilters{})
	require.NoError(t, err)

	ids := make([]string, 0, len(snap.Records))
	for _, r := range snap.Records {
		ids = append(ids, r.IDConvocatoria)
	}
	assert.Equal(t, []string{"b", "a", "c", "", ""}, ids)
}

// TestPaginator_Unpaginated проверяет ответ без блока pagination.
func TestPaginator_Unpaginated(t *testing.T) {
	src := &mockSource{fn: func(context.Context, model.ReportRequest) (*model.ReportResponse, error) {
		return &model.ReportResponse{Success: true, Data: rows("1", "2")}, nil
	}}
	p := newTestPaginator(t, src)

	snap, err := p.Search(context.Background(), model.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Pagination.Total)
	assert.Equal(t, 1, snap.Pagination.TotalPages)
	assert.False(t, snap.HasNext)
}

// TestPaginator_ClampsServerPage проверяет приведение страницы сервера к диапазону.
func TestPaginator_ClampsServerPage(t *testing.T) {
	src := &mockSource{fn: func(context.Context, model.ReportRequest) (*model.ReportResponse, error) {
		return paged(10, 1, 7, "1"), nil
	}}
	p := newTestPaginator(t, src)

	snap, err := p.Search(context.Background(), model.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Pagination.Page)
}

// TestPaginator_OutOfRange проверяет отказ без запроса для страниц вне диапазона.
func TestPaginator_OutOfRange(t *testing.T) {
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		return paged(45, 3, req.Page, "x"), nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.Search(ctx, model.SearchFilters{})
	require.NoError(t, err)
	require.Equal(t, int32(1), src.calls.Load())

	_, err = p.GoTo(ctx, 0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = p.Prev(ctx)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = p.GoTo(ctx, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, int32(1), src.calls.Load(), "запросы вне диапазона не отправляются")

	snap, err := p.GoTo(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Pagination.Page)
	assert.False(t, snap.HasNext)

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

// TestPaginator_FilterChangeResetsPage проверяет сброс на первую страницу.
func TestPaginator_FilterChangeResetsPage(t *testing.T) {
	var lastReq model.ReportRequest
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		lastReq = req
		return paged(100, 5, req.Page, "x"), nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.Search(ctx, model.SearchFilters{Categoria: "OBRAS"})
	require.NoError(t, err)
	_, err = p.GoTo(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, lastReq.Page)

	snap, err := p.Search(ctx, model.SearchFilters{Categoria: "BIENES"})
	require.NoError(t, err)
	assert.Equal(t, 1, lastReq.Page)
	assert.Equal(t, "BIENES", lastReq.Filtros.Categoria)
	assert.Equal(t, 1, snap.Pagination.Page)
}

// TestPaginator_NavigationRefusedWhileStale проверяет, что во время загрузки
// новых фильтров переход по прежним итогам отклоняется без запроса,
// а первая страница новых фильтров применяется.
func TestPaginator_NavigationRefusedWhileStale(t *testing.T) {
	release := make(chan struct{})
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		if req.Filtros.Departamento == "TACNA" {
			<-release
			return paged(3, 1, 1, "t1", "t2", "t3"), nil
		}
		return paged(100, 5, req.Page, "x"), nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.Search(ctx, model.SearchFilters{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var searchErr error
	var searchSnap Snapshot
	wg.Add(1)
	go func() {
		defer wg.Done()
		searchSnap, searchErr = p.Search(ctx, model.SearchFilters{Departamento: "TACNA"})
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, time.Millisecond)

	snap, err := p.GoTo(ctx, 4)
	assert.ErrorIs(t, err, ErrPaginationStale)
	assert.False(t, snap.HasNext)
	assert.False(t, snap.HasPrev)
	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, ErrPaginationStale)
	assert.Equal(t, int32(2), src.calls.Load(), "переход по устаревшим итогам не отправляется")

	close(release)
	wg.Wait()

	require.NoError(t, searchErr)
	assert.Equal(t, "Página 1 de 1 (3 items)", searchSnap.Label)
	final := p.Snapshot()
	assert.Len(t, final.Records, 3)
	assert.False(t, final.Pagination.Stale)
	assert.Equal(t, "TACNA", final.Filters.Departamento)
}

// TestPaginator_RefreshWhileStaleLoadsFirstPage проверяет, что обновление после
// неудачной смены фильтров запрашивает первую страницу новых фильтров.
func TestPaginator_RefreshWhileStaleLoadsFirstPage(t *testing.T) {
	var mu sync.Mutex
	var pages []int
	fail := false
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		pages = append(pages, req.Page)
		if fail {
			return nil, errors.New("timeout")
		}
		return paged(100, 5, req.Page, "x"), nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.Search(ctx, model.SearchFilters{})
	require.NoError(t, err)
	_, err = p.GoTo(ctx, 3)
	require.NoError(t, err)

	fail = true
	_, err = p.Search(ctx, model.SearchFilters{Categoria: "OBRAS"})
	require.Error(t, err)

	fail = false
	snap, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 1, 1}, pages)
	assert.Equal(t, 1, snap.Pagination.Page)
}

// TestPaginator_FailureKeepsData проверяет сохранение данных при ошибке.
func TestPaginator_FailureKeepsData(t *testing.T) {
	fail := false
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		if fail {
			return nil, &dataclient.APIError{Op: "GenerateReport", Status: http.StatusBadRequest, Message: "Límite excedido"}
		}
		return paged(45, 3, req.Page, "1", "2"), nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.Search(ctx, model.SearchFilters{})
	require.NoError(t, err)

	fail = true
	snap, err := p.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, "Límite excedido", snap.Error)
	assert.Equal(t, 1, snap.Pagination.Page, "страница не продвигается при ошибке")
	assert.Len(t, snap.Records, 2, "прежние данные сохраняются")

	fail = false
	snap, err = p.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 2, snap.Pagination.Page)

	p.Clear()
	snap = p.Snapshot()
	assert.Empty(t, snap.Records)
	assert.Equal(t, 1, snap.Pagination.Page)
}

// TestPaginator_TransportErrorMessage проверяет сообщение при сетевой ошибке.
func TestPaginator_TransportErrorMessage(t *testing.T) {
	src := &mockSource{fn: func(context.Context, model.ReportRequest) (*model.ReportResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	p := newTestPaginator(t, src)

	snap, err := p.Search(context.Background(), model.SearchFilters{})
	require.Error(t, err)
	assert.Contains(t, snap.Error, "connection refused")
	assert.True(t, snap.Pagination.Stale)
}

// TestPaginator_StaleResponseDiscarded проверяет, что медленный ответ на старые
// фильтры не перезаписывает результат более нового запроса.
func TestPaginator_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		if req.Filtros.Categoria == "OBRAS" {
			<-release
			return paged(1, 1, 1, "old"), nil
		}
		return paged(1, 1, 1, "new"), nil
	}}
	p := newTestPaginator(t, src)

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = p.Search(context.Background(), model.SearchFilters{Categoria: "OBRAS"})
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, p.Snapshot().Loading)

	snap, err := p.Search(context.Background(), model.SearchFilters{Categoria: "BIENES"})
	require.NoError(t, err)
	assert.Equal(t, "new", snap.Records[0].IDConvocatoria)

	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrStaleResponse)
	final := p.Snapshot()
	assert.Equal(t, "new", final.Records[0].IDConvocatoria)
	assert.Equal(t, "BIENES", final.Filters.Categoria)
	assert.False(t, final.Loading)
}

// TestPaginator_PageSize проверяет набор размеров страницы.
func TestPaginator_PageSize(t *testing.T) {
	var lastReq model.ReportRequest
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		lastReq = req
		return &model.ReportResponse{Success: true, Data: rows("1"), Pagination: &model.ReportPagination{
			Total: 1, TotalPages: 1, Limit: req.Limit, Page: 1,
		}}, nil
	}}
	p := newTestPaginator(t, src)
	ctx := context.Background()

	_, err := p.SetPageSize(ctx, 30)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	snap, err := p.SetPageSize(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, lastReq.Limit)
	assert.Equal(t, 500, snap.Pagination.PageSize)

	_, err = New(src, model.ReportCustom, 7, slog.Default())
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

// TestPaginator_ReportType проверяет смену типа отчёта.
func TestPaginator_ReportType(t *testing.T) {
	var lastReq model.ReportRequest
	src := &mockSource{fn: func(_ context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
		lastReq = req
		return paged(0, 0, 1), nil
	}}
	p := newTestPaginator(t, src)

	snap, err := p.SetReportType(context.Background(), model.ReportGuarantees)
	require.NoError(t, err)
	assert.Equal(t, model.ReportGuarantees, lastReq.Tipo)
	assert.Equal(t, model.ReportGuarantees, snap.ReportType)
	assert.Equal(t, "Página 1 de 1 (0 items)", snap.Label)
}

// TestDedupeBy проверяет обобщённую функцию удаления дубликатов.
func TestDedupeBy(t *testing.T) {
	got := DedupeBy([]int{3, 1, 3, 2, 1}, func(v int) (int, bool) { return v, true })
	assert.Equal(t, []int{3, 1, 2}, got)

	assert.Empty(t, DedupeBy([]int(nil), func(v int) (int, bool) { return v, true }))
}
