// views.go — обработчики /api/v1/views: создание представления,
// фильтры, поиск, пагинация, тип отчёта и словари.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/licitaciones-workbench/internal/api/errors"
)

// maxFacetMatches — предел выдачи словаря по умолчанию при поиске.
const maxFacetMatches = 50

type createViewRequest struct {
	// Query — строка запроса закладки без «?» (например, departamento=LIMA&type=general).
	Query string `json:"query"`
}

type setFilterRequest struct {
	Value string `json:"value"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type pageSizeRequest struct {
	Limit int `json:"limit"`
}

type reportTypeRequest struct {
	Tipo string `json:"tipo"`
}

// CreateView — POST /api/v1/views.
// Создаёт представление из закладки и загружает первую страницу.
func (h *APIHandler) CreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	_, state, err := h.views.Create(r.Context(), req.Query)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, state)
}

// GetView — GET /api/v1/views/{viewID}.
func (h *APIHandler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, viewFromContext(r.Context()).State())
}

// DeleteView — DELETE /api/v1/views/{viewID}.
func (h *APIHandler) DeleteView(w http.ResponseWriter, r *http.Request) {
	h.views.Delete(viewFromContext(r.Context()).ID())
	w.WriteHeader(http.StatusNoContent)
}

// SetFilter — PUT /api/v1/views/{viewID}/filters/{field}.
// Поиск выполняется после паузы ввода, ответ содержит «сырое» состояние.
func (h *APIHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req setFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	v := viewFromContext(r.Context())
	if err := v.SetFilter(chi.URLParam(r, "field"), req.Value); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v.State())
}

// ResetFilters — DELETE /api/v1/views/{viewID}/filters.
func (h *APIHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, viewFromContext(r.Context()).ResetFilters())
}

// Search — POST /api/v1/views/{viewID}/search.
// Ошибка загрузки отражается в report.error, а не в статусе ответа.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, viewFromContext(r.Context()).Search())
}

// GoToPage — PUT /api/v1/views/{viewID}/page.
func (h *APIHandler) GoToPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := viewFromContext(r.Context()).GoToPage(r.Context(), req.Page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// NextPage — POST /api/v1/views/{viewID}/page/next.
func (h *APIHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	state, err := viewFromContext(r.Context()).NextPage(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// PrevPage — POST /api/v1/views/{viewID}/page/prev.
func (h *APIHandler) PrevPage(w http.ResponseWriter, r *http.Request) {
	state, err := viewFromContext(r.Context()).PrevPage(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// SetPageSize — PUT /api/v1/views/{viewID}/page-size.
func (h *APIHandler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	var req pageSizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := viewFromContext(r.Context()).SetPageSize(r.Context(), req.Limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// SetReportType — PUT /api/v1/views/{viewID}/report-type.
func (h *APIHandler) SetReportType(w http.ResponseWriter, r *http.Request) {
	var req reportTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := viewFromContext(r.Context()).SetReportType(r.Context(), req.Tipo)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// MatchFacet — GET /api/v1/views/{viewID}/facets/{facet}?q=&limit=.
// Без q возвращает весь словарь.
func (h *APIHandler) MatchFacet(w http.ResponseWriter, r *http.Request) {
	var (
		query *string
		limit *int
	)
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &query); err != nil {
		apierrors.ValidationError(w, r, "Некорректный параметр q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil || (limit != nil && *limit < 0) {
		apierrors.ValidationError(w, r, "Параметр limit должен быть неотрицательным целым")
		return
	}

	q, n := "", 0
	if query != nil {
		q = *query
	}
	if q != "" {
		n = maxFacetMatches
	}
	if limit != nil {
		n = *limit
	}

	options, err := viewFromContext(r.Context()).MatchFacet(chi.URLParam(r, "facet"), q, n)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": options})
}
