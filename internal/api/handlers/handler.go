// handler.go — основной обработчик BFF API: маршруты представлений,
// общие помощники ответа и отображение доменных ошибок в HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/licitaciones-workbench/internal/api/errors"
	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
	"github.com/bigkaa/licitaciones-workbench/internal/facets"
	"github.com/bigkaa/licitaciones-workbench/internal/filters"
	"github.com/bigkaa/licitaciones-workbench/internal/orchestrator"
	"github.com/bigkaa/licitaciones-workbench/internal/paginator"
	"github.com/bigkaa/licitaciones-workbench/internal/workspace"
)

// APIHandler — основной обработчик BFF API.
type APIHandler struct {
	health *HealthHandler
	views  *workspace.Registry
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	views *workspace.Registry,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		views:  views,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты API.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1/views", func(r chi.Router) {
		r.Post("/", h.CreateView)

		r.Route("/{viewID}", func(r chi.Router) {
			r.Use(h.viewContext)

			r.Get("/", h.GetView)
			r.Delete("/", h.DeleteView)

			r.Put("/filters/{field}", h.SetFilter)
			r.Delete("/filters", h.ResetFilters)
			r.Post("/search", h.Search)
			r.Put("/page", h.GoToPage)
			r.Post("/page/next", h.NextPage)
			r.Post("/page/prev", h.PrevPage)
			r.Put("/page-size", h.SetPageSize)
			r.Put("/report-type", h.SetReportType)
			r.Get("/facets/{facet}", h.MatchFacet)

			r.Post("/editor", h.StartEditor)
			r.Patch("/editor", h.EditorOp)
			r.Post("/editor/save", h.SaveEditor)
			r.Delete("/editor", h.CloseEditor)

			r.Post("/records/{recordID}/duplicate", h.Duplicate)
			r.Post("/records/{recordID}/delete", h.RequestDelete)
			r.Post("/delete/confirm", h.ConfirmDelete)
			r.Delete("/delete", h.CancelDelete)
		})
	})
}

type viewKey struct{}

// viewContext находит представление по {viewID} и кладёт его в контекст запроса.
// Идентификатор, не являющийся UUID, равнозначен неизвестному.
func (h *APIHandler) viewContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var viewID openapi_types.UUID
		err := runtime.BindStyledParameterWithOptions("simple", "viewID", chi.URLParam(r, "viewID"), &viewID,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			apierrors.NotFound(w, r, "Представление не найдено или истекло")
			return
		}

		v, err := h.views.Get(viewID.String())
		if err != nil {
			apierrors.NotFound(w, r, "Представление не найдено или истекло")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewKey{}, v)))
	})
}

func viewFromContext(ctx context.Context) *workspace.View {
	v, _ := ctx.Value(viewKey{}).(*workspace.View)
	return v
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// decodeBody разбирает JSON-тело запроса. При ошибке пишет 400 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		apierrors.ValidationError(w, r, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeDomainError отображает ошибку команды представления в HTTP-ответ.
func (h *APIHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *editor.ValidationError
		terr   *orchestrator.TransitionError
		apiErr *dataclient.APIError
	)

	switch {
	case errors.As(err, &verr):
		apierrors.MissingFields(w, r, "Complete los campos obligatorios", verr.Missing, string(verr.Tab))
	case errors.Is(err, workspace.ErrViewNotFound),
		errors.Is(err, workspace.ErrRecordNotFound),
		errors.Is(err, facets.ErrUnknownFacet):
		apierrors.NotFound(w, r, err.Error())
	case errors.As(err, &terr),
		errors.Is(err, orchestrator.ErrEditorClosed),
		errors.Is(err, orchestrator.ErrEditorBusy),
		errors.Is(err, paginator.ErrPaginationStale):
		apierrors.Conflict(w, r, err.Error())
	case isInputError(err):
		apierrors.ValidationError(w, r, err.Error())
	case errors.As(err, &apiErr):
		apierrors.UpstreamRejected(w, r, apiErr.Message)
	default:
		h.logger.Warn("Сервис данных недоступен",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.DataServiceUnavailable(w, r, dataclient.Message(err))
	}
}

// inputErrors — ошибки, вызванные некорректным запросом клиента.
var inputErrors = []error{
	workspace.ErrInvalidInput,
	workspace.ErrUnknownOp,
	filters.ErrUnknownField,
	paginator.ErrPageOutOfRange,
	paginator.ErrInvalidPageSize,
	editor.ErrIndexOutOfRange,
	editor.ErrUnknownField,
	editor.ErrInvalidValue,
	orchestrator.ErrAuthCodeRequired,
	orchestrator.ErrMissingID,
}

func isInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
