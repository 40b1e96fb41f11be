// openapi.go — middleware проверки входящих запросов по описанию OpenAPI.
// Запросы к путям, которых нет в описании (health, metrics), пропускаются.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apierrors "github.com/bigkaa/licitaciones-workbench/internal/api/errors"
)

// OpenAPIValidator создаёт middleware, отклоняющий с 400 запросы,
// не соответствующие описанию: неизвестные значения перечислений,
// отсутствующие обязательные поля, некорректный JSON.
func OpenAPIValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("построение маршрутов OpenAPI: %w", err)
	}
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := router.FindRoute(r)
			if err != nil {
				// Неописанные пути и методы обрабатывает chi (404/405).
				if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
					logger.Warn("Ошибка поиска маршрута OpenAPI",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Debug("Запрос не прошёл проверку OpenAPI",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, r, validationMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationMessage сокращает ошибку kin-openapi до параметра и причины.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return "Некорректный запрос: " + err.Error()
	}

	var schemaErr *openapi3.SchemaError
	switch {
	case reqErr.Parameter != nil && errors.As(reqErr.Err, &schemaErr):
		return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, schemaErr.Reason)
	case reqErr.Parameter != nil:
		return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, reqErr.Error())
	case errors.As(reqErr.Err, &schemaErr):
		return fmt.Sprintf("Некорректное тело запроса: %s", schemaErr.Error())
	default:
		return "Некорректное тело запроса: " + reqErr.Error()
	}
}
