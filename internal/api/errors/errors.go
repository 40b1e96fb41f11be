// Пакет errors — конструкторы ответов с ошибками BFF.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// Коды ошибок API.
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeUpstreamRejected       = "UPSTREAM_REJECTED"
	CodeDataServiceUnavailable = "DATA_SERVICE_UNAVAILABLE"
	CodeInternalError          = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки. Missing и Tab заполняются только
// для незаполненных обязательных полей черновика.
type errorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Tab     string   `json:"tab,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	write(w, r, statusCode, errorDetail{Code: code, Message: message})
}

func write(w http.ResponseWriter, r *http.Request, statusCode int, detail errorDetail) {
	render.Status(r, statusCode)
	render.JSON(w, r, errorBody{Error: detail})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, CodeValidationError, message)
}

// MissingFields — 400 не заполнены обязательные поля черновика.
// tab — вкладка редактора с первым незаполненным полем.
func MissingFields(w http.ResponseWriter, r *http.Request, message string, missing []string, tab string) {
	write(w, r, http.StatusBadRequest, errorDetail{
		Code:    CodeValidationError,
		Message: message,
		Missing: missing,
		Tab:     tab,
	})
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, CodeNotFound, message)
}

// Conflict — 409 операция недопустима в текущем состоянии.
func Conflict(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusConflict, CodeConflict, message)
}

// UpstreamRejected — 422 сервис данных отклонил операцию (сообщение как есть).
func UpstreamRejected(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnprocessableEntity, CodeUpstreamRejected, message)
}

// DataServiceUnavailable — 502 сервис данных недоступен.
func DataServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadGateway, CodeDataServiceUnavailable, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusInternalServerError, CodeInternalError, message)
}
