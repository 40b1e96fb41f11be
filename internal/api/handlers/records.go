// records.go — обработчики редактора записей, дублирования и удаления.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/licitaciones-workbench/internal/api/errors"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
	"github.com/bigkaa/licitaciones-workbench/internal/workspace"
)

type startEditorRequest struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type confirmDeleteRequest struct {
	AuthCode string `json:"authCode"`
}

// StartEditor — POST /api/v1/views/{viewID}/editor.
// mode=create открывает пустой черновик, mode=edit загружает запись id.
func (h *APIHandler) StartEditor(w http.ResponseWriter, r *http.Request) {
	var req startEditorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := editor.ParseMode(req.Mode)
	if err != nil {
		apierrors.ValidationError(w, r, err.Error())
		return
	}

	v := viewFromContext(r.Context())
	var state workspace.State
	if mode == editor.ModeCreate {
		state, err = v.StartCreate()
	} else {
		state, err = v.StartEdit(r.Context(), req.ID)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// EditorOp — PATCH /api/v1/views/{viewID}/editor.
func (h *APIHandler) EditorOp(w http.ResponseWriter, r *http.Request) {
	var cmd workspace.EditorCommand
	if !decodeBody(w, r, &cmd) {
		return
	}

	state, err := viewFromContext(r.Context()).EditorOp(cmd)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// SaveEditor — POST /api/v1/views/{viewID}/editor/save.
func (h *APIHandler) SaveEditor(w http.ResponseWriter, r *http.Request) {
	state, err := viewFromContext(r.Context()).Save(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// CloseEditor — DELETE /api/v1/views/{viewID}/editor.
func (h *APIHandler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	state, err := viewFromContext(r.Context()).CloseEditor()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// recordID извлекает {recordID} из пути. Идентификаторы записей
// приходят URL-кодированными. При ошибке пишет 400 и возвращает false.
func recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "recordID", chi.URLParam(r, "recordID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		apierrors.ValidationError(w, r, "Некорректный идентификатор записи: "+err.Error())
		return "", false
	}
	return id, true
}

// Duplicate — POST /api/v1/views/{viewID}/records/{recordID}/duplicate.
func (h *APIHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	state, err := viewFromContext(r.Context()).Duplicate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// RequestDelete — POST /api/v1/views/{viewID}/records/{recordID}/delete.
// Открывает диалог подтверждения.
func (h *APIHandler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	state, err := viewFromContext(r.Context()).RequestDelete(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// ConfirmDelete — POST /api/v1/views/{viewID}/delete/confirm.
func (h *APIHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	var req confirmDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := viewFromContext(r.Context()).ConfirmDelete(r.Context(), req.AuthCode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// CancelDelete — DELETE /api/v1/views/{viewID}/delete.
func (h *APIHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	state, err := viewFromContext(r.Context()).CancelDelete()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}
