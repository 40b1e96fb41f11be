package dataclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// mutationResponse — ответ на операции изменения записей.
type mutationResponse struct {
	Success        *bool  `json:"success,omitempty"`
	ID             string `json:"id,omitempty"`
	IDConvocatoria string `json:"id_convocatoria,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// deleteRequest — тело запроса на удаление.
type deleteRequest struct {
	AuthCode string `json:"authCode"`
}

// recordPath формирует путь записи тендера.
func recordPath(id string) string {
	return "/api/licitaciones/" + url.PathEscape(id)
}

// CreateLicitacion создаёт тендер со всем деревом адъюдикаций.
// POST /api/licitaciones. Возвращает идентификатор новой записи (если сервис его сообщил).
func (c *Client) CreateLicitacion(ctx context.Context, l model.Licitacion) (string, error) {
	return c.mutate(ctx, "CreateLicitacion", http.MethodPost, "/api/licitaciones", l)
}

// UpdateLicitacion перезаписывает тендер целиком.
// PUT /api/licitaciones/{id}
func (c *Client) UpdateLicitacion(ctx context.Context, id string, l model.Licitacion) error {
	_, err := c.mutate(ctx, "UpdateLicitacion", http.MethodPut, recordPath(id), l)
	return err
}

// DuplicateLicitacion создаёт копию тендера на стороне сервиса.
// POST /api/licitaciones/{id}/duplicar
func (c *Client) DuplicateLicitacion(ctx context.Context, id string) (string, error) {
	return c.mutate(ctx, "DuplicateLicitacion", http.MethodPost, recordPath(id)+"/duplicar", nil)
}

// DeleteLicitacion удаляет тендер с кодом авторизации.
// DELETE /api/licitaciones/{id}
func (c *Client) DeleteLicitacion(ctx context.Context, id, authCode string) error {
	_, err := c.mutate(ctx, "DeleteLicitacion", http.MethodDelete, recordPath(id), deleteRequest{AuthCode: authCode})
	return err
}

// mutate выполняет операцию изменения и проверяет флаг success в ответе.
func (c *Client) mutate(ctx context.Context, op, method, path string, body any) (string, error) {
	var resp mutationResponse
	if err := c.do(ctx, op, method, path, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Success != nil && !*resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return "", &APIError{Op: op, Status: http.StatusOK, Message: msg}
	}
	if resp.IDConvocatoria != "" {
		return resp.IDConvocatoria, nil
	}
	return resp.ID, nil
}
