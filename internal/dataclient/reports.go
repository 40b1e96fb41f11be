package dataclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// GenerateReport запрашивает страницу отчёта.
// POST /api/reportes/generar
// Ответ с success: false возвращается вместе с *APIError.
func (c *Client) GenerateReport(ctx context.Context, req model.ReportRequest) (*model.ReportResponse, error) {
	var resp model.ReportResponse
	if err := c.do(ctx, "GenerateReport", http.MethodPost, "/api/reportes/generar", nil, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "No se pudo generar el reporte"
		}
		return &resp, &APIError{Op: "GenerateReport", Status: http.StatusOK, Message: msg}
	}
	return &resp, nil
}

// GetDetail запрашивает полную детализацию тендера.
// GET /api/licitaciones/{id}/detalle
func (c *Client) GetDetail(ctx context.Context, id string) (*model.Detail, error) {
	var detail model.Detail
	path := "/api/licitaciones/" + url.PathEscape(id) + "/detalle"
	if err := c.do(ctx, "GetDetail", http.MethodGet, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
