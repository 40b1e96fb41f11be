package model

import (
	"fmt"
	"slices"
)

// ReportType — тип отчёта, запрашиваемого у сервиса данных.
type ReportType string

const (
	ReportCustom     ReportType = "personalizado"
	ReportGeneral    ReportType = "general"
	ReportAwards     ReportType = "adjudicaciones"
	ReportGuarantees ReportType = "garantias"
)

// DefaultReportType — тип отчёта по умолчанию.
const DefaultReportType = ReportCustom

var reportTypes = []ReportType{ReportCustom, ReportGeneral, ReportAwards, ReportGuarantees}

// ParseReportType преобразует строку в ReportType. Пустая строка — тип по умолчанию.
func ParseReportType(s string) (ReportType, error) {
	if s == "" {
		return DefaultReportType, nil
	}
	t := ReportType(s)
	if !slices.Contains(reportTypes, t) {
		return "", fmt.Errorf("недопустимый тип отчёта: %q", s)
	}
	return t, nil
}

// ReportRequest — тело запроса POST /api/reportes/generar.
type ReportRequest struct {
	Tipo    ReportType    `json:"tipo"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	Filtros SearchFilters `json:"filtros"`
}

// ReportPagination — блок пагинации в ответе отчёта.
type ReportPagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Limit      int `json:"limit"`
	Page       int `json:"page"`
}

// ReportResponse — ответ сервиса данных на запрос отчёта.
// Отсутствие Pagination означает непостраничный результат.
type ReportResponse struct {
	Success    bool              `json:"success"`
	Data       []Licitacion      `json:"data"`
	Pagination *ReportPagination `json:"pagination,omitempty"`
	Error      string            `json:"error,omitempty"`
}
