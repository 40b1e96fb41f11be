package model

import "fmt"

// PageSizes — допустимые размеры страницы отчёта.
var PageSizes = []int{20, 50, 100, 500, 1000}

// DefaultPageSize — размер страницы по умолчанию.
const DefaultPageSize = 20

// IsValidPageSize проверяет, входит ли limit в набор допустимых размеров.
func IsValidPageSize(limit int) bool {
	for _, s := range PageSizes {
		if s == limit {
			return true
		}
	}
	return false
}

// PaginationState — состояние пагинации отчёта.
// Page всегда в диапазоне [1, max(TotalPages, 1)].
// Stale выставляется в момент изменения фильтров и снимается следующим успешным ответом.
type PaginationState struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	Stale      bool `json:"stale"`
}

// HasPrev — доступна ли кнопка «Anterior».
func (p PaginationState) HasPrev() bool {
	return p.Page > 1
}

// HasNext — доступна ли кнопка «Siguiente».
func (p PaginationState) HasNext() bool {
	return p.Page < p.TotalPages
}

// Label — подпись пагинации, например «Página 1 de 3 (45 items)».
func (p PaginationState) Label() string {
	return fmt.Sprintf("Página %d de %d (%d items)", p.Page, max(p.TotalPages, 1), p.Total)
}
