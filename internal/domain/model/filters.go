// Пакет model — доменные модели рабочего места отчётов по госзакупкам:
// фильтры поиска, пагинация, тендеры (licitaciones) с адъюдикациями
// и членами консорциумов, словари фасетов.
package model

import (
	"fmt"
	"slices"
)

// FilterField — ключ поля фильтра (совпадает с именем query-параметра URL).
type FilterField string

const (
	FieldBusqueda      FilterField = "busqueda"
	FieldDepartamento  FilterField = "departamento"
	FieldProvincia     FilterField = "provincia"
	FieldDistrito      FilterField = "distrito"
	FieldEstadoProceso FilterField = "estado_proceso"
	FieldCategoria     FilterField = "categoria"
	FieldComprador     FilterField = "comprador"
	FieldAseguradora   FilterField = "aseguradora"
	FieldAnio          FilterField = "anio"
	FieldMes           FilterField = "mes"
	FieldTipoGarantia  FilterField = "tipo_garantia"
	FieldOrigenTipo    FilterField = "origen_tipo"
)

// filterFields — порядок полей фильтра (порядок отображения и кодирования).
var filterFields = []FilterField{
	FieldBusqueda,
	FieldDepartamento,
	FieldProvincia,
	FieldDistrito,
	FieldEstadoProceso,
	FieldCategoria,
	FieldComprador,
	FieldAseguradora,
	FieldAnio,
	FieldMes,
	FieldTipoGarantia,
	FieldOrigenTipo,
}

// FilterFields возвращает все поля фильтра в каноническом порядке (копия).
func FilterFields() []FilterField {
	return slices.Clone(filterFields)
}

// ParseFilterField преобразует строку в FilterField.
func ParseFilterField(s string) (FilterField, error) {
	f := FilterField(s)
	if !slices.Contains(filterFields, f) {
		return "", fmt.Errorf("неизвестное поле фильтра: %q", s)
	}
	return f, nil
}

// Origin — происхождение записи тендера.
type Origin string

const (
	// OriginManual — запись создана аналитиком вручную
	OriginManual Origin = "MANUAL"
	// OriginAutomatic — запись загружена автоматически
	OriginAutomatic Origin = "AUTOMATICO"
)

// SearchFilters — плоский набор необязательных критериев поиска.
// Пустая строка означает «не задано».
// provincia имеет смысл только вместе с departamento, distrito — только с provincia.
type SearchFilters struct {
	Busqueda      string `json:"busqueda,omitempty" form:"busqueda,omitempty"`
	Departamento  string `json:"departamento,omitempty" form:"departamento,omitempty"`
	Provincia     string `json:"provincia,omitempty" form:"provincia,omitempty"`
	Distrito      string `json:"distrito,omitempty" form:"distrito,omitempty"`
	EstadoProceso string `json:"estado_proceso,omitempty" form:"estado_proceso,omitempty"`
	Categoria     string `json:"categoria,omitempty" form:"categoria,omitempty"`
	Comprador     string `json:"comprador,omitempty" form:"comprador,omitempty"`
	Aseguradora   string `json:"aseguradora,omitempty" form:"aseguradora,omitempty"`
	Anio          string `json:"anio,omitempty" form:"anio,omitempty"`
	Mes           string `json:"mes,omitempty" form:"mes,omitempty"`
	TipoGarantia  string `json:"tipo_garantia,omitempty" form:"tipo_garantia,omitempty"`
	OrigenTipo    string `json:"origen_tipo,omitempty" form:"origen_tipo,omitempty"`
}

// field возвращает указатель на поле структуры по ключу (nil для неизвестного ключа).
func (f *SearchFilters) field(key FilterField) *string {
	switch key {
	case FieldBusqueda:
		return &f.Busqueda
	case FieldDepartamento:
		return &f.Departamento
	case FieldProvincia:
		return &f.Provincia
	case FieldDistrito:
		return &f.Distrito
	case FieldEstadoProceso:
		return &f.EstadoProceso
	case FieldCategoria:
		return &f.Categoria
	case FieldComprador:
		return &f.Comprador
	case FieldAseguradora:
		return &f.Aseguradora
	case FieldAnio:
		return &f.Anio
	case FieldMes:
		return &f.Mes
	case FieldTipoGarantia:
		return &f.TipoGarantia
	case FieldOrigenTipo:
		return &f.OrigenTipo
	default:
		return nil
	}
}

// Get возвращает значение поля (пустая строка для неизвестного ключа).
func (f SearchFilters) Get(key FilterField) string {
	if p := f.field(key); p != nil {
		return *p
	}
	return ""
}

// Set присваивает значение полю. Возвращает false для неизвестного ключа.
// Каскадная очистка здесь не выполняется — ею управляет хранилище фильтров.
func (f *SearchFilters) Set(key FilterField, value string) bool {
	p := f.field(key)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// IsEmpty возвращает true, если ни одно поле не задано.
func (f SearchFilters) IsEmpty() bool {
	return f == SearchFilters{}
}

// Normalize отбрасывает «осиротевшие» дочерние поля географии:
// provincia без departamento и distrito без provincia.
func (f SearchFilters) Normalize() SearchFilters {
	if f.Departamento == "" {
		f.Provincia = ""
	}
	if f.Provincia == "" {
		f.Distrito = ""
	}
	return f
}

// Children возвращает поля, которые очищаются при изменении key.
// departamento → provincia, distrito; provincia → distrito.
func Children(key FilterField) []FilterField {
	switch key {
	case FieldDepartamento:
		return []FilterField{FieldProvincia, FieldDistrito}
	case FieldProvincia:
		return []FilterField{FieldDistrito}
	default:
		return nil
	}
}
