package model

import "slices"

// FacetName — имя словаря значений для фильтра.
type FacetName string

const (
	FacetEstados       FacetName = "estados"
	FacetAseguradoras  FacetName = "aseguradoras"
	FacetTiposEntidad  FacetName = "tipos_entidad"
	FacetObjetos       FacetName = "objetos"
	FacetDepartamentos FacetName = "departamentos"
	FacetCategorias    FacetName = "categorias"
	FacetCompradores   FacetName = "compradores"
	FacetAnios         FacetName = "anios"
	FacetMeses         FacetName = "meses"
	FacetTiposGarantia FacetName = "tipos_garantia"
	FacetProvincias    FacetName = "provincias"
	FacetDistritos     FacetName = "distritos"
)

// GlobalFacetNames — словари, загружаемые один раз при инициализации.
var GlobalFacetNames = []FacetName{
	FacetEstados,
	FacetAseguradoras,
	FacetTiposEntidad,
	FacetObjetos,
	FacetDepartamentos,
	FacetCategorias,
	FacetCompradores,
	FacetAnios,
	FacetMeses,
	FacetTiposGarantia,
}

// Facets — набор словарей: имя → упорядоченный список значений.
type Facets map[FacetName][]string

// Options возвращает копию списка значений словаря.
func (f Facets) Options(name FacetName) []string {
	return slices.Clone(f[name])
}

// GlobalOptions — ответ GET /api/filtros/opciones.
type GlobalOptions struct {
	Estados       []string `json:"estados"`
	Aseguradoras  []string `json:"aseguradoras"`
	TiposEntidad  []string `json:"tipos_entidad"`
	Objetos       []string `json:"objetos"`
	Departamentos []string `json:"departamentos"`
}

// Facets преобразует ответ в набор словарей.
func (o GlobalOptions) Facets() Facets {
	return Facets{
		FacetEstados:       o.Estados,
		FacetAseguradoras:  o.Aseguradoras,
		FacetTiposEntidad:  o.TiposEntidad,
		FacetObjetos:       o.Objetos,
		FacetDepartamentos: o.Departamentos,
	}
}
