package facets

import (
	"slices"
	"strconv"
	"time"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// firstReportYear — первый год, за который сервис данных хранит тендеры.
const firstReportYear = 2018

// defaultVocabulary — встроенные словари на случай, когда сервис данных
// вернул пустой список или не ответил.
var defaultVocabulary = model.Facets{
	model.FacetEstados: {
		"CONVOCADO", "EN EVALUACION", "ADJUDICADO", "CONSENTIDO",
		"CONTRATADO", "DESIERTO", "NULO", "CANCELADO",
	},
	model.FacetAseguradoras: {
		"BANCO DE CREDITO DEL PERU", "BBVA PERU", "SCOTIABANK PERU", "INTERBANK",
		"BANBIF", "SECREX", "AVLA PERU", "INSUR", "MAPFRE PERU",
		"LA POSITIVA", "RIMAC SEGUROS",
	},
	model.FacetTiposEntidad: {
		"GOBIERNO NACIONAL", "GOBIERNO REGIONAL", "GOBIERNO LOCAL",
		"EMPRESA PUBLICA", "OTROS",
	},
	model.FacetObjetos: {"BIENES", "SERVICIOS", "OBRAS", "CONSULTORIA DE OBRAS"},
	model.FacetDepartamentos: {
		"AMAZONAS", "ANCASH", "APURIMAC", "AREQUIPA", "AYACUCHO", "CAJAMARCA",
		"CALLAO", "CUSCO", "HUANCAVELICA", "HUANUCO", "ICA", "JUNIN",
		"LA LIBERTAD", "LAMBAYEQUE", "LIMA", "LORETO", "MADRE DE DIOS",
		"MOQUEGUA", "PASCO", "PIURA", "PUNO", "SAN MARTIN", "TACNA",
		"TUMBES", "UCAYALI",
	},
	model.FacetCategorias: {"BIENES", "SERVICIOS", "OBRAS", "CONSULTORIA DE OBRAS"},
	model.FacetMeses:      {"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"},
	model.FacetTiposGarantia: {
		model.GuaranteeBankGuarantee, model.GuaranteeBondLetter,
		model.GuaranteeSuretyPolicy, model.GuaranteeNone,
	},
}

// defaultOptions возвращает встроенный словарь (копию).
// Годы вычисляются от текущего года назад до firstReportYear.
// Для compradores встроенного словаря нет: поле принимает произвольный текст.
func defaultOptions(name model.FacetName, now time.Time) []string {
	if name == model.FacetAnios {
		years := make([]string, 0, now.Year()-firstReportYear+1)
		for y := now.Year(); y >= firstReportYear; y-- {
			years = append(years, strconv.Itoa(y))
		}
		return years
	}
	return slices.Clone(defaultVocabulary[name])
}
