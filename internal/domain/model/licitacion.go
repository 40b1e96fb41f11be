package model

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Сервис данных обменивается суммами как JSON-числами.
	decimal.MarshalJSONWithoutQuotes = true
}

// Значения по умолчанию для новой записи.
const (
	DefaultCurrency     = "PEN"
	DefaultProcessState = "CONVOCADO"
	DateLayout          = "2006-01-02"
	MaxMemberPercentage = 100
)

// Типы гарантий.
const (
	GuaranteeBankGuarantee = "GARANTIA_BANCARIA"
	GuaranteeBondLetter    = "CARTA_FIANZA"
	GuaranteeSuretyPolicy  = "POLIZA_DE_CAUCION"
	GuaranteeNone          = "SIN_GARANTIA"
)

// RequiresIssuer возвращает true для банковских вариантов гарантии,
// у которых должна быть указана финансовая организация.
func RequiresIssuer(tipoGarantia string) bool {
	return tipoGarantia == GuaranteeBankGuarantee || tipoGarantia == GuaranteeBondLetter
}

// Licitacion — тендер (запись реестра госзакупок) с вложенными адъюдикациями.
// Обязательные для сохранения поля помечены тегом validate.
type Licitacion struct {
	IDConvocatoria       string              `json:"id_convocatoria,omitempty"`
	OCID                 string              `json:"ocid,omitempty"`
	IDContrato           string              `json:"id_contrato,omitempty"`
	Nomenclatura         string              `json:"nomenclatura,omitempty"`
	Descripcion          string              `json:"descripcion" validate:"required"`
	Comprador            string              `json:"comprador" validate:"required"`
	Departamento         string              `json:"departamento" validate:"required"`
	Provincia            string              `json:"provincia,omitempty"`
	Distrito             string              `json:"distrito,omitempty"`
	Categoria            string              `json:"categoria" validate:"required"`
	TipoProcedimiento    string              `json:"tipo_procedimiento,omitempty"`
	MontoEstimado        decimal.NullDecimal `json:"monto_estimado"`
	Moneda               string              `json:"moneda,omitempty"`
	MontoTotalAdjudicado decimal.NullDecimal `json:"monto_total_adjudicado"`
	Estado               string              `json:"estado,omitempty"`
	EstadoProceso        string              `json:"estado_proceso" validate:"required"`
	FechaPublicacion     string              `json:"fecha_publicacion,omitempty"`
	OrigenTipo           string              `json:"origen_tipo,omitempty"`
	Adjudicaciones       []Adjudicacion      `json:"adjudicaciones"`
}

// Clone возвращает глубокую копию тендера (слайсы не разделяются).
func (l Licitacion) Clone() Licitacion {
	out := l
	if l.Adjudicaciones != nil {
		out.Adjudicaciones = make([]Adjudicacion, len(l.Adjudicaciones))
		for i, a := range l.Adjudicaciones {
			out.Adjudicaciones[i] = a.Clone()
		}
	}
	return out
}

// Adjudicacion — адъюдикация (присуждение контракта) внутри тендера.
type Adjudicacion struct {
	IDAdjudicacion    string              `json:"id_adjudicacion,omitempty"`
	GanadorNombre     string              `json:"ganador_nombre"`
	GanadorRUC        string              `json:"ganador_ruc"`
	MontoAdjudicado   decimal.NullDecimal `json:"monto_adjudicado"`
	FechaAdjudicacion string              `json:"fecha_adjudicacion,omitempty"`
	EstadoItem        string              `json:"estado_item,omitempty"`
	TipoGarantia      string              `json:"tipo_garantia,omitempty"`
	EntidadFinanciera string              `json:"entidad_financiera,omitempty"`
	IDContrato        string              `json:"id_contrato,omitempty"`
	Consorcios        []ConsorcioMember   `json:"consorcios"`
}

// Clone возвращает копию адъюдикации с собственным списком членов консорциума.
func (a Adjudicacion) Clone() Adjudicacion {
	out := a
	if a.Consorcios != nil {
		out.Consorcios = make([]ConsorcioMember, len(a.Consorcios))
		copy(out.Consorcios, a.Consorcios)
	}
	return out
}

// ParticipationSum — сумма процентов участия членов консорциума.
func (a Adjudicacion) ParticipationSum() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range a.Consorcios {
		if m.PorcentajeParticipacion.Valid {
			sum = sum.Add(m.PorcentajeParticipacion.Decimal)
		}
	}
	return sum
}

// ConsorcioMember — член консорциума-победителя.
type ConsorcioMember struct {
	NombreMiembro           string              `json:"nombre_miembro"`
	RUCMiembro              string              `json:"ruc_miembro"`
	PorcentajeParticipacion decimal.NullDecimal `json:"porcentaje_participacion"`
}

// ContratoRow — строка таблицы контрактов из полной детализации.
type ContratoRow struct {
	IDContrato     string              `json:"id_contrato"`
	IDAdjudicacion string              `json:"id_adjudicacion,omitempty"`
	FechaFirma     string              `json:"fecha_firma,omitempty"`
	MontoContrato  decimal.NullDecimal `json:"monto_contrato"`
}

// ConsorcioRow — строка таблицы членов консорциумов, связанная с контрактом.
type ConsorcioRow struct {
	IDContrato string `json:"id_contrato"`
	ConsorcioMember
}

// Detail — полная детализация тендера в виде отдельных связанных таблиц.
// В ответе adjudicaciones не содержат вложенных consorcios: членство
// связывается с адъюдикацией через общий id_contrato.
type Detail struct {
	Licitacion     Licitacion     `json:"licitacion"`
	Adjudicaciones []Adjudicacion `json:"adjudicaciones"`
	Contratos      []ContratoRow  `json:"contratos"`
	Consorcios     []ConsorcioRow `json:"consorcios"`
}
