package editor

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// Tab — вкладка формы редактора.
type Tab string

const (
	TabGeneral        Tab = "general"
	TabUbicacion      Tab = "ubicacion"
	TabMontos         Tab = "montos"
	TabAdjudicaciones Tab = "adjudicaciones"
)

var tabs = []Tab{TabGeneral, TabUbicacion, TabMontos, TabAdjudicaciones}

// requiredFields — обязательные поля в порядке расположения на форме.
var requiredFields = []string{"descripcion", "comprador", "departamento", "estado_proceso", "categoria"}

// fieldTabs — вкладка, на которой расположено поле.
var fieldTabs = map[string]Tab{
	"descripcion":    TabGeneral,
	"comprador":      TabGeneral,
	"estado_proceso": TabGeneral,
	"categoria":      TabGeneral,
	"departamento":   TabUbicacion,
}

// validate — валидатор структур; имена полей берутся из json-тегов.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError — не заполнены обязательные поля.
// Tab — вкладка первого незаполненного поля.
type ValidationError struct {
	Missing []string `json:"missing"`
	Tab     Tab      `json:"tab"`
}

func (e *ValidationError) Error() string {
	return "не заполнены обязательные поля: " + strings.Join(e.Missing, ", ")
}

// Validate проверяет обязательные поля черновика.
// Строки из одних пробелов считаются незаполненными.
// При ошибке активная вкладка переключается на вкладку первого поля.
func (e *Editor) Validate() error {
	check := e.draft
	check.Descripcion = strings.TrimSpace(check.Descripcion)
	check.Comprador = strings.TrimSpace(check.Comprador)
	check.Departamento = strings.TrimSpace(check.Departamento)
	check.EstadoProceso = strings.TrimSpace(check.EstadoProceso)
	check.Categoria = strings.TrimSpace(check.Categoria)

	err := validate.Struct(check)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("проверка черновика: %w", err)
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Field()] = true
	}
	missing := make([]string, 0, len(failed))
	for _, f := range requiredFields {
		if failed[f] {
			missing = append(missing, f)
		}
	}

	verr := &ValidationError{Missing: missing, Tab: TabGeneral}
	if len(missing) > 0 {
		verr.Tab = fieldTabs[missing[0]]
	}
	e.tab = verr.Tab
	return verr
}

// Коды мягких предупреждений.
const (
	WarnIssuerMissing        = "ISSUER_MISSING"
	WarnParticipationOver100 = "PARTICIPATION_OVER_100"
)

// Warning — мягкое предупреждение, не блокирующее сохранение.
type Warning struct {
	Code    string `json:"code"`
	Award   int    `json:"award"`
	Message string `json:"message"`
}

// Warnings возвращает мягкие предупреждения по адъюдикациям:
// банковская гарантия без финансовой организации и сумма долей
// консорциума больше 100%.
func (e *Editor) Warnings() []Warning {
	var out []Warning
	limit := decimal.NewFromInt(model.MaxMemberPercentage)

	for i, a := range e.draft.Adjudicaciones {
		if model.RequiresIssuer(a.TipoGarantia) && strings.TrimSpace(a.EntidadFinanciera) == "" {
			out = append(out, Warning{
				Code:    WarnIssuerMissing,
				Award:   i,
				Message: fmt.Sprintf("Garantía %s sin entidad financiera", a.TipoGarantia),
			})
		}
		if sum := a.ParticipationSum(); sum.GreaterThan(limit) {
			out = append(out, Warning{
				Code:    WarnParticipationOver100,
				Award:   i,
				Message: fmt.Sprintf("La participación del consorcio suma %s%%", sum.String()),
			})
		}
	}
	return out
}

// ParseTab преобразует строку во вкладку.
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if !slices.Contains(tabs, t) {
		return "", fmt.Errorf("%w: вкладка %q", ErrUnknownField, s)
	}
	return t, nil
}
