// Пакет editor — редактор черновика тендера с вложенными адъюдикациями
// и членами консорциумов.
//
// Все структурные операции локальны до сохранения и выполняются по
// принципу copy-on-write: затронутые слайсы копируются, ранее выданные
// снимки не меняются. Сохраняется всё дерево одним запросом.
//
// Editor не потокобезопасен: владелец (оркестратор) сериализует доступ.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wI2L/jsondiff"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// Mode — режим редактора.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// ParseMode преобразует строку в Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCreate, ModeEdit:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("недопустимый режим редактора: %q, допустимые: create, edit", s)
	}
}

var (
	// ErrIndexOutOfRange — индекс адъюдикации или члена консорциума вне диапазона.
	ErrIndexOutOfRange = errors.New("индекс вне диапазона")
	// ErrUnknownField — неизвестное поле записи.
	ErrUnknownField = errors.New("неизвестное поле")
	// ErrInvalidValue — значение не проходит разбор (сумма, процент, дата).
	ErrInvalidValue = errors.New("некорректное значение")
)

// DetailSource — источник полной детализации тендера.
type DetailSource interface {
	GetDetail(ctx context.Context, id string) (*model.Detail, error)
}

// Editor — черновик тендера.
type Editor struct {
	mode     Mode
	id       string
	original model.Licitacion
	draft    model.Licitacion
	tab      Tab
	orphans  int
}

// NewCreate создаёт черновик новой записи со значениями по умолчанию:
// дата публикации — сегодня, валюта PEN, состояние процесса CONVOCADO.
func NewCreate(now time.Time) *Editor {
	draft := model.Licitacion{
		Moneda:           model.DefaultCurrency,
		EstadoProceso:    model.DefaultProcessState,
		FechaPublicacion: now.Format(model.DateLayout),
		OrigenTipo:       string(model.OriginManual),
		Adjudicaciones:   []model.Adjudicacion{},
	}
	return &Editor{
		mode:     ModeCreate,
		original: draft.Clone(),
		draft:    draft,
		tab:      TabGeneral,
	}
}

// LoadForEdit загружает полную детализацию тендера и собирает дерево.
func LoadForEdit(ctx context.Context, source DetailSource, id string, logger *slog.Logger) (*Editor, error) {
	detail, err := source.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("загрузка детализации %s: %w", id, err)
	}

	tree, orphans := Nest(*detail)
	if tree.IDConvocatoria == "" {
		tree.IDConvocatoria = id
	}
	if len(orphans) > 0 {
		logger.Warn("Члены консорциума без адъюдикации не попали в черновик",
			slog.String("id_convocatoria", id),
			slog.Int("orphans", len(orphans)),
		)
	}

	return &Editor{
		mode:     ModeEdit,
		id:       id,
		original: tree.Clone(),
		draft:    tree,
		tab:      TabGeneral,
		orphans:  len(orphans),
	}, nil
}

// Mode возвращает режим редактора.
func (e *Editor) Mode() Mode { return e.mode }

// ID возвращает идентификатор редактируемой записи (пусто в режиме create).
func (e *Editor) ID() string { return e.id }

// Tab возвращает активную вкладку.
func (e *Editor) Tab() Tab { return e.tab }

// SetTab переключает активную вкладку.
func (e *Editor) SetTab(tab Tab) error {
	if !slices.Contains(tabs, tab) {
		return fmt.Errorf("%w: вкладка %q", ErrUnknownField, tab)
	}
	e.tab = tab
	return nil
}

// Draft возвращает глубокую копию черновика.
func (e *Editor) Draft() model.Licitacion {
	return e.draft.Clone()
}

// SetField изменяет поле верхнего уровня.
// Смена departamento очищает provincia и distrito, смена provincia — distrito.
func (e *Editor) SetField(field, value string) error {
	next := e.draft
	if err := setTenderField(&next, field, value); err != nil {
		return err
	}
	switch {
	case next.Departamento != e.draft.Departamento:
		next.Provincia, next.Distrito = "", ""
	case next.Provincia != e.draft.Provincia:
		next.Distrito = ""
	}
	e.draft = next
	return nil
}

// AddAward добавляет пустую адъюдикацию. Возвращает её индекс.
func (e *Editor) AddAward() int {
	awards := make([]model.Adjudicacion, 0, len(e.draft.Adjudicaciones)+1)
	awards = append(awards, e.draft.Adjudicaciones...)
	awards = append(awards, model.Adjudicacion{Consorcios: []model.ConsorcioMember{}})
	e.draft.Adjudicaciones = awards
	return len(awards) - 1
}

// RemoveAward удаляет адъюдикацию вместе с её членами консорциума.
func (e *Editor) RemoveAward(i int) error {
	if err := e.checkAward(i); err != nil {
		return err
	}
	awards := make([]model.Adjudicacion, 0, len(e.draft.Adjudicaciones)-1)
	awards = append(awards, e.draft.Adjudicaciones[:i]...)
	awards = append(awards, e.draft.Adjudicaciones[i+1:]...)
	e.draft.Adjudicaciones = awards
	return nil
}

// UpdateAward изменяет поле адъюдикации.
func (e *Editor) UpdateAward(i int, field, value string) error {
	if err := e.checkAward(i); err != nil {
		return err
	}
	award := e.draft.Adjudicaciones[i]
	if err := setAwardField(&award, field, value); err != nil {
		return err
	}
	e.replaceAward(i, award)
	return nil
}

// AddMember добавляет пустого члена консорциума в адъюдикацию ai.
// Возвращает индекс нового члена.
func (e *Editor) AddMember(ai int) (int, error) {
	if err := e.checkAward(ai); err != nil {
		return 0, err
	}
	award := e.draft.Adjudicaciones[ai]
	members := make([]model.ConsorcioMember, 0, len(award.Consorcios)+1)
	members = append(members, award.Consorcios...)
	members = append(members, model.ConsorcioMember{})
	award.Consorcios = members
	e.replaceAward(ai, award)
	return len(members) - 1, nil
}

// UpdateMember изменяет поле члена консорциума.
func (e *Editor) UpdateMember(ai, mi int, field, value string) error {
	if err := e.checkMember(ai, mi); err != nil {
		return err
	}
	award := e.draft.Adjudicaciones[ai]
	member := award.Consorcios[mi]
	if err := setMemberField(&member, field, value); err != nil {
		return err
	}
	members := slices.Clone(award.Consorcios)
	members[mi] = member
	award.Consorcios = members
	e.replaceAward(ai, award)
	return nil
}

// RemoveMember удаляет члена консорциума.
func (e *Editor) RemoveMember(ai, mi int) error {
	if err := e.checkMember(ai, mi); err != nil {
		return err
	}
	award := e.draft.Adjudicaciones[ai]
	members := make([]model.ConsorcioMember, 0, len(award.Consorcios)-1)
	members = append(members, award.Consorcios[:mi]...)
	members = append(members, award.Consorcios[mi+1:]...)
	award.Consorcios = members
	e.replaceAward(ai, award)
	return nil
}

// replaceAward заменяет адъюдикацию в копии списка.
func (e *Editor) replaceAward(i int, award model.Adjudicacion) {
	awards := slices.Clone(e.draft.Adjudicaciones)
	awards[i] = award
	e.draft.Adjudicaciones = awards
}

func (e *Editor) checkAward(i int) error {
	if i < 0 || i >= len(e.draft.Adjudicaciones) {
		return fmt.Errorf("%w: адъюдикация %d (всего %d)", ErrIndexOutOfRange, i, len(e.draft.Adjudicaciones))
	}
	return nil
}

func (e *Editor) checkMember(ai, mi int) error {
	if err := e.checkAward(ai); err != nil {
		return err
	}
	members := e.draft.Adjudicaciones[ai].Consorcios
	if mi < 0 || mi >= len(members) {
		return fmt.Errorf("%w: член консорциума %d (всего %d)", ErrIndexOutOfRange, mi, len(members))
	}
	return nil
}

// Payload проверяет обязательные поля и возвращает всё дерево для сохранения.
// При ошибке проверки активная вкладка переключается на вкладку
// первого незаполненного поля.
func (e *Editor) Payload() (model.Licitacion, error) {
	if err := e.Validate(); err != nil {
		return model.Licitacion{}, err
	}
	return e.draft.Clone(), nil
}

// Changes возвращает изменения черновика относительно загруженной записи
// в формате JSON Patch (RFC 6902).
func (e *Editor) Changes() (jsondiff.Patch, error) {
	patch, err := jsondiff.Compare(e.original, e.draft)
	if err != nil {
		return nil, fmt.Errorf("сравнение черновика: %w", err)
	}
	return patch, nil
}

// Dirty возвращает true, если черновик отличается от загруженной записи.
func (e *Editor) Dirty() bool {
	patch, err := e.Changes()
	return err != nil || len(patch) > 0
}

// Orphans — количество строк членства, не привязанных к адъюдикациям при загрузке.
func (e *Editor) Orphans() int { return e.orphans }

// --- Разбор значений полей ---

func setTenderField(l *model.Licitacion, field, value string) error {
	switch field {
	case "nomenclatura":
		l.Nomenclatura = value
	case "ocid":
		l.OCID = value
	case "descripcion":
		l.Descripcion = value
	case "comprador":
		l.Comprador = value
	case "departamento":
		l.Departamento = value
	case "provincia":
		l.Provincia = value
	case "distrito":
		l.Distrito = value
	case "categoria":
		l.Categoria = value
	case "tipo_procedimiento":
		l.TipoProcedimiento = value
	case "moneda":
		l.Moneda = value
	case "estado":
		l.Estado = value
	case "estado_proceso":
		l.EstadoProceso = value
	case "origen_tipo":
		l.OrigenTipo = value
	case "fecha_publicacion":
		return setDate(&l.FechaPublicacion, field, value)
	case "monto_estimado":
		return setAmount(&l.MontoEstimado, field, value)
	case "monto_total_adjudicado":
		return setAmount(&l.MontoTotalAdjudicado, field, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func setAwardField(a *model.Adjudicacion, field, value string) error {
	switch field {
	case "ganador_nombre":
		a.GanadorNombre = value
	case "ganador_ruc":
		a.GanadorRUC = value
	case "estado_item":
		a.EstadoItem = value
	case "tipo_garantia":
		a.TipoGarantia = value
	case "entidad_financiera":
		a.EntidadFinanciera = value
	case "id_contrato":
		a.IDContrato = value
	case "fecha_adjudicacion":
		return setDate(&a.FechaAdjudicacion, field, value)
	case "monto_adjudicado":
		return setAmount(&a.MontoAdjudicado, field, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func setMemberField(m *model.ConsorcioMember, field, value string) error {
	switch field {
	case "nombre_miembro":
		m.NombreMiembro = value
	case "ruc_miembro":
		m.RUCMiembro = value
	case "porcentaje_participacion":
		var pct decimal.NullDecimal
		if err := setAmount(&pct, field, value); err != nil {
			return err
		}
		if pct.Valid && pct.Decimal.GreaterThan(decimal.NewFromInt(model.MaxMemberPercentage)) {
			return fmt.Errorf("%w: %s = %q больше %d", ErrInvalidValue, field, value, model.MaxMemberPercentage)
		}
		m.PorcentajeParticipacion = pct
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// setAmount разбирает неотрицательную сумму. Пустая строка — значение не задано.
func setAmount(dst *decimal.NullDecimal, field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*dst = decimal.NullDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%w: %s = %q", ErrInvalidValue, field, value)
	}
	if d.IsNegative() {
		return fmt.Errorf("%w: %s = %q отрицательное", ErrInvalidValue, field, value)
	}
	*dst = decimal.NewNullDecimal(d)
	return nil
}

// setDate проверяет формат даты YYYY-MM-DD. Пустая строка допустима.
func setDate(dst *string, field, value string) error {
	value = strings.TrimSpace(value)
	if value != "" {
		if _, err := time.Parse(model.DateLayout, value); err != nil {
			return fmt.Errorf("%w: %s = %q, ожидается YYYY-MM-DD", ErrInvalidValue, field, value)
		}
	}
	*dst = value
	return nil
}
