package editor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// mockDetailSource — мок источника детализации.
type mockDetailSource struct {
	fn func(ctx context.Context, id string) (*model.Detail, error)
}

func (m *mockDetailSource) GetDetail(ctx context.Context, id string) (*model.Detail, error) {
	return m.fn(ctx, id)
}

func pct(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

// validDraft создаёт редактор с заполненными обязательными полями.
func validDraft(t *testing.T) *Editor {
	t.Helper()
	e := NewCreate(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, e.SetField("descripcion", "Construcción de puente"))
	require.NoError(t, e.SetField("comprador", "MUNICIPALIDAD DE HUAURA"))
	require.NoError(t, e.SetField("departamento", "LIMA"))
	require.NoError(t, e.SetField("categoria", "OBRAS"))
	return e
}

// TestNewCreate_Defaults проверяет значения по умолчанию новой записи.
func TestNewCreate_Defaults(t *testing.T) {
	e := NewCreate(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	d := e.Draft()

	assert.Equal(t, ModeCreate, e.Mode())
	assert.Equal(t, "2025-03-14", d.FechaPublicacion)
	assert.Equal(t, "PEN", d.Moneda)
	assert.Equal(t, "CONVOCADO", d.EstadoProceso)
	assert.Equal(t, "MANUAL", d.OrigenTipo)
	assert.NotNil(t, d.Adjudicaciones)
	assert.Empty(t, d.Adjudicaciones)
	assert.False(t, e.Dirty())
}

// TestValidate_MissingDescription проверяет блокировку и переключение вкладки.
func TestValidate_MissingDescription(t *testing.T) {
	e := validDraft(t)
	require.NoError(t, e.SetTab(TabAdjudicaciones))
	require.NoError(t, e.SetField("descripcion", "   "))

	_, err := e.Payload()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"descripcion"}, verr.Missing)
	assert.Equal(t, TabGeneral, verr.Tab)
	assert.Equal(t, TabGeneral, e.Tab())
}

// TestValidate_FieldOrder проверяет порядок незаполненных полей и вкладку первого.
func TestValidate_FieldOrder(t *testing.T) {
	e := NewCreate(time.Now())
	require.NoError(t, e.SetField("estado_proceso", ""))

	err := e.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"descripcion", "comprador", "departamento", "estado_proceso", "categoria"}, verr.Missing)
	assert.Equal(t, TabGeneral, verr.Tab)

	e = validDraft(t)
	require.NoError(t, e.SetField("departamento", ""))
	err = e.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"departamento"}, verr.Missing)
	assert.Equal(t, TabUbicacion, verr.Tab)
	assert.Equal(t, TabUbicacion, e.Tab())
}

// TestPayload_ConsortiumOver100 проверяет, что сумма долей больше 100 — только предупреждение.
func TestPayload_ConsortiumOver100(t *testing.T) {
	e := validDraft(t)
	ai := e.AddAward()
	require.NoError(t, e.UpdateAward(ai, "tipo_garantia", model.GuaranteeBankGuarantee))
	for range 2 {
		mi, err := e.AddMember(ai)
		require.NoError(t, err)
		require.NoError(t, e.UpdateMember(ai, mi, "porcentaje_participacion", "60"))
	}

	payload, err := e.Payload()
	require.NoError(t, err, "сохранение не блокируется")
	require.Len(t, payload.Adjudicaciones[0].Consorcios, 2)

	codes := make([]string, 0)
	for _, w := range e.Warnings() {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{WarnIssuerMissing, WarnParticipationOver100}, codes)

	require.NoError(t, e.UpdateAward(ai, "entidad_financiera", "BBVA PERU"))
	require.NoError(t, e.UpdateMember(ai, 1, "porcentaje_participacion", "40"))
	assert.Empty(t, e.Warnings())
}

// TestCopyOnWrite проверяет, что ранее выданные снимки не меняются.
func TestCopyOnWrite(t *testing.T) {
	e := validDraft(t)
	ai := e.AddAward()
	_, err := e.AddMember(ai)
	require.NoError(t, err)
	require.NoError(t, e.UpdateMember(ai, 0, "nombre_miembro", "EMPRESA A"))

	before := e.Draft()

	require.NoError(t, e.UpdateMember(ai, 0, "nombre_miembro", "EMPRESA B"))
	require.NoError(t, e.UpdateAward(ai, "ganador_nombre", "CONSORCIO NORTE"))
	_, err = e.AddMember(ai)
	require.NoError(t, err)

	assert.Equal(t, "EMPRESA A", before.Adjudicaciones[0].Consorcios[0].NombreMiembro)
	assert.Empty(t, before.Adjudicaciones[0].GanadorNombre)
	assert.Len(t, before.Adjudicaciones[0].Consorcios, 1)

	after := e.Draft()
	assert.Equal(t, "EMPRESA B", after.Adjudicaciones[0].Consorcios[0].NombreMiembro)
	assert.Len(t, after.Adjudicaciones[0].Consorcios, 2)
}

// TestStructuralOps проверяет добавление и удаление элементов дерева.
func TestStructuralOps(t *testing.T) {
	e := validDraft(t)
	a0 := e.AddAward()
	a1 := e.AddAward()
	require.NoError(t, e.UpdateAward(a0, "ganador_nombre", "PRIMERO"))
	require.NoError(t, e.UpdateAward(a1, "ganador_nombre", "SEGUNDO"))

	_, err := e.AddMember(a1)
	require.NoError(t, err)
	_, err = e.AddMember(a1)
	require.NoError(t, err)
	require.NoError(t, e.UpdateMember(a1, 1, "ruc_miembro", "20600000002"))
	require.NoError(t, e.RemoveMember(a1, 0))

	d := e.Draft()
	require.Len(t, d.Adjudicaciones[1].Consorcios, 1)
	assert.Equal(t, "20600000002", d.Adjudicaciones[1].Consorcios[0].RUCMiembro)

	require.NoError(t, e.RemoveAward(a0))
	d = e.Draft()
	require.Len(t, d.Adjudicaciones, 1)
	assert.Equal(t, "SEGUNDO", d.Adjudicaciones[0].GanadorNombre)
}

// TestOps_Errors проверяет ошибки индексов, полей и значений.
func TestOps_Errors(t *testing.T) {
	e := validDraft(t)

	assert.ErrorIs(t, e.RemoveAward(0), ErrIndexOutOfRange)
	_, err := e.AddMember(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	ai := e.AddAward()
	assert.ErrorIs(t, e.UpdateMember(ai, 0, "nombre_miembro", "X"), ErrIndexOutOfRange)
	assert.ErrorIs(t, e.RemoveMember(ai, -1), ErrIndexOutOfRange)
	assert.ErrorIs(t, e.UpdateAward(ai, "color", "rojo"), ErrUnknownField)
	assert.ErrorIs(t, e.SetField("color", "rojo"), ErrUnknownField)

	assert.ErrorIs(t, e.UpdateAward(ai, "monto_adjudicado", "mil soles"), ErrInvalidValue)
	assert.ErrorIs(t, e.UpdateAward(ai, "monto_adjudicado", "-5"), ErrInvalidValue)
	assert.ErrorIs(t, e.UpdateAward(ai, "fecha_adjudicacion", "14/03/2025"), ErrInvalidValue)
	assert.ErrorIs(t, e.SetField("monto_estimado", "1,5,0"), ErrInvalidValue)

	mi, err := e.AddMember(ai)
	require.NoError(t, err)
	assert.ErrorIs(t, e.UpdateMember(ai, mi, "porcentaje_participacion", "150"), ErrInvalidValue)

	require.NoError(t, e.UpdateAward(ai, "monto_adjudicado", " 1500.75 "))
	assert.Equal(t, "1500.75", e.Draft().Adjudicaciones[ai].MontoAdjudicado.Decimal.String())
	require.NoError(t, e.UpdateAward(ai, "monto_adjudicado", ""))
	assert.False(t, e.Draft().Adjudicaciones[ai].MontoAdjudicado.Valid)

	assert.Error(t, e.SetTab(Tab("mapa")))
}

// TestSetField_LocationCascade проверяет очистку дочерних полей географии.
func TestSetField_LocationCascade(t *testing.T) {
	e := validDraft(t)
	require.NoError(t, e.SetField("provincia", "HUAURA"))
	require.NoError(t, e.SetField("distrito", "HUACHO"))

	require.NoError(t, e.SetField("departamento", "LIMA"))
	assert.Equal(t, "HUACHO", e.Draft().Distrito, "то же значение не каскадирует")

	require.NoError(t, e.SetField("provincia", "CANTA"))
	assert.Empty(t, e.Draft().Distrito)

	require.NoError(t, e.SetField("departamento", "CUSCO"))
	assert.Empty(t, e.Draft().Provincia)
}

// TestLoadForEdit проверяет загрузку детализации и вложение консорциумов.
func TestLoadForEdit(t *testing.T) {
	src := &mockDetailSource{fn: func(_ context.Context, id string) (*model.Detail, error) {
		assert.Equal(t, "55", id)
		return &model.Detail{
			Licitacion: model.Licitacion{Descripcion: "Puente", Comprador: "GORE LIMA"},
			Adjudicaciones: []model.Adjudicacion{
				{IDAdjudicacion: "a1", GanadorNombre: "CONSORCIO SUR"},
				{IDAdjudicacion: "a2", GanadorNombre: "EMPRESA SOLA", IDContrato: "c2"},
			},
			Contratos: []model.ContratoRow{{IDContrato: "c1", IDAdjudicacion: "a1"}},
			Consorcios: []model.ConsorcioRow{
				{IDContrato: "c1", ConsorcioMember: model.ConsorcioMember{NombreMiembro: "A", PorcentajeParticipacion: pct(50)}},
				{IDContrato: "c1", ConsorcioMember: model.ConsorcioMember{NombreMiembro: "B", PorcentajeParticipacion: pct(50)}},
				{IDContrato: "c9", ConsorcioMember: model.ConsorcioMember{NombreMiembro: "HUERFANO"}},
			},
		}, nil
	}}

	e, err := LoadForEdit(context.Background(), src, "55", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, e.Mode())
	assert.Equal(t, "55", e.ID())
	assert.Equal(t, 1, e.Orphans())

	d := e.Draft()
	assert.Equal(t, "55", d.IDConvocatoria)
	require.Len(t, d.Adjudicaciones, 2)
	assert.Equal(t, "c1", d.Adjudicaciones[0].IDContrato)
	require.Len(t, d.Adjudicaciones[0].Consorcios, 2)
	assert.Equal(t, "B", d.Adjudicaciones[0].Consorcios[1].NombreMiembro)
	assert.Empty(t, d.Adjudicaciones[1].Consorcios)
	assert.False(t, e.Dirty())
}

// TestLoadForEdit_Error проверяет проброс ошибки источника.
func TestLoadForEdit_Error(t *testing.T) {
	boom := errors.New("404")
	src := &mockDetailSource{fn: func(context.Context, string) (*model.Detail, error) { return nil, boom }}

	_, err := LoadForEdit(context.Background(), src, "1", slog.Default())
	assert.ErrorIs(t, err, boom)
}

// TestChanges проверяет список изменений относительно загруженной записи.
func TestChanges(t *testing.T) {
	e := NewCreate(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.SetField("descripcion", "Nueva"))
	e.AddAward()

	patch, err := e.Changes()
	require.NoError(t, err)
	paths := make([]string, 0, len(patch))
	awardsTouched := false
	for _, op := range patch {
		paths = append(paths, op.Path)
		if strings.HasPrefix(op.Path, "/adjudicaciones") {
			awardsTouched = true
		}
	}
	assert.Contains(t, paths, "/descripcion")
	assert.True(t, awardsTouched, "добавленная адъюдикация попадает в изменения: %v", paths)
	assert.True(t, e.Dirty())
}

// TestParseModeAndTab проверяет разбор режима и вкладки.
func TestParseModeAndTab(t *testing.T) {
	m, err := ParseMode("edit")
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, m)
	_, err = ParseMode("view")
	assert.Error(t, err)

	tab, err := ParseTab("montos")
	require.NoError(t, err)
	assert.Equal(t, TabMontos, tab)
	_, err = ParseTab("x")
	assert.ErrorIs(t, err, ErrUnknownField)
}
