package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
)

var (
	// ErrRecordNotFound — записи нет на текущей странице отчёта.
	ErrRecordNotFound = errors.New("запись не найдена на текущей странице")
	// ErrUnknownOp — неизвестная операция редактора.
	ErrUnknownOp = errors.New("неизвестная операция редактора")
)

// Операции над черновиком.
const (
	OpSetField     = "set_field"
	OpSetTab       = "set_tab"
	OpAddAward     = "add_award"
	OpUpdateAward  = "update_award"
	OpRemoveAward  = "remove_award"
	OpAddMember    = "add_member"
	OpUpdateMember = "update_member"
	OpRemoveMember = "remove_member"
)

// EditorCommand — одна операция над черновиком.
// Award и Member — индексы адъюдикации и члена консорциума.
type EditorCommand struct {
	Op     string `json:"op"`
	Award  int    `json:"award"`
	Member int    `json:"member"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

func (c EditorCommand) apply(ed *editor.Editor) error {
	switch c.Op {
	case OpSetField:
		return ed.SetField(c.Field, c.Value)
	case OpSetTab:
		tab, err := editor.ParseTab(c.Value)
		if err != nil {
			return err
		}
		return ed.SetTab(tab)
	case OpAddAward:
		ed.AddAward()
		return nil
	case OpUpdateAward:
		return ed.UpdateAward(c.Award, c.Field, c.Value)
	case OpRemoveAward:
		return ed.RemoveAward(c.Award)
	case OpAddMember:
		_, err := ed.AddMember(c.Award)
		return err
	case OpUpdateMember:
		return ed.UpdateMember(c.Award, c.Member, c.Field, c.Value)
	case OpRemoveMember:
		return ed.RemoveMember(c.Award, c.Member)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
	}
}

// StartCreate открывает редактор новой записи.
func (v *View) StartCreate() (State, error) {
	err := v.orch.StartCreate()
	return v.State(), err
}

// StartEdit загружает запись и открывает редактор.
func (v *View) StartEdit(ctx context.Context, id string) (State, error) {
	err := v.orch.StartEdit(ctx, id)
	return v.State(), err
}

// EditorOp применяет операцию к черновику.
func (v *View) EditorOp(cmd EditorCommand) (State, error) {
	err := v.orch.Edit(cmd.apply)
	return v.State(), err
}

// Save сохраняет черновик целиком.
func (v *View) Save(ctx context.Context) (State, error) {
	_, err := v.orch.Save(ctx)
	return v.State(), err
}

// CloseEditor закрывает редактор без сохранения.
func (v *View) CloseEditor() (State, error) {
	err := v.orch.Close()
	return v.State(), err
}

// Duplicate дублирует запись.
func (v *View) Duplicate(ctx context.Context, id string) (State, error) {
	_, err := v.orch.Duplicate(ctx, id)
	return v.State(), err
}

// RequestDelete открывает диалог удаления записи с текущей страницы.
func (v *View) RequestDelete(id string) (State, error) {
	record, ok := v.findRecord(id)
	if !ok {
		return v.State(), fmt.Errorf("%w: %q", ErrRecordNotFound, id)
	}
	err := v.orch.RequestDelete(record)
	return v.State(), err
}

// ConfirmDelete удаляет запись с кодом авторизации.
func (v *View) ConfirmDelete(ctx context.Context, authCode string) (State, error) {
	err := v.orch.ConfirmDelete(ctx, authCode)
	return v.State(), err
}

// CancelDelete закрывает диалог удаления.
func (v *View) CancelDelete() (State, error) {
	err := v.orch.CancelDelete()
	return v.State(), err
}

func (v *View) findRecord(id string) (model.Licitacion, bool) {
	for _, r := range v.pag.Snapshot().Records {
		if r.IDConvocatoria == id {
			return r, true
		}
	}
	return model.Licitacion{}, false
}
