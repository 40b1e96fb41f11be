// state_machine.go — явные состояния редактора и диалога удаления.
//
// Редактор: closed → open → saving → closed | error; error → saving (повтор)
// или closed. Диалог удаления: closed → pending → confirming → closed |
// error; error → confirming (повтор) или closed.
// Состояния — варианты с собственными данными: в закрытом редакторе
// черновика нет. Переход saving → closed выполняет только успешный ответ
// сервиса; команда закрытия в saving отклоняется (Orchestrator.Close).
package orchestrator

import (
	"fmt"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
)

// EditorKind — вид состояния редактора.
type EditorKind string

const (
	EditorClosed EditorKind = "closed"
	EditorOpen   EditorKind = "open"
	EditorSaving EditorKind = "saving"
	EditorFailed EditorKind = "error"
)

// EditorState — состояние редактора (закрытый набор вариантов).
type EditorState interface {
	Kind() EditorKind
}

// Closed — редактор закрыт.
type Closed struct{}

// Open — редактор открыт с черновиком.
type Open struct {
	Mode   editor.Mode
	Editor *editor.Editor
}

// Saving — черновик отправлен, ожидается ответ.
type Saving struct {
	Mode   editor.Mode
	Editor *editor.Editor
}

// Failed — редактор открыт с сообщением об ошибке сохранения или проверки.
type Failed struct {
	Mode       editor.Mode
	Editor     *editor.Editor
	Message    string
	Validation *editor.ValidationError
}

func (Closed) Kind() EditorKind { return EditorClosed }
func (Open) Kind() EditorKind   { return EditorOpen }
func (Saving) Kind() EditorKind { return EditorSaving }
func (Failed) Kind() EditorKind { return EditorFailed }

// editorTransitions — матрица допустимых переходов редактора.
var editorTransitions = map[EditorKind]map[EditorKind]bool{
	EditorClosed: {EditorOpen: true},
	EditorOpen:   {EditorSaving: true, EditorFailed: true, EditorClosed: true},
	EditorSaving: {EditorClosed: true, EditorFailed: true},
	EditorFailed: {EditorSaving: true, EditorFailed: true, EditorOpen: true, EditorClosed: true},
}

// DeleteKind — вид состояния диалога удаления.
type DeleteKind string

const (
	DeleteClosed     DeleteKind = "closed"
	DeletePending    DeleteKind = "delete-pending"
	DeleteConfirming DeleteKind = "confirming"
	DeleteFailed     DeleteKind = "confirming-with-error"
)

// DeleteState — состояние диалога удаления.
type DeleteState interface {
	Kind() DeleteKind
}

// DialogClosed — диалог удаления закрыт.
type DialogClosed struct{}

// DialogPending — диалог открыт, ожидается код авторизации.
type DialogPending struct {
	Record model.Licitacion
}

// DialogConfirming — запрос на удаление отправлен.
type DialogConfirming struct {
	Record model.Licitacion
}

// DialogFailed — сервис отказал, диалог остаётся открытым с причиной.
type DialogFailed struct {
	Record  model.Licitacion
	Message string
}

func (DialogClosed) Kind() DeleteKind     { return DeleteClosed }
func (DialogPending) Kind() DeleteKind    { return DeletePending }
func (DialogConfirming) Kind() DeleteKind { return DeleteConfirming }
func (DialogFailed) Kind() DeleteKind     { return DeleteFailed }

// deleteTransitions — матрица допустимых переходов диалога удаления.
var deleteTransitions = map[DeleteKind]map[DeleteKind]bool{
	DeleteClosed:     {DeletePending: true},
	DeletePending:    {DeleteConfirming: true, DeleteClosed: true},
	DeleteConfirming: {DeleteClosed: true, DeleteFailed: true},
	DeleteFailed:     {DeleteConfirming: true, DeleteClosed: true},
}

// stateMachine — конечный автомат над закрытым набором состояний.
// Не потокобезопасен: владелец держит мьютекс.
type stateMachine[K ~string, S interface{ Kind() K }] struct {
	name        string
	current     S
	transitions map[K]map[K]bool
}

func newStateMachine[K ~string, S interface{ Kind() K }](name string, initial S, transitions map[K]map[K]bool) stateMachine[K, S] {
	return stateMachine[K, S]{name: name, current: initial, transitions: transitions}
}

// canTransitionTo проверяет, допустим ли переход в состояние вида target.
func (sm *stateMachine[K, S]) canTransitionTo(target K) bool {
	return sm.transitions[sm.current.Kind()][target]
}

// transitionTo выполняет переход или возвращает *TransitionError.
func (sm *stateMachine[K, S]) transitionTo(next S) error {
	from, to := sm.current.Kind(), next.Kind()
	if !sm.transitions[from][to] {
		return &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("%s: переход %s → %s недопустим", sm.name, from, to),
		}
	}
	sm.current = next
	return nil
}

// TransitionError — ошибка перехода между состояниями.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
