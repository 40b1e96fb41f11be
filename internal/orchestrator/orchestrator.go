// Пакет orchestrator — жизненный цикл создания, изменения, дублирования
// и удаления тендеров.
//
// После успешного изменения оркестратор перезапрашивает текущую страницу
// отчёта и на время подсвечивает затронутую запись. Сохранения работают
// по принципу «последняя запись побеждает»: версии записи не сверяются,
// автоматических повторов нет.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wI2L/jsondiff"

	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
	"github.com/bigkaa/licitaciones-workbench/internal/debounce"
	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
)

// DefaultHighlightTTL — время подсветки изменённой записи.
const DefaultHighlightTTL = 4 * time.Second

var (
	// ErrEditorClosed — операция над черновиком при закрытом редакторе.
	ErrEditorClosed = errors.New("редактор закрыт")
	// ErrEditorBusy — операция над черновиком во время сохранения.
	ErrEditorBusy = errors.New("черновик сохраняется")
	// ErrAuthCodeRequired — удаление без кода авторизации.
	ErrAuthCodeRequired = errors.New("требуется код авторизации")
	// ErrMissingID — запись без идентификатора.
	ErrMissingID = errors.New("у записи нет идентификатора")
)

var mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wb_mutations_total",
	Help: "Количество операций изменения записей по типу и результату.",
}, []string{"op", "result"})

// RecordStore — хранилище записей (сервис данных).
type RecordStore interface {
	editor.DetailSource
	CreateLicitacion(ctx context.Context, l model.Licitacion) (string, error)
	UpdateLicitacion(ctx context.Context, id string, l model.Licitacion) error
	DuplicateLicitacion(ctx context.Context, id string) (string, error)
	DeleteLicitacion(ctx context.Context, id, authCode string) error
}

// Refresher перезапрашивает текущую страницу отчёта.
type Refresher func(ctx context.Context) error

// Highlight — временная подсветка записи после изменения.
type Highlight struct {
	ID             string    `json:"id"`
	ScrollIntoView bool      `json:"scroll_into_view"`
	Until          time.Time `json:"until"`
}

// Orchestrator — владелец состояний редактора и диалога удаления.
// Потокобезопасен через sync.Mutex; сетевые вызовы выполняются вне мьютекса.
type Orchestrator struct {
	store     RecordStore
	refresh   Refresher
	logger    *slog.Logger
	now       func() time.Time
	ttl       time.Duration
	highlight *debounce.Task

	mu       sync.Mutex
	editorSM stateMachine[EditorKind, EditorState]
	deleteSM stateMachine[DeleteKind, DeleteState]
	lit      *Highlight
	notice   string
}

// New создаёт оркестратор. refresh может быть nil.
func New(store RecordStore, refresh Refresher, highlightTTL time.Duration, logger *slog.Logger) *Orchestrator {
	if highlightTTL <= 0 {
		highlightTTL = DefaultHighlightTTL
	}
	return &Orchestrator{
		store:     store,
		refresh:   refresh,
		logger:    logger.With(slog.String("component", "orchestrator")),
		now:       time.Now,
		ttl:       highlightTTL,
		highlight: debounce.New(highlightTTL),
		editorSM:  newStateMachine[EditorKind, EditorState]("editor", Closed{}, editorTransitions),
		deleteSM:  newStateMachine[DeleteKind, DeleteState]("delete", DialogClosed{}, deleteTransitions),
	}
}

// StartCreate открывает редактор с пустой записью.
func (o *Orchestrator) StartCreate() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.editorSM.transitionTo(Open{Mode: editor.ModeCreate, Editor: editor.NewCreate(o.now())})
}

// StartEdit загружает полную детализацию записи и открывает редактор.
// При ошибке загрузки редактор остаётся закрытым, причина — в уведомлении.
func (o *Orchestrator) StartEdit(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	o.mu.Lock()
	if !o.editorSM.canTransitionTo(EditorOpen) {
		err := o.editorSM.transitionTo(Open{})
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	ed, err := editor.LoadForEdit(ctx, o.store, id, o.logger)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.notice = dataclient.Message(errors.Unwrap(err))
		return err
	}
	o.notice = ""
	return o.editorSM.transitionTo(Open{Mode: editor.ModeEdit, Editor: ed})
}

// Edit применяет операцию к черновику. Ошибка проверки после операции
// снимается: состояние error возвращается в open.
func (o *Orchestrator) Edit(fn func(ed *editor.Editor) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch st := o.editorSM.current.(type) {
	case Open:
		return fn(st.Editor)
	case Failed:
		if err := fn(st.Editor); err != nil {
			return err
		}
		return o.editorSM.transitionTo(Open{Mode: st.Mode, Editor: st.Editor})
	case Saving:
		return ErrEditorBusy
	default:
		return ErrEditorClosed
	}
}

// Save отправляет всё дерево черновика: create — POST, edit — PUT по id.
// Черновик с незаполненными обязательными полями не отправляется.
// При успехе редактор закрывается, отчёт перезапрашивается, запись подсвечивается.
func (o *Orchestrator) Save(ctx context.Context) (string, error) {
	o.mu.Lock()
	var mode editor.Mode
	var ed *editor.Editor
	switch st := o.editorSM.current.(type) {
	case Open:
		mode, ed = st.Mode, st.Editor
	case Failed:
		mode, ed = st.Mode, st.Editor
	case Saving:
		o.mu.Unlock()
		return "", ErrEditorBusy
	default:
		o.mu.Unlock()
		return "", ErrEditorClosed
	}

	payload, err := ed.Payload()
	if err != nil {
		var verr *editor.ValidationError
		errors.As(err, &verr)
		tErr := o.editorSM.transitionTo(Failed{
			Mode:       mode,
			Editor:     ed,
			Message:    "Complete los campos obligatorios: " + strings.Join(missingOf(verr), ", "),
			Validation: verr,
		})
		o.mu.Unlock()
		return "", errors.Join(err, tErr)
	}
	changes, _ := ed.Changes()
	if err := o.editorSM.transitionTo(Saving{Mode: mode, Editor: ed}); err != nil {
		o.mu.Unlock()
		return "", err
	}
	o.mu.Unlock()

	op := "create"
	id := ed.ID()
	if mode == editor.ModeCreate {
		id, err = o.store.CreateLicitacion(ctx, payload)
	} else {
		op = "update"
		err = o.store.UpdateLicitacion(ctx, id, payload)
	}

	o.mu.Lock()
	if err != nil {
		mutationsTotal.WithLabelValues(op, "error").Inc()
		tErr := o.editorSM.transitionTo(Failed{Mode: mode, Editor: ed, Message: dataclient.Message(err)})
		o.mu.Unlock()
		o.logger.Warn("Ошибка сохранения записи",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return "", errors.Join(fmt.Errorf("сохранение записи: %w", err), tErr)
	}
	mutationsTotal.WithLabelValues(op, "ok").Inc()
	tErr := o.editorSM.transitionTo(Closed{})
	o.notice = ""
	o.mu.Unlock()

	o.logger.Info("Запись сохранена",
		slog.String("op", op),
		slog.String("id", id),
		slog.Int("changes", len(changes)),
	)

	o.afterMutation(ctx, id)
	return id, tErr
}

// Close закрывает редактор без подтверждения, черновик отбрасывается.
// Пока черновик сохраняется, закрытие отклоняется с ErrEditorBusy:
// редактор закроет успешный ответ сервиса.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.editorSM.current.Kind() {
	case EditorClosed:
		return nil
	case EditorSaving:
		return ErrEditorBusy
	}
	return o.editorSM.transitionTo(Closed{})
}

// Duplicate создаёт копию записи на стороне сервиса и перезапрашивает отчёт.
func (o *Orchestrator) Duplicate(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrMissingID
	}

	newID, err := o.store.DuplicateLicitacion(ctx, id)
	if err != nil {
		mutationsTotal.WithLabelValues("duplicate", "error").Inc()
		o.setNotice(dataclient.Message(err))
		return "", fmt.Errorf("дублирование %s: %w", id, err)
	}
	mutationsTotal.WithLabelValues("duplicate", "ok").Inc()
	o.setNotice("")

	o.logger.Info("Запись продублирована",
		slog.String("id", id),
		slog.String("new_id", newID),
	)
	o.afterMutation(ctx, newID)
	return newID, nil
}

// RequestDelete открывает диалог удаления записи.
func (o *Orchestrator) RequestDelete(record model.Licitacion) error {
	if record.IDConvocatoria == "" {
		return ErrMissingID
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deleteSM.transitionTo(DialogPending{Record: record})
}

// ConfirmDelete удаляет запись с кодом авторизации.
// При отказе диалог остаётся открытым с причиной от сервиса.
func (o *Orchestrator) ConfirmDelete(ctx context.Context, authCode string) error {
	o.mu.Lock()
	var record model.Licitacion
	switch st := o.deleteSM.current.(type) {
	case DialogPending:
		record = st.Record
	case DialogFailed:
		record = st.Record
	default:
		err := o.deleteSM.transitionTo(DialogConfirming{})
		o.mu.Unlock()
		return err
	}
	if strings.TrimSpace(authCode) == "" {
		o.mu.Unlock()
		return ErrAuthCodeRequired
	}
	if err := o.deleteSM.transitionTo(DialogConfirming{Record: record}); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	id := record.IDConvocatoria
	err := o.store.DeleteLicitacion(ctx, id, authCode)

	o.mu.Lock()
	if err != nil {
		mutationsTotal.WithLabelValues("delete", "error").Inc()
		tErr := o.deleteSM.transitionTo(DialogFailed{Record: record, Message: dataclient.Message(err)})
		o.mu.Unlock()
		o.logger.Warn("Удаление отклонено",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return errors.Join(fmt.Errorf("удаление %s: %w", id, err), tErr)
	}
	mutationsTotal.WithLabelValues("delete", "ok").Inc()
	tErr := o.deleteSM.transitionTo(DialogClosed{})
	if o.lit != nil && o.lit.ID == id {
		o.lit = nil
	}
	o.mu.Unlock()

	o.logger.Info("Запись удалена", slog.String("id", id))
	o.runRefresh(ctx)
	return tErr
}

// CancelDelete закрывает диалог удаления.
func (o *Orchestrator) CancelDelete() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleteSM.current.Kind() == DeleteClosed {
		return nil
	}
	return o.deleteSM.transitionTo(DialogClosed{})
}

// Stop отменяет таймер подсветки.
func (o *Orchestrator) Stop() {
	o.highlight.Stop()
}

// afterMutation перезапрашивает отчёт и подсвечивает запись.
func (o *Orchestrator) afterMutation(ctx context.Context, id string) {
	o.runRefresh(ctx)
	if id == "" {
		return
	}

	o.mu.Lock()
	o.lit = &Highlight{ID: id, ScrollIntoView: true, Until: o.now().Add(o.ttl)}
	o.mu.Unlock()

	o.highlight.Schedule(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.lit = nil
	})
}

func (o *Orchestrator) runRefresh(ctx context.Context) {
	if o.refresh == nil {
		return
	}
	if err := o.refresh(ctx); err != nil {
		o.logger.Warn("Не удалось обновить отчёт после изменения",
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) setNotice(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notice = msg
}

func missingOf(verr *editor.ValidationError) []string {
	if verr == nil {
		return nil
	}
	return verr.Missing
}

// --- Снимок состояния ---

// EditorView — состояние редактора для отображения.
type EditorView struct {
	State    EditorKind        `json:"state"`
	Mode     editor.Mode       `json:"mode,omitempty"`
	ID       string            `json:"id,omitempty"`
	Draft    *model.Licitacion `json:"draft,omitempty"`
	Tab      editor.Tab        `json:"tab,omitempty"`
	Message  string            `json:"message,omitempty"`
	Missing  []string          `json:"missing,omitempty"`
	Warnings []editor.Warning  `json:"warnings,omitempty"`
	Changes  jsondiff.Patch    `json:"changes,omitempty"`
	Dirty    bool              `json:"dirty"`
}

// DeleteView — состояние диалога удаления для отображения.
type DeleteView struct {
	State    DeleteKind `json:"state"`
	RecordID string     `json:"record_id,omitempty"`
	Title    string     `json:"title,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// State — снимок состояния оркестратора.
type State struct {
	Editor    EditorView `json:"editor"`
	Delete    DeleteView `json:"delete"`
	Highlight *Highlight `json:"highlight,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

// Snapshot возвращает согласованный снимок состояния.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := State{
		Editor: editorView(o.editorSM.current),
		Delete: deleteView(o.deleteSM.current),
		Notice: o.notice,
	}
	if o.lit != nil {
		h := *o.lit
		st.Highlight = &h
	}
	return st
}

func editorView(s EditorState) EditorView {
	v := EditorView{State: s.Kind()}

	var ed *editor.Editor
	switch st := s.(type) {
	case Open:
		v.Mode, ed = st.Mode, st.Editor
	case Saving:
		v.Mode, ed = st.Mode, st.Editor
	case Failed:
		v.Mode, ed = st.Mode, st.Editor
		v.Message = st.Message
		if st.Validation != nil {
			v.Missing = st.Validation.Missing
		}
	}
	if ed == nil {
		return v
	}

	draft := ed.Draft()
	v.ID = ed.ID()
	v.Draft = &draft
	v.Tab = ed.Tab()
	v.Warnings = ed.Warnings()
	if patch, err := ed.Changes(); err == nil {
		v.Changes = patch
		v.Dirty = len(patch) > 0
	}
	return v
}

func deleteView(s DeleteState) DeleteView {
	v := DeleteView{State: s.Kind()}

	var record model.Licitacion
	switch st := s.(type) {
	case DialogPending:
		record = st.Record
	case DialogConfirming:
		record = st.Record
	case DialogFailed:
		record = st.Record
		v.Message = st.Message
	default:
		return v
	}
	v.RecordID = record.IDConvocatoria
	v.Title = record.Descripcion
	return v
}
