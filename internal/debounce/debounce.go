// Пакет debounce — отменяемая отложенная задача.
//
// Task хранит не более одного отложенного вызова: каждый Schedule отменяет
// предыдущий и перезапускает таймер (cancel-and-reschedule). Таймер, который
// уже сработал, но проиграл гонку более новому Schedule или Cancel,
// ничего не вызывает — это отслеживается счётчиком поколений.
//
// Потокобезопасен через sync.Mutex.
package debounce

import (
	"sync"
	"time"
)

// Task — отложенная задача с отменой и перепланированием.
type Task struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	fn      func()
	stopped bool
}

// New создаёт задачу с фиксированной задержкой.
func New(delay time.Duration) *Task {
	return &Task{delay: delay}
}

// Delay возвращает задержку задачи.
func (t *Task) Delay() time.Duration {
	return t.delay
}

// Schedule планирует fn через delay, отменяя ранее запланированный вызов.
// После Stop вызов игнорируется.
func (t *Task) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.cancelLocked()

	gen := t.gen
	t.fn = fn
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
}

// Cancel отменяет запланированный вызов.
// Возвращает true, если вызов был запланирован.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.fn != nil
	t.cancelLocked()
	return pending
}

// Flush немедленно выполняет запланированный вызов (в текущей горутине).
// Возвращает false, если ничего не было запланировано.
func (t *Task) Flush() bool {
	t.mu.Lock()
	fn := t.fn
	if fn == nil {
		t.mu.Unlock()
		return false
	}
	t.cancelLocked()
	t.mu.Unlock()

	fn()
	return true
}

// Pending возвращает true, если вызов запланирован и ещё не выполнен.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn != nil
}

// Stop отменяет запланированный вызов и запрещает новые.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.stopped = true
}

// cancelLocked останавливает таймер и инвалидирует текущее поколение.
// Вызывается под t.mu.
func (t *Task) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.fn = nil
	t.gen++
}

// fire выполняет вызов, если поколение таймера всё ещё актуально.
func (t *Task) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.fn == nil {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	t.fn = nil
	t.timer = nil
	t.mu.Unlock()

	fn()
}
