// Package notify keeps the notification history and the single transient toast.
package notify

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"arena-sync/internal/model"
	"arena-sync/internal/pkg/ids"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 4 * time.Second

// EventType tells observers what happened to the toast.
type EventType int

const (
	// ToastShown is sent after a notification became the active toast.
	ToastShown EventType = iota
	// ToastCleared is sent after the active toast was dismissed or expired.
	ToastCleared
	// Recorded is sent when a notification was added to the history without a toast.
	Recorded
	// Read is sent when a notification was marked read.
	Read
)

// Event is delivered to observers outside the emitter lock.
type Event struct {
	Type         EventType
	Notification model.Notification
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Emitter) { e.clock = c }
}

// WithDuration sets the toast lifetime.
func WithDuration(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.duration = d
		}
	}
}

// Emitter prepends notifications to a newest-first history and shows the newest one
// as a toast. The toast is cleared by its own timer only, never by an older one.
type Emitter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	duration  time.Duration
	prefs     model.NotificationPreferences
	history   []model.Notification
	active    *model.Notification
	timer     clockwork.Timer
	observers []func(Event)
	stopped   bool
}

// NewEmitter creates an emitter with every toast kind enabled.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		clock:    clockwork.NewRealClock(),
		duration: DefaultDuration,
		prefs:    model.DefaultSettings().Notifications,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe registers fn for every subsequent event.
func (e *Emitter) Observe(fn func(Event)) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// SetPreferences updates which informational kinds may raise a toast.
func (e *Emitter) SetPreferences(p model.NotificationPreferences) {
	e.mu.Lock()
	e.prefs = p
	e.mu.Unlock()
}

// Emit records a notification and makes it the active toast, replacing any other.
// Kinds muted by the user's preferences are recorded without a toast.
func (e *Emitter) Emit(kind model.NotificationKind, title, message string) model.Notification {
	n := model.Notification{
		ID:      ids.New(),
		Kind:    kind,
		Title:   title,
		Message: message,
		Date:    e.clock.Now(),
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return n
	}
	e.history = append([]model.Notification{n}, e.history...)

	if !e.prefs.AllowsToast(kind) {
		observers := e.observers
		e.mu.Unlock()
		notifyAll(observers, Event{Type: Recorded, Notification: n})
		return n
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	toast := n
	e.active = &toast
	id := n.ID
	e.timer = e.clock.AfterFunc(e.duration, func() { e.expire(id) })
	observers := e.observers
	e.mu.Unlock()

	notifyAll(observers, Event{Type: ToastShown, Notification: n})
	return n
}

// expire clears the toast only when it is still the one the timer was armed for.
func (e *Emitter) expire(id string) {
	e.mu.Lock()
	if e.active == nil || e.active.ID != id {
		e.mu.Unlock()
		return
	}
	cleared := *e.active
	e.active = nil
	e.timer = nil
	observers := e.observers
	e.mu.Unlock()

	notifyAll(observers, Event{Type: ToastCleared, Notification: cleared})
}

// Dismiss clears the active toast early.
func (e *Emitter) Dismiss() {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	cleared := *e.active
	e.active = nil
	observers := e.observers
	e.mu.Unlock()

	notifyAll(observers, Event{Type: ToastCleared, Notification: cleared})
}

// MarkRead flags a notification of the history as read.
func (e *Emitter) MarkRead(id string) bool {
	e.mu.Lock()
	var (
		found bool
		n     model.Notification
	)
	for i := range e.history {
		if e.history[i].ID == id {
			e.history[i].Read = true
			n = e.history[i]
			found = true
			break
		}
	}
	observers := e.observers
	e.mu.Unlock()

	if found {
		notifyAll(observers, Event{Type: Read, Notification: n})
	}
	return found
}

// Active returns the visible toast, if any.
func (e *Emitter) Active() (model.Notification, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return model.Notification{}, false
	}
	return *e.active, true
}

// List returns a copy of the history, newest first.
func (e *Emitter) List() []model.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Notification(nil), e.history...)
}

// Unread counts unread notifications.
func (e *Emitter) Unread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, h := range e.history {
		if !h.Read {
			n++
		}
	}
	return n
}

// Reset drops the history, the toast and the user's preferences, e.g. on sign-out.
func (e *Emitter) Reset() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.history = nil
	e.active = nil
	e.prefs = model.DefaultSettings().Notifications
	e.mu.Unlock()
}

// Stop cancels the pending timer and ignores further emits.
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.stopped = true
}

func notifyAll(observers []func(Event), ev Event) {
	for _, fn := range observers {
		fn(ev)
	}
}
