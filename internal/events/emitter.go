// Package events publishes query-lifecycle stage events. The emitter is a
// dumb fan-out with a bounded, ordered per-task event log: it does not
// validate stage ordering, and a misbehaving observer can never abort the
// pipeline it is watching.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// DefaultBufferLimit bounds the per-task event history.
const DefaultBufferLimit = 64

// Callback receives every emitted event synchronously. Panics are caught
// and logged.
type Callback func(domain.StageEvent)

// subscriber is one live event channel for a task.
type subscriber struct {
	id int
	ch chan domain.StageEvent
}

// taskLog is the bounded, append-only event buffer for one task id.
type taskLog struct {
	events  []domain.StageEvent
	subs    []subscriber
	nextSub int
	done    bool
	created time.Time
}

// lastActivity is the idle-sweep reference point: the newest event, or
// the creation time for a log that has only pending subscribers.
func (t *taskLog) lastActivity() time.Time {
	if len(t.events) > 0 {
		return t.events[len(t.events)-1].Timestamp
	}
	return t.created
}

// Emitter fans stage events out to registered callbacks and per-task
// subscribers. Events for one task id are delivered in emit order; there
// is no ordering guarantee across tasks.
type Emitter struct {
	logger      *slog.Logger
	bufferLimit int

	mu        sync.Mutex
	tasks     map[string]*taskLog
	callbacks []Callback
}

// NewEmitter creates an Emitter. A non-positive bufferLimit defaults to 64.
func NewEmitter(logger *slog.Logger, bufferLimit int) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferLimit <= 0 {
		bufferLimit = DefaultBufferLimit
	}
	return &Emitter{logger: logger, bufferLimit: bufferLimit, tasks: make(map[string]*taskLog)}
}

// RegisterCallback attaches a callback invoked for every event.
func (e *Emitter) RegisterCallback(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

// Subscribe returns a channel that first replays the task's buffered
// history, then delivers live events. The channel is closed after a
// terminal stage. The returned cancel func detaches early.
func (e *Emitter) Subscribe(taskID string) (<-chan domain.StageEvent, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[taskID]
	if !ok {
		t = &taskLog{created: time.Now()}
		e.tasks[taskID] = t
	}

	ch := make(chan domain.StageEvent, len(t.events)+e.bufferLimit)
	for _, ev := range t.events {
		ch <- ev
	}
	if t.done {
		close(ch)
		return ch, func() {}
	}

	sub := subscriber{id: t.nextSub, ch: ch}
	t.nextSub++
	t.subs = append(t.subs, sub)

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		t, ok := e.tasks[taskID]
		if !ok {
			return
		}
		for i, s := range t.subs {
			if s.id == sub.id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				close(s.ch)
				break
			}
		}
		// A log with no events and no remaining subscribers was a
		// speculative subscription; reclaim it immediately.
		if len(t.subs) == 0 && len(t.events) == 0 {
			delete(e.tasks, taskID)
		}
	}
	return ch, cancel
}

// Emit publishes a stage event for taskID. A terminal stage closes all
// subscriber channels and discards the task's buffer.
func (e *Emitter) Emit(taskID string, stage domain.Stage, message string, data map[string]interface{}) {
	ev := domain.StageEvent{
		Stage:     stage,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
	}

	e.mu.Lock()
	t, ok := e.tasks[taskID]
	if !ok {
		t = &taskLog{created: time.Now()}
		e.tasks[taskID] = t
	}
	if t.done {
		e.mu.Unlock()
		e.logger.Warn("event after terminal stage discarded", "task_id", taskID, "stage", stage)
		return
	}

	t.events = append(t.events, ev)
	if len(t.events) > e.bufferLimit {
		t.events = t.events[len(t.events)-e.bufferLimit:]
	}

	for _, sub := range t.subs {
		select {
		case sub.ch <- ev:
		default:
			e.logger.Warn("slow event subscriber, dropping event", "task_id", taskID, "stage", stage)
		}
	}

	if stage.IsTerminal() {
		t.done = true
		for _, sub := range t.subs {
			close(sub.ch)
		}
		t.subs = nil
		delete(e.tasks, taskID)
	}

	callbacks := make([]Callback, len(e.callbacks))
	copy(callbacks, e.callbacks)
	e.mu.Unlock()

	for _, cb := range callbacks {
		e.invoke(cb, ev)
	}
}

// invoke runs one callback, converting a panic into a log line.
func (e *Emitter) invoke(cb Callback, ev domain.StageEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("stage event callback panicked", "task_id", ev.TaskID, "stage", ev.Stage, "panic", r)
		}
	}()
	cb(ev)
}

// Stage helpers. Callers invoke these in the documented sequence; the
// emitter does not enforce it.

func (e *Emitter) RequestReceived(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageRequestReceived, message, data)
}

func (e *Emitter) SchemaConfirmed(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageSchemaConfirmed, message, data)
}

func (e *Emitter) SQLGenerated(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageSQLGenerated, message, data)
}

func (e *Emitter) QueryExecuting(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageQueryExecuting, message, data)
}

func (e *Emitter) QueryCompleted(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageQueryCompleted, message, data)
}

func (e *Emitter) ResultValidating(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageResultValidating, message, data)
}

func (e *Emitter) ResultReady(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageResultReady, message, data)
}

func (e *Emitter) Error(taskID, message string, data map[string]interface{}) {
	e.Emit(taskID, domain.StageError, message, data)
}

// TaskCount returns the number of tracked (non-terminal) tasks.
func (e *Emitter) TaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// SweepIdle drops task logs with no activity newer than maxAge: stale
// buffers from pipelines that died mid-flight, and pending subscriptions
// to task ids that never started. Subscribers of a swept task see their
// channel close.
func (e *Emitter) SweepIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, t := range e.tasks {
		if t.lastActivity().After(cutoff) {
			continue
		}
		for _, sub := range t.subs {
			close(sub.ch)
		}
		delete(e.tasks, id)
		removed++
	}
	return removed
}
