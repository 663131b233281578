package diagnostics

import (
	"go.uber.org/zap"
)

// SubmitFunc schedules task on a background worker.
type SubmitFunc func(task func()) error

// AsyncEmitter hands events to next on a background worker. When the worker
// rejects the task the event is emitted on the calling goroutine instead.
type AsyncEmitter struct {
	next   Emitter
	submit SubmitFunc
}

// NewAsyncEmitter returns an emitter delivering to next through submit.
func NewAsyncEmitter(next Emitter, submit SubmitFunc) *AsyncEmitter {
	return &AsyncEmitter{next: next, submit: submit}
}

// Emit implements Emitter.
func (a *AsyncEmitter) Emit(id EventID, fields ...zap.Field) {
	if a.submit == nil {
		a.next.Emit(id, fields...)
		return
	}
	if err := a.submit(func() { a.next.Emit(id, fields...) }); err != nil {
		a.next.Emit(id, fields...)
	}
}
