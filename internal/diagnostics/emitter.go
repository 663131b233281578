// Package diagnostics emits fire-and-forget events about registry activity.
//
// Emitting never returns an error and never blocks the caller on a consumer;
// nothing in the lookup path depends on an event being delivered.
package diagnostics

import (
	"go.uber.org/zap"
)

// EventID identifies a diagnostics event.
type EventID int

// Registry events.
const (
	EventRegistryBuilt EventID = iota + 1
	EventRegistryBuildFailed
	EventRowsDropped
	EventLookupMiss
)

var eventNames = map[EventID]string{
	EventRegistryBuilt:       "registry_built",
	EventRegistryBuildFailed: "registry_build_failed",
	EventRowsDropped:         "rows_dropped",
	EventLookupMiss:          "lookup_miss",
}

// String returns the event's stable name.
func (id EventID) String() string {
	if name, ok := eventNames[id]; ok {
		return name
	}
	return "unknown"
}

// Emitter publishes diagnostics events.
type Emitter interface {
	Emit(id EventID, fields ...zap.Field)
}

// ZapEmitter writes events as structured log entries.
type ZapEmitter struct {
	log *zap.Logger
}

// NewZapEmitter returns an emitter writing to l. A nil logger discards events.
func NewZapEmitter(l *zap.Logger) *ZapEmitter {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapEmitter{log: l}
}

// Emit writes the event at a level derived from its kind.
func (e *ZapEmitter) Emit(id EventID, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.Int("event_id", int(id)),
		zap.String("event", id.String()),
	}, fields...)

	switch id {
	case EventRegistryBuildFailed:
		e.log.Error("diagnostics event", fields...)
	case EventRowsDropped:
		e.log.Warn("diagnostics event", fields...)
	case EventLookupMiss:
		e.log.Debug("diagnostics event", fields...)
	default:
		e.log.Info("diagnostics event", fields...)
	}
}

// NopEmitter discards every event.
type NopEmitter struct{}

// Emit does nothing.
func (NopEmitter) Emit(EventID, ...zap.Field) {}
