package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapEmitter_Levels(t *testing.T) {
	tests := []struct {
		id        EventID
		wantLevel zapcore.Level
	}{
		{EventRegistryBuilt, zapcore.InfoLevel},
		{EventRegistryBuildFailed, zapcore.ErrorLevel},
		{EventRowsDropped, zapcore.WarnLevel},
		{EventLookupMiss, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			NewZapEmitter(zap.New(core)).Emit(tt.id, zap.String("home", "public"))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			ctx := entry.ContextMap()
			assert.Equal(t, tt.id.String(), ctx["event"])
			assert.Equal(t, int64(tt.id), ctx["event_id"])
			assert.Equal(t, "public", ctx["home"])
		})
	}
}

func TestEventID_String(t *testing.T) {
	assert.Equal(t, "lookup_miss", EventLookupMiss.String())
	assert.Equal(t, "unknown", EventID(99).String())
}

func TestEmitters_NeverPanic(t *testing.T) {
	NewZapEmitter(nil).Emit(EventRegistryBuilt)
	NopEmitter{}.Emit(EventLookupMiss, zap.String("name", "x"))
}
