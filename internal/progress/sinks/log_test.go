package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/guestpost-catalog/internal/progress"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	batch := []progress.Event{
		{RunID: [16]byte{1}, TS: time.Now(), Stage: progress.StageBatchDone, Mode: progress.ModeImport, Batch: 1, Sites: 50, Written: 50},
		{RunID: [16]byte{1}, TS: time.Now(), Stage: progress.StageBatchFailed, Mode: progress.ModeImport, Batch: 2, Sites: 50, Failed: 50, Note: "unique violation"},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, sink.Close(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, int64(1), entries[0].ContextMap()["batch"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "unique violation", entries[1].ContextMap()["note"])
}
