package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevels(t *testing.T) {
	for _, tc := range []struct {
		name          string
		log           func(Logger, string)
		expectedLevel zapcore.Level
	}{
		{name: "debug", log: func(l Logger, m string) { l.Debug(m) }, expectedLevel: zapcore.DebugLevel},
		{name: "info", log: func(l Logger, m string) { l.Info(m) }, expectedLevel: zapcore.InfoLevel},
		{name: "warn", log: func(l Logger, m string) { l.Warn(m) }, expectedLevel: zapcore.WarnLevel},
		{name: "error", log: func(l Logger, m string) { l.Error(m) }, expectedLevel: zapcore.ErrorLevel},
		{name: "debug_ctx", log: func(l Logger, m string) { l.DebugWithContext(context.Background(), m) }, expectedLevel: zapcore.DebugLevel},
		{name: "info_ctx", log: func(l Logger, m string) { l.InfoWithContext(context.Background(), m) }, expectedLevel: zapcore.InfoLevel},
		{name: "warn_ctx", log: func(l Logger, m string) { l.WarnWithContext(context.Background(), m) }, expectedLevel: zapcore.WarnLevel},
		{name: "error_ctx", log: func(l Logger, m string) { l.ErrorWithContext(context.Background(), m) }, expectedLevel: zapcore.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l, logs := NewObserverLogger("debug")
			tc.log(l, "ABC")

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			require.Equal(t, "ABC", entry.Message)
			require.Empty(t, entry.ContextMap())
			require.Equal(t, tc.expectedLevel, entry.Level)
		})
	}
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	l, logs := NewObserverLogger("debug")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WarnWithContext(ctx, "degraded", zap.String("user_id", "u1"))

	fields := logs.All()[0].ContextMap()
	require.Equal(t, "u1", fields["user_id"])
	require.Equal(t, sc.TraceID().String(), fields["trace_id"])
	require.Equal(t, sc.SpanID().String(), fields["span_id"])
}

func TestWithFields(t *testing.T) {
	parent, logs := NewObserverLogger("debug")

	child := parent.With(zap.String("component", "feed"))
	child.Info("child")
	parent.Info("parent")

	require.Equal(t, map[string]interface{}{"component": "feed"}, logs.All()[0].ContextMap())
	require.Empty(t, logs.All()[1].ContextMap())
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger("json", "verbose")
	require.ErrorContains(t, err, "unknown log level")

	_, err = NewLogger("xml", "info")
	require.ErrorContains(t, err, "unknown log format")

	l, err := NewLogger("text", "none")
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = NewLogger("json", "info")
	require.NoError(t, err)
	require.NotNil(t, l)

	require.Panics(t, func() { MustNewLogger("text", "loud") })
}
