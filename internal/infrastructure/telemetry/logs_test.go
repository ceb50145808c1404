package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	logger := zap.New(core).With(zap.String("component", "sync"))

	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("also kept")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "sync", logs.All()[0].ContextMap()["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("sellerdash"))
	assert.NoError(t, mp.Shutdown(ctx))

	tp, err := NewTracerProvider(ctx, TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	p, err := NewProfiler(ProfilerConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServer(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "sellerdash"}, nil)
	assert.Error(t, err)
}
