package main

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ramsey-B/fern/config"
)

// observedLogger swaps the built core for an observer gated at the configured level.
func observedLogger(t *testing.T, cfg config.LogConfig) (ectologger.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger, _, err := newLogger(cfg, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		gated, err := zapcore.NewIncreaseLevelCore(core, c)
		require.NoError(t, err)
		return gated
	}))
	require.NoError(t, err)
	return logger, logs
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  []zapcore.Level
	}{
		{"debug", "debug", []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}},
		{"info", "info", []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}},
		{"warn", "warn", []zapcore.Level{zapcore.WarnLevel, zapcore.ErrorLevel}},
		{"error", "error", []zapcore.Level{zapcore.ErrorLevel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observedLogger(t, config.LogConfig{Level: tt.level})

			logger.Debug("debug detail")
			logger.Info("event merged")
			logger.Warn("origin disqualified")
			logger.Error("relocation exhausted")

			var got []zapcore.Level
			for _, entry := range logs.All() {
				got = append(got, entry.Level)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_FieldsAndError(t *testing.T) {
	logger, logs := observedLogger(t, config.LogConfig{Level: "info"})

	logger.WithFields(map[string]any{"event_id": "ev1"}).
		WithError(errors.New("locator unreachable")).
		Error("relocation exhausted")

	entries := logs.FilterMessage("relocation exhausted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fern", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, "ev1", fields["event_id"])
	assert.Equal(t, "locator unreachable", fields["error"])
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, _, err := newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
