package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("creates json logger", func(t *testing.T) {
		cfg := &Config{Level: "info", Format: "json", Output: "stdout"}
		log, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("creates console logger", func(t *testing.T) {
		cfg := DefaultConfig()
		log, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, parseLevel(tc.input), "level %q", tc.input)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("missing returns empty", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(context.Background()))
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("bogus"))
}

func TestGormLoggerLogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	clone := gl.LogMode(gormlogger.Silent)
	assert.NotSame(t, gl, clone)

	// Silent level suppresses trace output entirely
	clone.(*GormLogger).Trace(context.Background(), time.Now(), func() (string, int64) {
		t.Fatal("fc should not be called at silent level")
		return "", 0
	}, nil)
}
