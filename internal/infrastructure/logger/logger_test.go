package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("defaults when config is nil", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("writes json to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		log, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		log.Debug("hello", zap.String("k", "v"))
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, string(data), `"k":"v"`)
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestFromLogConfig(t *testing.T) {
	cfg := FromLogConfig(config.LogConfig{Level: "warn"})
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "s***@example.com", MaskIdentifier("sara@example.com"))
	assert.Equal(t, "*********0001", MaskIdentifier("+966500000001"))
	assert.Equal(t, "****", MaskIdentifier("123"))
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx, _ = WithRequestID(ctx, base, "req-1")
	ctx, log := WithAccountID(ctx, FromContext(ctx), "acc-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "acc-1", GetAccountID(ctx))

	log.Info("step")
	FromContext(ctx).Info("again")

	entries := recorded.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "acc-1", fields["account_id"])
	}
}
