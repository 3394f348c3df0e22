package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetDefault_FieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetDefault(FromZap(zap.New(core)))
	t.Cleanup(func() { SetDefault(prev) })

	L().Warn("index removal failed", map[string]interface{}{
		"establishmentId": "42",
		"error":           errors.New("connection refused"),
	})
	L().Debug("quiet", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "42", fields["establishmentId"])
	assert.Equal(t, "connection refused", fields["error"])
	assert.Empty(t, entries[1].Context)
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "json")
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}
