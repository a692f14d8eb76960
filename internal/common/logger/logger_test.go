package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapWrapper_FieldsAndError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"fileId": "F1"}).
		WithError(errors.New("boom")).
		Warn("apply failed", map[string]interface{}{"attempt": 1})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "apply failed", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "F1", ctx["fileId"])
		assert.Equal(t, "boom", ctx["error"])
		assert.EqualValues(t, 1, ctx["attempt"])
	}
}

func TestNewWithOptions_BadOutputFallsBackToNop(t *testing.T) {
	l := NewWithOptions(Options{Level: "info", Format: "json", Output: "/nonexistent-dir/x/y.log"})
	assert.NotNil(t, l)
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Info("ignored", nil)
		log.Debug("ignored", map[string]interface{}{"k": "v"})
	})
}
