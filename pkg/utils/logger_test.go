package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug enables debug-level output", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		defer logger.Sync()
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("development logger should log at debug level")
		}
	})

	t.Run("production logs info and above only", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		defer logger.Sync()
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("production logger should not log at debug level")
		}
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("production logger should log at info level")
		}
	})
}
