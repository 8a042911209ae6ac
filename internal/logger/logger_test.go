package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewHonoursLevel(t *testing.T) {
	log := New("debug", "json")
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}

	log = New("not-a-level", "console")
	if log.Core().Enabled(zap.DebugLevel) || !log.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected fallback to info level")
	}
}
