package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		mode, level string
		want        zapcore.Level
	}{
		{"development", "", zapcore.InfoLevel},
		{"production", "warn", zapcore.WarnLevel},
		{"prod", "DEBUG", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		l, err := New(tt.mode, tt.level)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.mode, tt.level, err)
		}
		if !l.Core().Enabled(tt.want) {
			t.Errorf("New(%q, %q): level %s not enabled", tt.mode, tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Errorf("New(%q, %q): level below %s enabled", tt.mode, tt.level, tt.want)
		}
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("production", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
