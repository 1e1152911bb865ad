package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		l := Logger{Level: tt.level, Format: "json"}
		l.Setup()
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("level %q: got %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestWriterFormat(t *testing.T) {
	l := Logger{Format: "console", NoColor: true}
	if _, ok := l.writer().(zerolog.ConsoleWriter); !ok {
		t.Errorf("console format should use ConsoleWriter")
	}

	l.Format = "json"
	if _, ok := l.writer().(zerolog.ConsoleWriter); ok {
		t.Errorf("json format should not use ConsoleWriter")
	}
}
