package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "FATAL"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"fatal", LevelFatal},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")
	log.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("suppressed levels leaked:\n%s", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("enabled levels missing:\n%s", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf})

	log.SetLevel(LevelError)
	if got := log.Level(); got != LevelError {
		t.Errorf("Level() = %v, want error", got)
	}
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged after raising the level: %q", buf.String())
	}
}

func TestLogger_Formatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf, Prefix: "conftree"})

	log.Info("value %d of %s", 42, "x")

	out := buf.String()
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "conftree:") {
		t.Errorf("missing level or prefix:\n%s", out)
	}
	if !strings.Contains(out, "value 42 of x") {
		t.Errorf("args not formatted:\n%s", out)
	}
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf})

	log.WithComponent("loader").Info("hello")

	if !strings.Contains(buf.String(), "component=loader") {
		t.Errorf("field missing:\n%s", buf.String())
	}
}

func TestNullLogger(t *testing.T) {
	// Must be safe to use and produce nothing.
	NullLogger.Info("into the void")
	NullLogger.Fatal("still nothing")
}
