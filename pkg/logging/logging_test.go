package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)

	Debug("Test", "debug message")
	Info("Test", "info message")
	Warn("Test", "warn message %d", 1)
	Error("Test", nil, "error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Fatal("expected debug message to be filtered out")
	}
	if strings.Contains(out, "info message") {
		t.Fatal("expected info message to be filtered out")
	}
	if !strings.Contains(out, "warn message 1") {
		t.Fatalf("expected warn message in output, got: %s", out)
	}
	if !strings.Contains(out, "error message") {
		t.Fatalf("expected error message in output, got: %s", out)
	}
}

func TestErrorIncludesErrAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)

	Error("Test", errFixture{}, "failed to do thing")

	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Fatalf("expected error text in output, got: %s", out)
	}
	if !strings.Contains(out, "subsystem=Test") {
		t.Fatalf("expected subsystem attribute in output, got: %s", out)
	}
}

type errFixture struct{}

func (errFixture) Error() string { return "boom" }

func TestLogrBridge(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	l := Logr()
	l.Info("via logr")

	if !strings.Contains(buf.String(), "via logr") {
		t.Fatalf("expected logr bridge to reach the same sink, got: %s", buf.String())
	}
}
