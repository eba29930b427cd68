package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn message in output, got %q", out)
	}
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "chatty", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("debug line")
	Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Error("Expected debug to be filtered at fallback info level")
	}
	if !strings.Contains(out, "info line") {
		t.Error("Expected info line in output")
	}
}

func TestStageField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(DefaultConfig())

	log := Stage("normalize")
	log.Info().Msg("rows")

	if !strings.Contains(buf.String(), `"stage":"normalize"`) {
		t.Errorf("Expected stage field in JSON output, got %q", buf.String())
	}
}
