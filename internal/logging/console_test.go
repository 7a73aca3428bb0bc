package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestConsoleHandlerWritesAttrs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo).With("component", "engine")

	log.Debug("hidden")
	log.Info("quiz started", "session_id", "s1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %q", out)
	}
	for _, want := range []string{"INFO:", "quiz started", "component=engine", "session_id=s1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestConsoleHandlerGroups(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug).WithGroup("http")

	log.Warn("slow request", "path", "/api/leaderboard")
	if !strings.Contains(buf.String(), "http.path=/api/leaderboard") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}
