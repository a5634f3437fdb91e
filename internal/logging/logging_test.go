package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tuner.log")
	log, closer, err := New(config.LogSettings{File: path, Level: "warn"}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("host", "http://cdi.local").Msg("offline")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, `"host":"http://cdi.local"`) || !strings.Contains(out, `"app":"cdi-tuner"`) {
		t.Errorf("log line missing fields: %s", out)
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuner.log")
	log, closer, err := New(config.LogSettings{File: path, Level: "error"}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug().Msg("frame")
	closer.Close()
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "frame") {
		t.Error("verbose did not enable debug")
	}
}

func TestNoFileIsNop(t *testing.T) {
	log, closer, err := New(config.LogSettings{Level: "debug"}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()
	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("level = %v, want disabled", log.GetLevel())
	}
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, zerolog.InfoLevel)
	log.Info().Int("rpm", 4000).Msg("live")
	if !strings.Contains(buf.String(), `"rpm":4000`) {
		t.Errorf("output = %s", buf.String())
	}
}
