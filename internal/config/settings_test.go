package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if s.UI.Variant.MapCount() != 2 {
		t.Errorf("expected dual default, got %q", s.UI.Variant)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	t.Setenv("CDI_HOST", "")
	t.Setenv("CDI_VARIANT", "")
	t.Setenv("CDI_LOG_LEVEL", "")

	input := `
[device]
host = "192.168.4.1"
timeout = "1s"

[live]
source = "device"
afr_interval = "120ms"

[ui]
variant = "basic"
`
	s, err := LoadFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if s.Device.Host != "192.168.4.1" {
		t.Errorf("host = %q", s.Device.Host)
	}
	if s.Device.Timeout.Duration != time.Second {
		t.Errorf("timeout = %v", s.Device.Timeout.Duration)
	}
	if s.Device.LiveTimeout.Duration != 600*time.Millisecond {
		t.Errorf("live timeout should keep default, got %v", s.Device.LiveTimeout.Duration)
	}
	if s.Live.AFRInterval.Duration != 120*time.Millisecond {
		t.Errorf("afr interval = %v", s.Live.AFRInterval.Duration)
	}
	if s.UI.Variant != VariantBasic || s.UI.Variant.MapCount() != 1 {
		t.Errorf("variant = %q", s.UI.Variant)
	}
}

func TestLoadFromReaderRejectsBadValues(t *testing.T) {
	t.Setenv("CDI_VARIANT", "")
	cases := []string{
		`[ui]
variant = "triple"`,
		`[live]
source = "radio"`,
		`[live]
ease = 1.5`,
		`[device]
timeout = "-1s"`,
	}
	for _, c := range cases {
		if _, err := LoadFromReader(strings.NewReader(c)); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CDI_HOST", "cdi.local")
	t.Setenv("CDI_VARIANT", "BASIC")
	t.Setenv("CDI_LOG_LEVEL", "debug")

	s, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if s.Device.Host != "cdi.local" || s.UI.Variant != VariantBasic || s.Log.Level != "debug" {
		t.Errorf("env overrides not applied: %+v", s)
	}
}

func TestLoadFromFileMissingReturnsDefaults(t *testing.T) {
	t.Setenv("CDI_VARIANT", "")
	s, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if s.Live.SpeedRPM != LiveSpeedRPM {
		t.Errorf("speed = %g", s.Live.SpeedRPM)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("CDI_VARIANT", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[live]\nspeed_rpm = 2500.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if s.Live.SpeedRPM != 2500 {
		t.Errorf("speed = %g", s.Live.SpeedRPM)
	}
}
