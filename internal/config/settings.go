package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML files can use "2s", "600ms", etc.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Variant selects how many maps the tuner edits.
type Variant string

const (
	VariantBasic Variant = "basic"
	VariantDual  Variant = "dual"
)

// MapCount returns the number of curves a variant holds.
func (v Variant) MapCount() int {
	if v == VariantDual {
		return 2
	}
	return 1
}

// Settings is the user-editable configuration loaded from config.toml.
type Settings struct {
	Device DeviceSettings `toml:"device"`
	Live   LiveSettings   `toml:"live"`
	UI     UISettings     `toml:"ui"`
	Log    LogSettings    `toml:"log"`
}

type DeviceSettings struct {
	// Host overrides the persisted last-used host when set.
	Host        string   `toml:"host"`
	Timeout     Duration `toml:"timeout"`
	LiveTimeout Duration `toml:"live_timeout"`
	ScanWorkers int      `toml:"scan_workers"`
}

type LiveSettings struct {
	// Source is "sim" (bouncing target) or "device" (poll /live-rpm).
	Source      string   `toml:"source"`
	SpeedRPM    float64  `toml:"speed_rpm"`
	Ease        float64  `toml:"ease"`
	SnapTol     float64  `toml:"snap_tolerance"`
	AFRInterval Duration `toml:"afr_interval"`
	RPMInterval Duration `toml:"rpm_interval"`
}

type UISettings struct {
	Variant Variant `toml:"variant"`
	DPR     float64 `toml:"dpr"`
}

type LogSettings struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// DefaultSettings returns settings matching the compiled-in constants.
func DefaultSettings() *Settings {
	home, _ := os.UserHomeDir()
	return &Settings{
		Device: DeviceSettings{
			Timeout:     Duration{2500 * time.Millisecond},
			LiveTimeout: Duration{600 * time.Millisecond},
			ScanWorkers: 16,
		},
		Live: LiveSettings{
			Source:      "sim",
			SpeedRPM:    LiveSpeedRPM,
			Ease:        LiveEase,
			SnapTol:     LiveSnapTol,
			AFRInterval: Duration{AFRInterval},
			RPMInterval: Duration{RPMInterval},
		},
		UI: UISettings{
			Variant: VariantDual,
			DPR:     1,
		},
		Log: LogSettings{
			File:  filepath.Join(xdgCacheHome(home), "cdi-tuner", "cdi-tuner.log"),
			Level: "info",
		},
	}
}

// Load reads settings from the standard search path. A missing file yields defaults.
func Load() (*Settings, error) {
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return defaultsWithEnv()
}

func defaultsWithEnv() (*Settings, error) {
	s := DefaultSettings()
	applyEnvOverrides(s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromFile reads settings from path. A missing file yields defaults.
func LoadFromFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultsWithEnv()
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes TOML on top of the defaults.
func LoadFromReader(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	if _, err := toml.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	applyEnvOverrides(s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings the live engine cannot run with.
func (s *Settings) Validate() error {
	switch s.UI.Variant {
	case VariantBasic, VariantDual:
	default:
		return fmt.Errorf("ui.variant: unknown variant %q", s.UI.Variant)
	}
	switch s.Live.Source {
	case "sim", "device":
	default:
		return fmt.Errorf("live.source: unknown source %q", s.Live.Source)
	}
	if s.Live.Ease <= 0 || s.Live.Ease > 1 {
		return fmt.Errorf("live.ease must be in (0, 1], got %g", s.Live.Ease)
	}
	if s.Live.SpeedRPM <= 0 {
		return fmt.Errorf("live.speed_rpm must be positive, got %g", s.Live.SpeedRPM)
	}
	if s.UI.DPR <= 0 {
		s.UI.DPR = 1
	}
	if s.Device.ScanWorkers <= 0 {
		s.Device.ScanWorkers = 1
	}
	return nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("CDI_HOST"); v != "" {
		s.Device.Host = v
	}
	if v := os.Getenv("CDI_VARIANT"); v != "" {
		s.UI.Variant = Variant(strings.ToLower(v))
	}
	if v := os.Getenv("CDI_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
}

// ConfigDir returns the directory holding config.toml and state.yml.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(xdgConfigHome(home), "cdi-tuner")
}

func searchPaths() []string {
	home, _ := os.UserHomeDir()
	xdg := xdgConfigHome(home)
	paths := []string{filepath.Join(xdg, "cdi-tuner", "config.toml")}

	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "cdi-tuner", "config.toml"))
	}
	return paths
}

func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

func xdgCacheHome(home string) string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".cache")
}
