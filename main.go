package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cdi-tuner.klederson.com/internal/app"
	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/logging"
	"cdi-tuner.klederson.com/internal/session"
	"cdi-tuner.klederson.com/internal/store"
)

var (
	flagHost    string
	flagDemo    bool
	flagDual    bool
	flagBasic   bool
	flagConfig  string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cdi-tuner",
		Short: "CDI Tuner - terminal ignition map editor for WiFi CDI units",
		Long: `CDI Tuner edits the ignition advance curves of a WiFi-connected CDI.
Drag points on the curve with the mouse or edit the table with the keyboard,
then send the maps to the device. Live mode follows the engine speed and
records air/fuel readings into an RPM history.

Use --demo to run against a simulated device.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "Device address (e.g. 192.168.4.1 or http://cdi.local)")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use a simulated device instead of the network")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config.toml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.Flags().BoolVar(&flagDual, "dual", false, "Edit two maps")
	rootCmd.Flags().BoolVar(&flagBasic, "basic", false, "Edit a single map")
	rootCmd.MarkFlagsMutuallyExclusive("dual", "basic")

	rootCmd.AddCommand(
		statusCmd(),
		readCmd(),
		sendCmd(),
		exportCmd(),
		snapshotCmd(),
		scanCmd(),
		pingCmd(),
		emulateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: settings, a logger and the persisted state.
type env struct {
	settings *config.Settings
	log      zerolog.Logger
	closer   io.Closer
	store    *store.File
	host     string
}

func setup() (*env, error) {
	var (
		settings *config.Settings
		err      error
	)
	if flagConfig != "" {
		settings, err = config.LoadFromFile(flagConfig)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logging.New(settings.Log, flagVerbose)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(config.ConfigDir(), "state.yml"))
	if err != nil {
		log.Warn().Err(err).Msg("state file unreadable, starting fresh")
		if st, err = store.Open(filepath.Join(os.TempDir(), "cdi-tuner-state.yml")); err != nil {
			closer.Close()
			return nil, fmt.Errorf("open state: %w", err)
		}
	}

	log.Debug().Str("state", st.Path()).Msg("state loaded")

	e := &env{settings: settings, log: log, closer: closer, store: st}
	e.host, err = e.resolveHost()
	if err != nil {
		closer.Close()
		return nil, err
	}
	return e, nil
}

// resolveHost picks the device address: flag, then config, then the last
// host used.
func (e *env) resolveHost() (string, error) {
	for _, raw := range []string{flagHost, e.settings.Device.Host} {
		if raw != "" {
			return store.NormalizeHost(raw)
		}
	}
	host, err := e.store.LastHost()
	if errors.Is(err, store.ErrNoHost) {
		return "", nil
	}
	return host, err
}

func (e *env) dial(host string) device.Transport {
	d := e.settings.Device
	return &device.Fallback{
		Primary: device.NewClient(host, d.Timeout.Duration, d.LiveTimeout.Duration, e.log),
		Backup:  device.NewSimulated(e.settings.UI.Variant.MapCount(), nil),
	}
}

// transport returns the transport for the current flags.
func (e *env) transport(variant config.Variant) device.Transport {
	switch {
	case flagDemo:
		return device.NewSimulated(variant.MapCount(), nil)
	case e.host != "":
		return e.dial(e.host)
	}
	return device.Null{}
}

func (e *env) newSession(variant config.Variant) *session.Session {
	return session.New(session.Options{
		Variant:   variant,
		Transport: e.transport(variant),
		Live:      e.settings.Live,
		DeviceRPM: e.settings.Live.Source == "device",
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:       e.log,
	})
}

func run(cmd *cobra.Command, args []string) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return errors.New("cdi-tuner needs an interactive terminal; see 'cdi-tuner --help' for scriptable commands")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.closer.Close()

	variant := e.settings.UI.Variant
	switch {
	case flagDual:
		variant = config.VariantDual
	case flagBasic:
		variant = config.VariantBasic
	}

	e.log.Info().Str("host", e.host).Str("variant", string(variant)).Bool("demo", flagDemo).Msg("starting")

	zone.NewGlobal()
	defer zone.Close()

	var prober *device.Prober
	if !flagDemo {
		prober = device.NewProber(e.settings.Device.Timeout.Duration, e.log)
	}

	model := app.New(app.Options{
		Session: e.newSession(variant),
		Host:    e.host,
		Store:   e.store,
		Dial:    e.dial,
		Prober:  prober,
		Log:     e.log,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithFPS(config.TargetFPS),
	)

	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Session().Deactivate()
	}
	return err
}
