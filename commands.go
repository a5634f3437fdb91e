package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/grid"
	"cdi-tuner.klederson.com/internal/logging"
	"cdi-tuner.klederson.com/internal/plot"
)

// withEnv runs fn with a loaded env and closes the log afterwards.
func withEnv(fn func(ctx context.Context, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.closer.Close()
		return fn(cmd.Context(), e)
	}
}

// requireDevice fails when no host is known and --demo is off.
func (e *env) requireDevice() error {
	if flagDemo || e.host != "" {
		return nil
	}
	return errors.New("no device: pass --host or --demo")
}

func parseVariant(s string) (config.Variant, error) {
	switch v := config.Variant(s); v {
	case config.VariantBasic, config.VariantDual:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q (want basic or dual)", s)
}

func (e *env) target() string {
	if flagDemo {
		return "simulated device"
	}
	return e.host
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the device heartbeat",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			if err := e.requireDevice(); err != nil {
				return err
			}
			t := e.transport(e.settings.UI.Variant)
			st, err := t.Status(ctx)
			if err != nil {
				pterm.Error.Printf("%s: %v\n", e.target(), err)
				return err
			}
			if !st.Online {
				pterm.Warning.Printf("%s reports offline\n", e.target())
				return nil
			}
			engine := pterm.FgGray.Sprint("stopped")
			if st.EngineRunning {
				engine = pterm.FgGreen.Sprint("running")
			}
			pterm.Success.Printf("%s online\n", e.target())
			pterm.Info.Printf("Engine: %s  Profile: %s\n", engine, device.ProfileName(st.ActiveProfile))
			return nil
		}),
	}
}

func readCmd() *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read the maps from the device and print them as a table",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			if err := e.requireDevice(); err != nil {
				return err
			}
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			sess := e.newSession(v)
			if err := sess.Read(ctx); err != nil {
				pterm.Error.Printf("Read failed: %v\n", err)
				return err
			}
			printSet(sess.Set)
			pterm.Success.Printf("Read %d map(s) from %s\n", len(sess.Set.Maps), e.target())
			return nil
		}),
	}
	cmd.Flags().StringVar(&variant, "variant", string(config.VariantDual), "Map layout expected from the device (basic or dual)")
	return cmd
}

func printSet(s *curve.Set) {
	header := []string{"RPM"}
	for i, m := range s.Maps {
		header = append(header, fmt.Sprintf("MAP %d (lim %d)", i+1, m.Limiter))
	}
	data := pterm.TableData{header}
	for i := 0; i < grid.Count; i++ {
		row := []string{strconv.Itoa(grid.RPM(i))}
		for _, m := range s.Maps {
			cell := strconv.FormatFloat(m.Curve[i], 'f', 1, 64)
			if m.Locked(i) {
				cell = pterm.FgGray.Sprint("--")
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}
	pterm.Info.Printf("Pickup: %.1f deg\n", s.Pickup)
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func sendCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send maps from a CSV file to the device",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			if err := e.requireDevice(); err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			p, err := curve.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			variant := config.VariantBasic
			if len(p.Maps) > 1 {
				variant = config.VariantDual
			}
			sess := e.newSession(variant)
			if err := sess.Set.Apply(p); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if err := sess.Send(ctx); err != nil {
				pterm.Error.Printf("Send failed: %v\n", err)
				return err
			}
			pterm.Success.Printf("Sent %d map(s) to %s\n", len(sess.Set.Maps), e.target())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file written by 'export'")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		out     string
		variant string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Read the maps from the device and write them as CSV",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			sess := e.newSession(v)
			if e.host != "" || flagDemo {
				if err := sess.Read(ctx); err != nil {
					pterm.Error.Printf("Read failed: %v\n", err)
					return err
				}
			} else {
				pterm.Warning.Println("No device, exporting the default maps")
			}

			if out == "" || out == "-" {
				return curve.WriteCSV(os.Stdout, sess.Set)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := curve.WriteCSV(f, sess.Set); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			pterm.Success.Printf("Wrote %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&variant, "variant", string(config.VariantDual), "Map layout expected from the device (basic or dual)")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var (
		out     string
		width   int
		height  int
		dpr     float64
		variant string
		detail  string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the curve plot to an image file",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			sess := e.newSession(v)
			if e.host != "" || flagDemo {
				if err := sess.Read(ctx); err != nil {
					pterm.Warning.Printf("Read failed, rendering local maps: %v\n", err)
				}
			}
			if dpr <= 0 {
				dpr = e.settings.UI.DPR
			}

			canvas := plot.NewImageCanvas()
			vp := plot.Viewport{CSSW: float64(width), CSSH: float64(height), DPR: dpr}
			if _, ok := plot.NewRenderer().DrawMain(canvas, vp, sess.Scene()); !ok {
				return fmt.Errorf("snapshot: %dx%d is too small to draw", width, height)
			}
			if err := canvas.Save(out); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			w, h := vp.BackingSize()
			pterm.Success.Printf("Wrote %s (%dx%d)\n", out, w, h)

			if detail == "" {
				return nil
			}
			sess.SetPanel(true)
			dc := plot.NewImageCanvas()
			dvp := plot.Viewport{CSSW: float64(width) / 3, CSSH: float64(height) / 3, DPR: dpr}
			if !plot.NewRenderer().DrawDetail(dc, dvp, sess.Scene()) {
				return fmt.Errorf("snapshot: detail canvas too small")
			}
			if err := dc.Save(detail); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			pterm.Success.Printf("Wrote %s\n", detail)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "curve.png", "Output image (.png or .jpg)")
	cmd.Flags().IntVar(&width, "width", 960, "Width in logical pixels")
	cmd.Flags().IntVar(&height, "height", 480, "Height in logical pixels")
	cmd.Flags().Float64Var(&dpr, "dpr", 0, "Device pixel ratio (default from config)")
	cmd.Flags().StringVar(&variant, "variant", string(config.VariantDual), "Map layout (basic or dual)")
	cmd.Flags().StringVar(&detail, "detail", "", "Also write the AFR detail canvas to this file")
	return cmd
}

func scanCmd() *cobra.Command {
	var (
		cidr  string
		peers bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find devices on a local network",
		RunE: withEnv(func(ctx context.Context, e *env) error {
			if peers {
				return listPeers(ctx, e)
			}
			hosts, err := device.Hosts(cidr)
			if err != nil {
				return err
			}
			spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Scanning %d hosts in %s", len(hosts), cidr))
			found, err := device.Scan(ctx, hosts, e.settings.Device.ScanWorkers, e.settings.Device.Timeout.Duration, e.log)
			if spinner != nil {
				spinner.Stop()
			}
			if err != nil {
				return err
			}
			if len(found) == 0 {
				pterm.Warning.Println("No devices answered")
				return nil
			}

			data := pterm.TableData{{"HOST", "ENGINE", "PROFILE"}}
			for _, f := range found {
				engine := "stopped"
				if f.Status.EngineRunning {
					engine = "running"
				}
				data = append(data, []string{f.Host, engine, device.ProfileName(f.Status.ActiveProfile)})
			}
			pterm.DefaultTable.WithHasHeader().WithData(data).Render()
			pterm.Info.Printf("Found %d device(s)\n", len(found))
			return nil
		}),
	}
	cmd.Flags().StringVar(&cidr, "cidr", "192.168.4.0/24", "IPv4 range to scan")
	cmd.Flags().BoolVar(&peers, "peers", false, "Ask the current device for the devices it knows instead")
	return cmd
}

func listPeers(ctx context.Context, e *env) error {
	if e.host == "" {
		return errors.New("no device: pass --host")
	}
	d := e.settings.Device
	list, err := device.NewClient(e.host, d.Timeout.Duration, d.LiveTimeout.Duration, e.log).Peers(ctx)
	if err != nil {
		pterm.Error.Printf("%s: %v\n", e.host, err)
		return err
	}
	if len(list) == 0 {
		pterm.Warning.Printf("%s knows no other devices\n", e.host)
		return nil
	}
	data := pterm.TableData{{"HOST", "NAME"}}
	for _, p := range list {
		data = append(data, []string{p.Host, p.Name})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping [host]",
		Short: "Check whether a device answers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flagHost = args[0]
			}
			return withEnv(func(ctx context.Context, e *env) error {
				if e.host == "" {
					return errors.New("no device: pass a host")
				}
				r := device.NewProber(e.settings.Device.Timeout.Duration, e.log).Probe(ctx, e.host)
				if !r.Reachable {
					pterm.Error.Printf("%s is not answering\n", e.host)
					return device.ErrUnreachable
				}
				pterm.Success.Printf("%s reachable via %s in %s\n", e.host, r.Method, r.RTT.Round(time.Millisecond))
				if _, err := e.store.SetLastHost(e.host); err != nil {
					e.log.Warn().Err(err).Msg("persist host")
				}
				return nil
			})(cmd, args)
		},
	}
}

func emulateCmd() *cobra.Command {
	var (
		listen string
		dual   bool
	)
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve the device HTTP API from a simulated CDI",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Console(os.Stderr, flagVerbose)
			variant := config.VariantBasic
			if dual {
				variant = config.VariantDual
			}
			dev := device.NewSimulated(variant.MapCount(), nil)
			emu := device.NewEmulator(dev, nil, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Str("addr", listen).Str("variant", string(variant)).Msg("emulator listening")
			return emu.ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8080", "Address to listen on")
	cmd.Flags().BoolVar(&dual, "dual", false, "Hold two maps")
	return cmd
}
