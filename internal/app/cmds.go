package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/session"
)

func frameCmd(epoch uint64) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return FrameMsg{Epoch: epoch, At: t}
	})
}

func statusTickCmd(epoch uint64) tea.Cmd {
	return tea.Tick(config.StatusInterval, func(time.Time) tea.Msg {
		return StatusTickMsg{Epoch: epoch}
	})
}

func statusCmd(ctx context.Context, t device.Transport, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		st, err := t.Status(ctx)
		return StatusMsg{Epoch: epoch, Status: st, Err: err}
	}
}

func afrCmd(ctx context.Context, t device.Transport, req session.AFRRequest) tea.Cmd {
	return func() tea.Msg {
		v, err := session.FetchAFR(ctx, t, req)
		return AFRMsg{Req: req, Value: v, Err: err, At: time.Now()}
	}
}

func rpmCmd(ctx context.Context, t device.Transport) tea.Cmd {
	return func() tea.Msg {
		v, err := session.FetchRPM(ctx, t)
		return RPMMsg{Value: v, Err: err}
	}
}

func readCmd(ctx context.Context, t device.Transport) tea.Cmd {
	return func() tea.Msg {
		p, err := t.ReadMap(ctx)
		return ReadMsg{Payload: p, Err: err}
	}
}

func sendCmd(ctx context.Context, t device.Transport, p curve.Payload) tea.Cmd {
	return func() tea.Msg {
		res, err := t.SendMap(ctx, p)
		return SendMsg{Result: res, Err: err}
	}
}

func probeCmd(ctx context.Context, p *device.Prober, host string) tea.Cmd {
	if !p.ShouldProbe(host) {
		return nil
	}
	return func() tea.Msg {
		return ProbeMsg{Host: host, Result: p.Probe(ctx, host)}
	}
}
