package device

import (
	"context"
	"net/url"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog"
)

// Reachability is the outcome of a probe.
type Reachability struct {
	Reachable bool
	RTT       time.Duration
	Method    string // "icmp" or "http"
}

const maxProbeAttempts = 2

// Prober checks whether a device host answers, first with a single ICMP
// echo and then with GET /status when ICMP is blocked or unprivileged
// sockets are unavailable. Each host is tried at most maxProbeAttempts
// times until it answers once.
type Prober struct {
	Timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	tried    map[string]int
	resolved map[string]bool
}

// NewProber creates a prober.
func NewProber(timeout time.Duration, log zerolog.Logger) *Prober {
	return &Prober{
		Timeout:  timeout,
		log:      log.With().Str("component", "probe").Logger(),
		tried:    make(map[string]int),
		resolved: make(map[string]bool),
	}
}

// ShouldProbe reports whether base still deserves a probe.
func (p *Prober) ShouldProbe(base string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved[base] || p.tried[base] < maxProbeAttempts
}

// Probe checks base ("http://host[:port]").
func (p *Prober) Probe(ctx context.Context, base string) Reachability {
	p.mu.Lock()
	p.tried[base]++
	p.mu.Unlock()

	r := p.probe(ctx, base)
	if r.Reachable {
		p.mu.Lock()
		p.resolved[base] = true
		p.mu.Unlock()
	}
	p.log.Debug().Str("host", base).Bool("reachable", r.Reachable).Str("method", r.Method).
		Dur("rtt", r.RTT).Msg("probe")
	return r
}

func (p *Prober) probe(ctx context.Context, base string) Reachability {
	if u, err := url.Parse(base); err == nil && u.Hostname() != "" {
		if rtt, ok := p.ping(ctx, u.Hostname()); ok {
			return Reachability{Reachable: true, RTT: rtt, Method: "icmp"}
		}
	}

	start := time.Now()
	st, err := NewClient(base, p.Timeout, p.Timeout, p.log).Status(ctx)
	if err != nil {
		return Reachability{Method: "http"}
	}
	return Reachability{Reachable: st.Online, RTT: time.Since(start), Method: "http"}
}

func (p *Prober) ping(ctx context.Context, host string) (time.Duration, bool) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, false
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	pinger.RecordRtts = false

	if err := pinger.RunWithContext(ctx); err != nil {
		p.log.Debug().Err(err).Str("host", host).Msg("icmp unavailable")
		return 0, false
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, false
	}
	return stats.AvgRtt, true
}
