package device

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxScanHosts = 1024

// Found is a host that answered /status.
type Found struct {
	Host   string
	Status Status
}

// Hosts expands an IPv4 CIDR into its usable host addresses.
func Hosts(cidr string) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("scan: only IPv4 ranges are supported")
	}
	bits := 32 - prefix.Bits()
	if bits > 10 {
		return nil, fmt.Errorf("scan: %s has more than %d hosts", cidr, maxScanHosts)
	}

	var hosts []string
	addr := prefix.Addr()
	for i := 0; i < 1<<bits; i++ {
		if bits >= 2 && (i == 0 || i == 1<<bits-1) {
			addr = addr.Next()
			continue
		}
		hosts = append(hosts, addr.String())
		addr = addr.Next()
	}
	return hosts, nil
}

// Scan queries /status on every host with at most workers requests in
// flight. Hosts that do not answer are skipped.
func Scan(ctx context.Context, hosts []string, workers int, timeout time.Duration, log zerolog.Logger) ([]Found, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	var mu sync.Mutex
	var found []Found
	for _, h := range hosts {
		base := "http://" + h
		g.Go(func() error {
			st, err := NewClient(base, timeout, timeout, log).Status(gctx)
			if err != nil {
				return nil
			}
			mu.Lock()
			found = append(found, Found{Host: base, Status: st})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return found, err
	}

	sort.Slice(found, func(i, j int) bool {
		a, _ := netip.ParseAddr(found[i].Host[len("http://"):])
		b, _ := netip.ParseAddr(found[j].Host[len("http://"):])
		if a.IsValid() && b.IsValid() {
			return a.Less(b)
		}
		return found[i].Host < found[j].Host
	})
	return found, nil
}
