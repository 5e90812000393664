//go:build mdns

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const scanTimeout = 3 * time.Second

// Enabled reports whether mDNS support is compiled in.
const Enabled = true

// MDNS discovers gateways via zeroconf.
type MDNS struct {
	logger *slog.Logger
}

// New returns the mDNS discoverer.
func New(logger *slog.Logger) Discoverer {
	return &MDNS{logger: logger}
}

// Scan browses for gateways until the scan timeout or ctx ends.
func (d *MDNS) Scan(ctx context.Context) ([]Gateway, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var mu sync.Mutex
	var found []Gateway
	var wg sync.WaitGroup

	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			g, ok := entryToGateway(entry)
			if !ok {
				continue
			}
			mu.Lock()
			found = append(found, g)
			mu.Unlock()
			d.logger.Debug("mdns discovered gateway", "name", g.Name, "url", g.URL())
		}
	}()

	if err := resolver.Browse(scanCtx, serviceType, mdnsDomain, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-scanCtx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return append([]Gateway(nil), found...), nil
}

// Advertise registers the gateway on the local network until ctx ends.
func (d *MDNS) Advertise(ctx context.Context, name string, port int, meta map[string]string) error {
	server, err := zeroconf.Register(name, serviceType, mdnsDomain, port, txtRecords(meta), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	d.logger.Info("mdns advertising", "name", name, "port", port)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

func entryToGateway(entry *zeroconf.ServiceEntry) (Gateway, bool) {
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return Gateway{}, false
	}
	return gatewayFromRecord(entry.ServiceRecord.Instance, host, entry.Port, entry.Text), true
}
