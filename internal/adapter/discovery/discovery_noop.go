//go:build !mdns

package discovery

import (
	"context"
	"log/slog"
)

// Enabled reports whether mDNS support is compiled in.
const Enabled = false

// Noop is used when mDNS support is not compiled in.
type Noop struct {
	logger *slog.Logger
}

// New returns the no-op discoverer.
func New(logger *slog.Logger) Discoverer {
	return &Noop{logger: logger}
}

// Scan finds nothing.
func (n *Noop) Scan(_ context.Context) ([]Gateway, error) {
	return nil, nil
}

// Advertise logs once and waits for ctx.
func (n *Noop) Advertise(ctx context.Context, name string, _ int, _ map[string]string) error {
	n.logger.Warn("mdns advertising requested but binary built without the mdns tag", "name", name)
	<-ctx.Done()
	return nil
}
