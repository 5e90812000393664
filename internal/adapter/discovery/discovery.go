// Package discovery finds reference gateways on the local network over
// mDNS/DNS-SD. Real discovery needs the mdns build tag.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"vectorportal/internal/domain"
)

const (
	serviceType = "_vectorportal._tcp"
	mdnsDomain  = "local."
)

// Gateway is one advertised gateway instance.
type Gateway struct {
	Name    string
	Host    string
	Port    int
	Version string
	// Auth reports whether the gateway expects a token.
	Auth bool
}

// URL returns the base URL of the gateway API.
func (g Gateway) URL() string {
	return "http://" + net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// Discoverer browses for gateways and advertises this one.
type Discoverer interface {
	Scan(ctx context.Context) ([]Gateway, error)
	// Advertise blocks until ctx is cancelled.
	Advertise(ctx context.Context, name string, port int, meta map[string]string) error
}

// Resolve scans once and returns the URL of the first gateway found.
func Resolve(ctx context.Context, d Discoverer) (string, error) {
	found, err := d.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no gateway advertised on the local network", domain.ErrNotFound)
	}
	return found[0].URL(), nil
}

func txtRecords(meta map[string]string) []string {
	txt := make([]string, 0, len(meta))
	for k, v := range meta {
		txt = append(txt, k+"="+v)
	}
	return txt
}

func parseTXTRecords(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, t := range txt {
		if k, v, ok := strings.Cut(t, "="); ok {
			m[k] = v
		}
	}
	return m
}

func gatewayFromRecord(instance, host string, port int, txt []string) Gateway {
	meta := parseTXTRecords(txt)
	return Gateway{
		Name:    instance,
		Host:    host,
		Port:    port,
		Version: meta["version"],
		Auth:    meta["auth"] == "true",
	}
}
