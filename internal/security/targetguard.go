package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"vectorportal/internal/domain"
)

// privateRanges lists the private and reserved blocks a guarded dial refuses.
var privateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var parsedRanges []*net.IPNet

func init() {
	for _, cidr := range privateRanges {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		parsedRanges = append(parsedRanges, ipnet)
	}
}

// IsPrivateIP checks if an IP falls within any private/reserved range.
// IPv4-mapped IPv6 addresses are checked as IPv4.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, ipnet := range parsedRanges {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// TargetGuard decides which hosts a connection probe may reach. With
// AllowPrivate unset it refuses private and reserved addresses, checking
// at dial time so a DNS answer cannot change between check and connect.
type TargetGuard struct {
	AllowPrivate bool
	Resolver     Resolver
	DialTimeout  time.Duration
}

// Resolve returns the first address of host the guard permits.
func (g TargetGuard) Resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if err := g.check(host, ip); err != nil {
			return nil, err
		}
		return ip, nil
	}

	r := g.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, domain.NewSubSystemError("probe", "TargetGuard.Resolve", domain.ErrProviderError,
			fmt.Sprintf("DNS lookup failed for %s: %v", host, err))
	}
	if len(addrs) == 0 {
		return nil, domain.NewSubSystemError("probe", "TargetGuard.Resolve", domain.ErrProviderError,
			fmt.Sprintf("no addresses for %s", host))
	}
	for _, a := range addrs {
		if err := g.check(host, a.IP); err != nil {
			return nil, err
		}
	}
	return addrs[0].IP, nil
}

func (g TargetGuard) check(host string, ip net.IP) error {
	if g.AllowPrivate || !IsPrivateIP(ip) {
		return nil
	}
	return domain.NewSubSystemError("probe", "TargetGuard", domain.ErrPermissionDenied,
		fmt.Sprintf("%s resolves to private address %s", host, ip))
}

// DialContext resolves addr through the guard and connects to the
// validated address without a second lookup.
func (g TargetGuard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address %q", domain.ErrInvalidInput, addr)
	}
	ip, err := g.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	timeout := g.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return d.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
}

// Transport returns an HTTP transport that dials through the guard.
func (g TargetGuard) Transport() *http.Transport {
	return &http.Transport{
		DialContext:           g.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
