package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/domain"
)

func (p *Prober) dial(ctx context.Context, op, host string, portNum int) (string, error) {
	if host == "" {
		return "", domain.NewSubSystemError("probe", op, domain.ErrInvalidInput, "Host is required")
	}
	if portNum <= 0 || portNum > 65535 {
		return "", domain.NewSubSystemError("probe", op, domain.ErrInvalidInput, fmt.Sprintf("Port %d is out of range", portNum))
	}
	addr := net.JoinHostPort(host, strconv.Itoa(portNum))
	conn, err := p.guard.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", probeError(op, err, "Could not connect to "+addr)
	}
	conn.Close()
	return addr, nil
}

func (p *Prober) tcp(ctx context.Context, spec catalog.Probe, cfg domain.Values) (string, error) {
	addr, err := p.dial(ctx, "probe.tcp", str(cfg, spec.HostField), port(cfg, spec.PortField, spec.DefaultPort))
	if err != nil {
		return "", err
	}
	return "Connected to " + addr, nil
}

// uri probes the first host of a connection URI. SRV-style schemes
// (mongodb+srv) are resolved through DNS first.
func (p *Prober) uri(ctx context.Context, spec catalog.Probe, cfg domain.Values) (string, error) {
	raw := str(cfg, spec.URIField)
	if raw == "" {
		return "", domain.NewSubSystemError("probe", "probe.uri", domain.ErrInvalidInput, "Connection URI is required")
	}
	scheme, hostport, ok := uriAuthority(raw)
	if !ok {
		return "", domain.NewSubSystemError("probe", "probe.uri", domain.ErrInvalidInput, "Connection URI is not valid")
	}

	if strings.HasSuffix(scheme, "+srv") {
		service, _, _ := strings.Cut(scheme, "+")
		_, records, err := p.lookupSRV(ctx, service, "tcp", hostport)
		if err != nil || len(records) == 0 {
			return "", domain.NewSubSystemError("probe", "probe.uri", domain.ErrProviderError,
				"No SRV records found for "+hostport)
		}
		target := strings.TrimSuffix(records[0].Target, ".")
		addr, err := p.dial(ctx, "probe.uri", target, int(records[0].Port))
		if err != nil {
			return "", err
		}
		return "Connected to " + addr, nil
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		host, portStr = strings.Trim(hostport, "[]"), ""
	}
	portNum := spec.DefaultPort
	if portStr != "" {
		if portNum, err = strconv.Atoi(portStr); err != nil {
			return "", domain.NewSubSystemError("probe", "probe.uri", domain.ErrInvalidInput, "Connection URI has an invalid port")
		}
	}
	addr, err := p.dial(ctx, "probe.uri", host, portNum)
	if err != nil {
		return "", err
	}
	return "Connected to " + addr, nil
}

// uriAuthority returns the scheme and first host of a connection URI.
// url.Parse rejects the comma separated host lists of mongodb:// and
// similar schemes, so the authority is cut out by hand.
func uriAuthority(raw string) (scheme, hostport string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(raw), "://")
	if !found || scheme == "" || strings.ContainsAny(scheme, " /?#@") {
		return "", "", false
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	hostport, _, _ = strings.Cut(rest, ",")
	if hostport == "" || strings.ContainsAny(hostport, " \t") {
		return "", "", false
	}
	return strings.ToLower(scheme), hostport, true
}

func (p *Prober) httpGet(ctx context.Context, spec catalog.Probe, cfg domain.Values) (string, error) {
	target := spec.URL
	if target == "" {
		target = str(cfg, spec.URLField)
	}
	target = expand(target, cfg)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.NewSubSystemError("probe", "probe.http", domain.ErrInvalidInput, "URL must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", domain.WrapOp("probe.http", err)
	}
	req.Header.Set("User-Agent", "vectorportal-probe")
	if spec.Header != "" {
		name, value, ok := strings.Cut(expand(spec.Header, cfg), ":")
		if ok {
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}
	if user, pass := str(cfg, spec.UserField), str(cfg, spec.PasswordField); user != "" && pass != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", probeError("probe.http", err, "Could not reach "+u.Host)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.NewSubSystemError("probe", "probe.http", domain.ErrPermissionDenied,
			fmt.Sprintf("Authentication failed (HTTP %d)", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", domain.NewSubSystemError("probe", "probe.http", domain.ErrProviderError,
			fmt.Sprintf("Unexpected response from %s (HTTP %d)", u.Host, resp.StatusCode))
	}
	return fmt.Sprintf("Connected to %s (HTTP %d)", u.Host, resp.StatusCode), nil
}

func (p *Prober) redis(ctx context.Context, spec catalog.Probe, cfg domain.Values) (string, error) {
	host := str(cfg, spec.HostField)
	if host == "" {
		return "", domain.NewSubSystemError("probe", "probe.redis", domain.ErrInvalidInput, "Host is required")
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port(cfg, spec.PortField, spec.DefaultPort)))

	opts := &redis.Options{
		Addr:         addr,
		Username:     str(cfg, "username"),
		Password:     str(cfg, "password"),
		Dialer:       p.guard.DialContext,
		MaxRetries:   -1,
		DialTimeout:  p.timeout,
		ReadTimeout:  p.timeout,
		WriteTimeout: p.timeout,
	}
	if flag(cfg, "ssl") {
		// A custom Dialer bypasses go-redis' own TLS setup.
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
		opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := p.guard.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			tc := tls.Client(conn, tlsCfg)
			if err := tc.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tc, nil
		}
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		if strings.Contains(err.Error(), "WRONGPASS") || strings.Contains(err.Error(), "NOAUTH") {
			return "", domain.NewSubSystemError("probe", "probe.redis", domain.ErrPermissionDenied,
				"Redis rejected the credentials")
		}
		return "", probeError("probe.redis", err, "Could not connect to Redis at "+addr)
	}
	return "Connected to Redis at " + addr, nil
}
