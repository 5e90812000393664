//go:build mdns

package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestEntryToGateway(t *testing.T) {
	entry := zeroconf.NewServiceEntry("lab-gateway", serviceType, mdnsDomain)
	entry.Port = 8089
	entry.Text = []string{"version=1.0.0", "auth=false"}
	entry.AddrIPv4 = append(entry.AddrIPv4, net.IPv4(192, 168, 1, 10))

	g, ok := entryToGateway(entry)
	if !ok {
		t.Fatal("entry with an address was skipped")
	}
	if g.Name != "lab-gateway" {
		t.Errorf("Name = %q", g.Name)
	}
	if g.URL() != "http://192.168.1.10:8089" {
		t.Errorf("URL = %q", g.URL())
	}
	if g.Version != "1.0.0" || g.Auth {
		t.Errorf("gateway = %+v", g)
	}
}

func TestEntryWithoutAddressSkipped(t *testing.T) {
	entry := zeroconf.NewServiceEntry("ghost", serviceType, mdnsDomain)
	if _, ok := entryToGateway(entry); ok {
		t.Error("entry without an address should be skipped")
	}
}
