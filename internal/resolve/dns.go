// Package resolve provides implementations of the builder's external
// derivations: the external DNS server, the hypervisor target and the
// storage backing the VM's default pool.
package resolve

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// DefaultResolvConf is the resolver configuration read when none is given.
const DefaultResolvConf = "/etc/resolv.conf"

// ResolvConf resolves the external DNS server from a resolv.conf file.
// The first nameserver that is not a loopback address is used, so local
// stub resolvers (e.g. 127.0.0.53) are skipped.
type ResolvConf struct {
	// Path to resolv.conf (default: /etc/resolv.conf)
	Path string
}

// ExternalDNS returns the first non-loopback nameserver.
func (r ResolvConf) ExternalDNS(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := r.Path
	if path == "" {
		path = DefaultResolvConf
	}

	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read resolver config %s: %w", path, err)
	}

	for _, server := range cfg.Servers {
		ip := net.ParseIP(server)
		if ip == nil || ip.IsLoopback() {
			continue
		}
		return server, nil
	}

	return "", fmt.Errorf("no external nameserver in %s (found: %v)", path, cfg.Servers)
}
