package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	libvirtxml "libvirt.org/go/libvirtxml"

	"github.com/jbweber/vmconf/internal/record"
)

// HostClient is the subset of *libvirt.Libvirt needed to describe the
// hypervisor. This allows for testing without a libvirt daemon.
type HostClient interface {
	ConnectGetHostname() (string, error)
	ConnectGetUri() (string, error)
	ConnectGetLibVersion() (uint64, error)
}

// PoolClient is the subset of *libvirt.Libvirt needed to describe a
// storage pool.
type PoolClient interface {
	StoragePoolLookupByName(Name string) (libvirt.StoragePool, error)
	StoragePoolGetXMLDesc(Pool libvirt.StoragePool, Flags libvirt.StorageXMLFlags) (string, error)
}

var (
	_ HostClient = (*libvirt.Libvirt)(nil)
	_ PoolClient = (*libvirt.Libvirt)(nil)
)

// LibvirtTarget resolves the target section from the connected hypervisor.
type LibvirtTarget struct {
	Client HostClient
}

// Target returns host, uri and version of the hypervisor.
func (t LibvirtTarget) Target(ctx context.Context, _ *record.Record) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host, err := t.Client.ConnectGetHostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hypervisor hostname: %w", err)
	}

	uri, err := t.Client.ConnectGetUri()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection URI: %w", err)
	}

	version, err := t.Client.ConnectGetLibVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to get libvirt version: %w", err)
	}

	target := record.New()
	for _, kv := range [][2]string{
		{"host", host},
		{"uri", uri},
		{"version", FormatVersion(version)},
	} {
		if err := target.Set(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// FormatVersion formats a libvirt version number (e.g. 8006000) as x.y.z.
func FormatVersion(version uint64) string {
	major := version / 1000000
	minor := (version % 1000000) / 1000
	patch := version % 1000
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// LibvirtStorage resolves the storage section from the libvirt pool named
// by pool.default_pool in the record under construction.
type LibvirtStorage struct {
	Client PoolClient
}

// Storage returns the pool's name, type and, when set, its target path,
// source name and source hosts.
func (s LibvirtStorage) Storage(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err := rec.Lookup("pool.default_pool")
	if err != nil {
		return nil, err
	}
	poolName, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("pool.default_pool is not a string")
	}

	pool, err := s.Client.StoragePoolLookupByName(poolName)
	if err != nil {
		return nil, fmt.Errorf("pool not found: %s: %w", poolName, err)
	}

	xmlDesc, err := s.Client.StoragePoolGetXMLDesc(pool, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool XML: %w", err)
	}

	var poolDef libvirtxml.StoragePool
	if err := poolDef.Unmarshal(xmlDesc); err != nil {
		return nil, fmt.Errorf("failed to parse pool XML: %w", err)
	}

	storage := record.New()
	if err := storage.Set("pool", poolName); err != nil {
		return nil, err
	}
	if err := storage.Set("type", poolDef.Type); err != nil {
		return nil, err
	}

	if poolDef.Target != nil && poolDef.Target.Path != "" {
		if err := storage.Set("path", poolDef.Target.Path); err != nil {
			return nil, err
		}
	}

	if poolDef.Source != nil {
		if poolDef.Source.Name != "" {
			if err := storage.Set("source", poolDef.Source.Name); err != nil {
				return nil, err
			}
		}

		var hosts []string
		for _, h := range poolDef.Source.Host {
			if h.Name != "" {
				hosts = append(hosts, h.Name)
			}
		}
		if len(hosts) > 0 {
			if err := storage.Set("hosts", strings.Join(hosts, " ")); err != nil {
				return nil, err
			}
		}
	}

	return storage, nil
}
