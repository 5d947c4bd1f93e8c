// Package config provides the typed view of a built VM configuration
// record, for Go callers that want named fields instead of key lookups.
package config

import (
	"fmt"
	"strings"

	"github.com/jbweber/vmconf/internal/record"
)

// VMConfig represents the complete VM configuration.
type VMConfig struct {
	Name    string         `yaml:"name" json:"name"`
	Network NetworkConfig  `yaml:"network" json:"network"`
	DNS     DNSConfig      `yaml:"dns" json:"dns"`
	Pool    PoolConfig     `yaml:"pool" json:"pool"`
	Target  *TargetConfig  `yaml:"target,omitempty" json:"target,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty" json:"storage,omitempty"`
}

// NetworkConfig defines the VM's primary network.
type NetworkConfig struct {
	IP   string `yaml:"ip" json:"ip"`
	Mask string `yaml:"mask" json:"mask"`
	BC   string `yaml:"bc" json:"bc"` // Broadcast address
	GW   string `yaml:"gw" json:"gw"`
}

// DNSConfig defines name resolution for the VM.
type DNSConfig struct {
	IPExt  string `yaml:"ip_ext" json:"ip_ext"` // Externally resolved nameserver
	IPInt  string `yaml:"ip_int" json:"ip_int"` // Infrastructure nameserver
	IP     string `yaml:"ip" json:"ip"`         // Space-separated nameserver list
	Search string `yaml:"search" json:"search"`
}

// PoolConfig names the storage pools the VM uses.
type PoolConfig struct {
	CephPoolName string `yaml:"ceph_pool_name" json:"ceph_pool_name"`
	DefaultPool  string `yaml:"default_pool" json:"default_pool"`
}

// TargetConfig describes the hypervisor the VM is placed on.
type TargetConfig struct {
	Host    string `yaml:"host" json:"host"`
	URI     string `yaml:"uri" json:"uri"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// StorageConfig describes the libvirt pool backing the VM's disks.
type StorageConfig struct {
	Pool   string `yaml:"pool" json:"pool"`
	Type   string `yaml:"type" json:"type"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"` // e.g. RBD pool name
	Hosts  string `yaml:"hosts,omitempty" json:"hosts,omitempty"`   // Space-separated source hosts
}

// FromRecord decodes a configuration record into a VMConfig.
// Sections missing from the record are left at their zero value; no
// validation is performed.
func FromRecord(rec *record.Record) (*VMConfig, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}

	var cfg VMConfig
	if err := rec.Node().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &cfg, nil
}

// NameServers returns the DNS servers as a list, splitting the
// space-separated IP field.
func (d DNSConfig) NameServers() []string {
	return strings.Fields(d.IP)
}
