package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbweber/vmconf/internal/builder"
	"github.com/jbweber/vmconf/internal/hiera"
	"github.com/jbweber/vmconf/internal/record"
)

func TestParseFacts(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    hiera.Facts
		wantErr bool
	}{
		{name: "none", flags: nil, want: hiera.Facts{}},
		{name: "single", flags: []string{"stack=prod"}, want: hiera.Facts{"stack": "prod"}},
		{name: "value with equals", flags: []string{"role=a=b"}, want: hiera.Facts{"role": "a=b"}},
		{name: "empty value", flags: []string{"stack="}, want: hiera.Facts{"stack": ""}},
		{name: "missing equals", flags: []string{"stack"}, wantErr: true},
		{name: "empty key", flags: []string{"=prod"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFacts(tt.flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFacts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseFacts() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("fact %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

// writeHierarchy creates a hiera.yaml with common and per-stack data.
func writeHierarchy(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"hiera.yaml": `version: 5
defaults:
  datadir: data
hierarchy:
  - name: "Per-stack"
    path: "stacks/%{stack}.yaml"
  - name: "Common"
    path: "common.yaml"
`,
		"data/common.yaml": `infra:
  name: infra-01
  network: 10.20.30.40
  network_mask: 255.255.255.0
  broadcast_network: 10.20.30.255
  network_gw: 10.20.30.1
  dns: 10.20.30.2
cephfs:
  pool: rbd-vms
kvm:
  default:
    pool:
      name: default
`,
		"data/stacks/prod.yaml": `stack:
  domain: prod.example.com
  vm:
    web-01: prod-web-01
`,
		"resolv.conf": "nameserver 8.8.8.8\n",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	return dir
}

// resetFlags restores global flag state between command runs.
func resetFlags() {
	hieraConfig = "hiera.yaml"
	factFlags = nil
	outputFormat = "yaml"
	noHeaders = false
	quiet = false
	vmName = ""
	resolvConf = ""
	useLibvirt = false
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestNewBuilder_FromFlags(t *testing.T) {
	dir := writeHierarchy(t)
	resetFlags()
	t.Cleanup(resetFlags)

	hieraConfig = filepath.Join(dir, "hiera.yaml")
	factFlags = []string{"stack=prod"}
	vmName = "web-01"

	b, cleanup, err := newBuilder(t.Context())
	if err != nil {
		t.Fatalf("newBuilder() error = %v", err)
	}
	defer cleanup()

	name, err := b.Name()
	if err != nil {
		t.Fatalf("Name() error = %v", err)
	}
	if name != "prod-web-01" {
		t.Errorf("Name() = %q, want 'prod-web-01'", name)
	}

	// No resolv.conf flag: external DNS stays unimplemented
	if _, err := b.DNS(t.Context()); !errors.Is(err, builder.ErrNotImplemented) {
		t.Errorf("DNS() error = %v, want ErrNotImplemented", err)
	}
}

func TestNewBuilder_WithResolvConf(t *testing.T) {
	dir := writeHierarchy(t)
	resetFlags()
	t.Cleanup(resetFlags)

	hieraConfig = filepath.Join(dir, "hiera.yaml")
	factFlags = []string{"stack=prod"}
	vmName = "web-01"
	resolvConf = filepath.Join(dir, "resolv.conf")

	b, cleanup, err := newBuilder(t.Context())
	if err != nil {
		t.Fatalf("newBuilder() error = %v", err)
	}
	defer cleanup()

	// External DNS resolves, then the combined address fails on unset fields
	if _, err := b.DNS(t.Context()); !errors.Is(err, record.ErrNotAvailable) {
		t.Errorf("DNS() error = %v, want record.ErrNotAvailable", err)
	}
}

func TestBuildCommand_Fails(t *testing.T) {
	dir := writeHierarchy(t)

	err := execute(t, "build", "-q", "-n", "web-01", "-c", filepath.Join(dir, "hiera.yaml"), "--fact", "stack=prod")
	if !errors.Is(err, builder.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if !strings.Contains(err.Error(), "web-01") {
		t.Errorf("expected error to name the VM, got %q", err.Error())
	}
}

func TestBuildCommand_InvalidOutput(t *testing.T) {
	dir := writeHierarchy(t)

	err := execute(t, "build", "-q", "-n", "web-01", "-c", filepath.Join(dir, "hiera.yaml"), "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("expected invalid format error, got %v", err)
	}
}

func TestInspectCommand(t *testing.T) {
	dir := writeHierarchy(t)
	config := filepath.Join(dir, "hiera.yaml")

	tests := []struct {
		section string
		wantErr error
	}{
		{section: "name"},
		{section: "network"},
		{section: "pool"},
		{section: "dns", wantErr: builder.ErrNotImplemented},
		{section: "target", wantErr: builder.ErrNotImplemented},
		{section: "storage", wantErr: builder.ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			err := execute(t, "inspect", tt.section, "-q", "-n", "web-01", "-c", config, "--fact", "stack=prod", "-o", "table")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("inspect %s error = %v", tt.section, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("inspect %s error = %v, want %v", tt.section, err, tt.wantErr)
			}
		})
	}
}

func TestInspectCommand_UnknownSection(t *testing.T) {
	dir := writeHierarchy(t)

	err := execute(t, "inspect", "cpu", "-q", "-n", "web-01", "-c", filepath.Join(dir, "hiera.yaml"))
	if err == nil || !strings.Contains(err.Error(), "unknown section") {
		t.Fatalf("expected unknown section error, got %v", err)
	}
}

func TestLookupCommand(t *testing.T) {
	dir := writeHierarchy(t)
	config := filepath.Join(dir, "hiera.yaml")

	if err := execute(t, "lookup", "-q", "-c", config, "infra.network"); err != nil {
		t.Errorf("lookup infra.network error = %v", err)
	}

	err := execute(t, "lookup", "-q", "-c", config, "stack.domain")
	if !errors.Is(err, hiera.ErrKeyNotFound) {
		t.Errorf("expected stack.domain to be missing without the stack fact, got %v", err)
	}
}

func TestLoadStore_MissingConfig(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	hieraConfig = filepath.Join(t.TempDir(), "hiera.yaml")

	if _, err := loadStore(); err == nil {
		t.Fatal("expected error for missing hiera.yaml")
	}
}

// poolStorage reports the pool it was pointed at by the record.
type poolStorage struct{}

func (poolStorage) Storage(_ context.Context, rec *record.Record) (*record.Record, error) {
	v, err := rec.Lookup("pool.default_pool")
	if err != nil {
		return nil, err
	}
	storage := record.New()
	if err := storage.Set("pool", v); err != nil {
		return nil, err
	}
	return storage, nil
}

func TestInspectSection_StorageAlone(t *testing.T) {
	dir := writeHierarchy(t)
	resetFlags()
	t.Cleanup(resetFlags)

	hieraConfig = filepath.Join(dir, "hiera.yaml")
	factFlags = []string{"stack=prod"}

	store, err := loadStore()
	if err != nil {
		t.Fatalf("loadStore() error = %v", err)
	}
	b := builder.New(builder.Args{Name: "web-01"}, store, builder.WithStorageResolver(poolStorage{}))

	value, err := inspectSection(t.Context(), b, "storage")
	if err != nil {
		t.Fatalf("inspectSection(storage) error = %v", err)
	}
	storage, ok := value.(*record.Record)
	if !ok {
		t.Fatalf("expected *record.Record, got %T", value)
	}
	pool, err := storage.String("pool")
	if err != nil {
		t.Fatalf("String(pool) error = %v", err)
	}
	if pool != "default" {
		t.Errorf("storage.pool = %q, want 'default'", pool)
	}
}

// fakeHost answers the hypervisor identity queries.
type fakeHost struct {
	err error
}

func (f fakeHost) ConnectGetHostname() (string, error) {
	return "hv01.example.com", f.err
}

func (f fakeHost) ConnectGetUri() (string, error) {
	return "qemu:///system", nil
}

func (f fakeHost) ConnectGetLibVersion() (uint64, error) {
	return 10000000, nil
}

func TestDescribeHost(t *testing.T) {
	var out strings.Builder
	if err := describeHost(t.Context(), fakeHost{}, &out); err != nil {
		t.Fatalf("describeHost() error = %v", err)
	}

	want := "✓ Libvirt version: 10.0.0\n" +
		"✓ Hypervisor hostname: hv01.example.com\n" +
		"✓ Connection URI: qemu:///system\n"
	if out.String() != want {
		t.Errorf("describeHost() output = %q, want %q", out.String(), want)
	}
}

func TestDescribeHost_Error(t *testing.T) {
	var out strings.Builder
	err := describeHost(t.Context(), fakeHost{err: errors.New("connection reset")}, &out)
	if err == nil || !strings.Contains(err.Error(), "hostname") {
		t.Fatalf("expected hostname failure, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output on failure, got %q", out.String())
	}
}
