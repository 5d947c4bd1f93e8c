// Package builder assembles a VM configuration record from command line
// arguments and a hierarchical configuration store.
//
//	b := builder.New(builder.Args{Name: "web-01"}, store)
//	rec, err := b.Build(ctx)
//
// Build derives, in order: name, network, dns, pool, target, storage.
// The first failure aborts the build and the partial record is discarded.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jbweber/vmconf/internal/record"
)

// ErrNotImplemented is returned by derivations that have no
// implementation configured.
var ErrNotImplemented = errors.New("not implemented")

// Store keys read by the builder.
const (
	KeyInfraName        = "infra.name"
	KeyInfraNetwork     = "infra.network"
	KeyInfraNetworkMask = "infra.network_mask"
	KeyInfraBroadcast   = "infra.broadcast_network"
	KeyInfraNetworkGW   = "infra.network_gw"
	KeyInfraDNS         = "infra.dns"
	KeyStackDomain      = "stack.domain"
	KeyCephPool         = "cephfs.pool"
	KeyKVMDefaultPool   = "kvm.default.pool.name"
)

// infraVMs are named after the infrastructure itself rather than looked
// up in the stack's VM mapping.
var infraVMs = map[string]bool{
	"dns":        true,
	"puppet":     true,
	"ceph-admin": true,
}

// Args holds the command line parameters the build depends on.
type Args struct {
	// Name identifies which VM's configuration to build.
	Name string
}

// Source is the read-only hierarchical configuration store.
// It is satisfied by *hiera.Store.
type Source interface {
	// String looks up a dotted key, e.g. "infra.network".
	String(key string) (string, error)

	// StringPath looks up a key already split into segments. Segments are
	// used verbatim, so VM names may contain dots or brackets.
	StringPath(path ...string) (string, error)
}

// DNSResolver returns the externally resolved DNS server address.
type DNSResolver interface {
	ExternalDNS(ctx context.Context) (string, error)
}

// TargetResolver derives the target section from the record built so far.
type TargetResolver interface {
	Target(ctx context.Context, rec *record.Record) (*record.Record, error)
}

// StorageResolver derives the storage section from the record built so far.
type StorageResolver interface {
	Storage(ctx context.Context, rec *record.Record) (*record.Record, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithDNSResolver sets the external DNS resolver.
func WithDNSResolver(r DNSResolver) Option {
	return func(b *Builder) { b.dns = r }
}

// WithTargetResolver sets the target resolver.
func WithTargetResolver(r TargetResolver) Option {
	return func(b *Builder) { b.target = r }
}

// WithStorageResolver sets the storage resolver.
func WithStorageResolver(r StorageResolver) Option {
	return func(b *Builder) { b.storage = r }
}

// Builder assembles one configuration record per Build call.
type Builder struct {
	args    Args
	store   Source
	dns     DNSResolver
	target  TargetResolver
	storage StorageResolver

	rec *record.Record
}

// New creates a Builder. Without options, external DNS, target and
// storage fail with ErrNotImplemented.
func New(args Args, store Source, opts ...Option) *Builder {
	b := &Builder{
		args:    args,
		store:   store,
		dns:     notImplemented{},
		target:  notImplemented{},
		storage: notImplemented{},
		rec:     record.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates the VM configuration record.
func (b *Builder) Build(ctx context.Context) (*record.Record, error) {
	b.rec = record.New()

	log.Printf("Building configuration for VM '%s'...", b.args.Name)

	steps := []struct {
		key   string
		build func(context.Context) (any, error)
	}{
		{"name", func(context.Context) (any, error) { return b.Name() }},
		{"network", func(context.Context) (any, error) { return b.Network() }},
		{"dns", func(ctx context.Context) (any, error) { return b.DNS(ctx) }},
		{"pool", func(context.Context) (any, error) { return b.Pool() }},
		{"target", func(ctx context.Context) (any, error) { return b.Target(ctx) }},
		{"storage", func(ctx context.Context) (any, error) { return b.Storage(ctx) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled: %w", err)
		}

		log.Printf("Deriving %s...", step.key)
		value, err := step.build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", step.key, err)
		}
		if err := b.rec.Set(step.key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", step.key, err)
		}
	}

	rec := b.rec
	b.rec = record.New()
	return rec, nil
}

// Name derives the VM name.
func (b *Builder) Name() (string, error) {
	if infraVMs[b.args.Name] {
		return b.store.String(KeyInfraName)
	}
	return b.store.StringPath("stack", "vm", b.args.Name)
}

// Network derives the network section.
func (b *Builder) Network() (*record.Record, error) {
	return b.section([][2]string{
		{"ip", KeyInfraNetwork},
		{"mask", KeyInfraNetworkMask},
		{"bc", KeyInfraBroadcast},
		{"gw", KeyInfraNetworkGW},
	})
}

// DNS derives the dns section.
//
// The combined ip field is read from ip_ext_dns and ip_int_dns on the
// record under construction. Nothing assigns those keys, so this fails
// with record.ErrNotAvailable once the external DNS lookup succeeds.
func (b *Builder) DNS(ctx context.Context) (*record.Record, error) {
	dns := record.New()

	ipExt, err := b.dns.ExternalDNS(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve external DNS: %w", err)
	}
	if err := dns.Set("ip_ext", ipExt); err != nil {
		return nil, err
	}

	ipInt, err := b.store.String(KeyInfraDNS)
	if err != nil {
		return nil, err
	}
	if err := dns.Set("ip_int", ipInt); err != nil {
		return nil, err
	}

	ipExtDNS, err := b.rec.String("ip_ext_dns")
	if err != nil {
		return nil, err
	}
	ipIntDNS, err := b.rec.String("ip_int_dns")
	if err != nil {
		return nil, err
	}
	if err := dns.Set("ip", fmt.Sprintf("%s %s", ipExtDNS, ipIntDNS)); err != nil {
		return nil, err
	}

	search, err := b.store.String(KeyStackDomain)
	if err != nil {
		return nil, err
	}
	if err := dns.Set("search", search); err != nil {
		return nil, err
	}

	return dns, nil
}

// Pool derives the pool section.
func (b *Builder) Pool() (*record.Record, error) {
	return b.section([][2]string{
		{"ceph_pool_name", KeyCephPool},
		{"default_pool", KeyKVMDefaultPool},
	})
}

// Target derives the target section.
func (b *Builder) Target(ctx context.Context) (*record.Record, error) {
	return b.target.Target(ctx, b.rec)
}

// Storage derives the storage section. The storage resolver reads the
// pool section, so pool is derived first when running on its own.
func (b *Builder) Storage(ctx context.Context) (*record.Record, error) {
	if err := b.require("pool", func() (any, error) { return b.Pool() }); err != nil {
		return nil, err
	}
	return b.storage.Storage(ctx, b.rec)
}

// require derives key into the record under construction unless a
// previous step already set it.
func (b *Builder) require(key string, derive func() (any, error)) error {
	if b.rec.Has(key) {
		return nil
	}
	value, err := derive()
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, err)
	}
	return b.rec.Set(key, value)
}

// section copies store keys verbatim into a new record.
// Each pair is {record key, store key}.
func (b *Builder) section(fields [][2]string) (*record.Record, error) {
	sec := record.New()
	for _, f := range fields {
		value, err := b.store.String(f[1])
		if err != nil {
			return nil, err
		}
		if err := sec.Set(f[0], value); err != nil {
			return nil, err
		}
	}
	return sec, nil
}

// notImplemented is the default for derivations with no implementation.
type notImplemented struct{}

func (notImplemented) ExternalDNS(context.Context) (string, error) {
	return "", fmt.Errorf("external DNS resolution: %w", ErrNotImplemented)
}

func (notImplemented) Target(context.Context, *record.Record) (*record.Record, error) {
	return nil, fmt.Errorf("target: %w", ErrNotImplemented)
}

func (notImplemented) Storage(context.Context, *record.Record) (*record.Record, error) {
	return nil, fmt.Errorf("storage: %w", ErrNotImplemented)
}
