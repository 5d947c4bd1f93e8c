package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jbweber/vmconf/internal/builder"
	"github.com/jbweber/vmconf/internal/libvirt"
	"github.com/jbweber/vmconf/internal/resolve"
)

// Build flags, shared by build and inspect
var (
	vmName     string
	resolvConf string
	useLibvirt bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a VM configuration record",
	Long: `Build the configuration record for a VM from Hiera data.

The record contains the VM name, network, dns, pool, target and storage
sections. External DNS, target and storage have no default source:
enable them with --resolv-conf and --libvirt.

Example:
  vmconf build -n web-01 -c hiera.yaml --fact stack=prod -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		ctx := context.Background()
		b, cleanup, err := newBuilder(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := b.Build(ctx)
		if err != nil {
			return fmt.Errorf("failed to build configuration for %s: %w", vmName, err)
		}

		result, err := formatter.FormatRecord(rec)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <section>",
	Short: "Derive a single section of the configuration record",
	Long: `Derive one section of a VM's configuration record without building the
rest. Sections: name, network, dns, pool, target, storage.

Example:
  vmconf inspect network -n web-01 -c hiera.yaml --fact stack=prod`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"name", "network", "dns", "pool", "target", "storage"},
	RunE: func(cmd *cobra.Command, args []string) error {
		section := args[0]

		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		ctx := context.Background()
		b, cleanup, err := newBuilder(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		value, err := inspectSection(ctx, b, section)
		if err != nil {
			return err
		}

		result, err := formatter.FormatValue(section, value)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

// inspectSection derives a single section. Sections it depends on are
// derived along the way but not printed.
func inspectSection(ctx context.Context, b *builder.Builder, section string) (any, error) {
	var value any
	var err error
	switch section {
	case "name":
		value, err = b.Name()
	case "network":
		value, err = b.Network()
	case "dns":
		value, err = b.DNS(ctx)
	case "pool":
		value, err = b.Pool()
	case "target":
		value, err = b.Target(ctx)
	case "storage":
		value, err = b.Storage(ctx)
	default:
		return nil, fmt.Errorf("unknown section: %s (valid sections: name, network, dns, pool, target, storage)", section)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", section, err)
	}
	return value, nil
}

func init() {
	for _, cmd := range []*cobra.Command{buildCmd, inspectCmd} {
		cmd.Flags().StringVarP(&vmName, "name", "n", "", "Name of the VM to build (required)")
		cmd.Flags().StringVar(&resolvConf, "resolv-conf", "", "Resolve external DNS from this resolv.conf")
		cmd.Flags().BoolVar(&useLibvirt, "libvirt", false, "Resolve target and storage from libvirt")
		_ = cmd.MarkFlagRequired("name")
	}
}

// newBuilder loads the hierarchy and wires the resolvers enabled by flags.
// The returned cleanup releases the libvirt connection, if one was opened.
func newBuilder(ctx context.Context) (*builder.Builder, func(), error) {
	store, err := loadStore()
	if err != nil {
		return nil, nil, err
	}

	var opts []builder.Option
	cleanup := func() {}

	if resolvConf != "" {
		opts = append(opts, builder.WithDNSResolver(resolve.ResolvConf{Path: resolvConf}))
	}

	if useLibvirt {
		log.Printf("Connecting to libvirt...")
		client, err := libvirt.ConnectWithContext(ctx, socketPath, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		cleanup = func() {
			if err := client.Close(); err != nil {
				log.Printf("Warning: failed to close libvirt connection: %v", err)
			}
		}

		opts = append(opts,
			builder.WithTargetResolver(resolve.LibvirtTarget{Client: client.Libvirt()}),
			builder.WithStorageResolver(resolve.LibvirtStorage{Client: client.Libvirt()}),
		)
	}

	return builder.New(builder.Args{Name: vmName}, store, opts...), cleanup, nil
}
