package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbweber/vmconf/internal/hiera"
	"github.com/jbweber/vmconf/internal/libvirt"
	"github.com/jbweber/vmconf/internal/output"
	"github.com/jbweber/vmconf/internal/record"
	"github.com/jbweber/vmconf/internal/resolve"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	hieraConfig  string
	factFlags    []string
	outputFormat string
	noHeaders    bool
	quiet        bool
	socketPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vmconf",
	Short: "vmconf - VM configuration builder",
	Long: `vmconf builds a virtual machine configuration record from command line
arguments and Hiera configuration data.

The record is consumed by downstream provisioning tooling; vmconf itself
never creates or changes VMs.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		log.SetOutput(os.Stderr)
		if quiet {
			log.SetOutput(io.Discard)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&hieraConfig, "config", "c", "hiera.yaml", "Path to hiera.yaml")
	rootCmd.PersistentFlags().StringArrayVar(&factFlags, "fact", nil, "Fact for hierarchy interpolation as key=value (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: table, yaml, json")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress logging")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", libvirt.DefaultSocket, "Libvirt socket path")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(testConnCmd)
}

// parseFacts converts key=value flags into hiera facts.
func parseFacts(flags []string) (hiera.Facts, error) {
	facts := hiera.Facts{}
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid fact %q (expected key=value)", f)
		}
		facts[key] = value
	}
	return facts, nil
}

// loadStore loads the hierarchy named by --config with --fact values.
func loadStore() (*hiera.Store, error) {
	facts, err := parseFacts(factFlags)
	if err != nil {
		return nil, err
	}

	log.Printf("Loading hierarchy from %s...", hieraConfig)
	store, err := hiera.LoadConfig(hieraConfig, facts)
	if err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}
	log.Printf("Loaded %d data layer(s): %s", len(store.Layers()), strings.Join(store.Layers(), ", "))

	return store, nil
}

// newFormatter validates --output and creates the formatter.
func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon used by the target and storage resolvers.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Testing libvirt connection...")

		client, err := libvirt.ConnectWithContext(context.Background(), socketPath, 0)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Printf("Warning: failed to close libvirt connection: %v", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		if err := describeHost(context.Background(), client.Libvirt(), os.Stdout); err != nil {
			return err
		}

		fmt.Println("\nConnection test successful!")
		return nil
	},
}

// describeHost prints the hypervisor identity used for the target section.
func describeHost(ctx context.Context, client resolve.HostClient, w io.Writer) error {
	target, err := resolve.LibvirtTarget{Client: client}.Target(ctx, record.New())
	if err != nil {
		return err
	}

	for _, line := range [][2]string{
		{"version", "Libvirt version"},
		{"host", "Hypervisor hostname"},
		{"uri", "Connection URI"},
	} {
		value, err := target.String(line[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ %s: %s\n", line[1], value)
	}
	return nil
}
