package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <key>",
	Short: "Look up a key in the Hiera data",
	Long: `Look up a single key in the loaded hierarchy and print its value.

Keys use dot notation with optional brackets, which may contain dots:
  infra.network
  kvm.default.pool.name
  stack.vm[web-01]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}

		value, err := store.String(args[0])
		if err != nil {
			return err
		}

		fmt.Println(value)
		return nil
	},
}
