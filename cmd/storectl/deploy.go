package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhijitnavale/flatpak/pkg/paths"
)

func newDeployCmd() *cobra.Command {
	var remoteName, checksum string

	cmd := &cobra.Command{
		Use:   "deploy <kind/name/arch/branch>",
		Short: "Deploy a ref, pulling it from a remote first if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := paths.ParseRef(args[0])
			if err != nil {
				return err
			}

			eng, err := buildEngine()
			if err != nil {
				return err
			}

			if err := eng.Deploy(context.Background(), ref, checksum, remoteName); err != nil {
				return err
			}

			fmt.Printf("deployed %s\n", ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteName, "remote", "flathub", "remote to resolve and fetch from")
	cmd.Flags().StringVar(&checksum, "commit", "", "pin to a specific commit checksum instead of resolving the latest")

	return cmd
}
