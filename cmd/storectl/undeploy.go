package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhijitnavale/flatpak/pkg/paths"
)

func newUndeployCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "undeploy <kind/name/arch/branch> <commit>",
		Short: "Remove one deployed commit of a ref",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := paths.ParseRef(args[0])
			if err != nil {
				return err
			}

			eng, err := buildEngine()
			if err != nil {
				return err
			}

			if err := eng.Undeploy(ref, args[1], force); err != nil {
				return err
			}

			fmt.Printf("undeployed %s at %s\n", ref, args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "delete the checkout immediately even if it may still be in use")

	return cmd
}
