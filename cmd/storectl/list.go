package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhijitnavale/flatpak/pkg/paths"
)

func newListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed refs",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}

			refs, err := eng.ListRefs(paths.Kind(kind))
			if err != nil {
				return err
			}

			for _, ref := range refs {
				fmt.Println(ref)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(paths.KindApp), "kind of ref to list (app or runtime)")

	return cmd
}
