package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete unreachable objects from the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}

			result, err := eng.Prune()
			if err != nil {
				return err
			}

			fmt.Printf("pruned %d of %d objects, freed %d bytes\n",
				result.PrunedObjects, result.TotalObjects, result.FreedBytes)
			return nil
		},
	}
}
