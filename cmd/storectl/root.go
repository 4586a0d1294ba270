package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abhijitnavale/flatpak/pkg/logging"
)

var (
	verbosity  int
	userMode   bool
	configPath string
)

// NewRootCmd builds the storectl command tree: a thin layer that
// parses flags and calls straight into the engine.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storectl",
		Short: "Manage a sandboxed application installation directory",
		Long: `storectl deploys, undeploys, and inspects the apps and runtimes
held in a content-addressed installation directory, following the same
checkout/active-symlink/exports model as the sandboxing system it
serves.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug, -vvv trace)")
	root.PersistentFlags().BoolVar(&userMode, "user", true, "operate on the per-user installation instead of the system one")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an overlay TOML config file")

	root.AddCommand(newDeployCmd())
	root.AddCommand(newUndeployCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newPruneCmd())

	return root
}
