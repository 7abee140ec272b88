package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/winordie-47/linuxbrew1/internal/version"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "lbrew",
		Short:   "A source and binary package installer",
		Long:    "lbrew installs formulae into a shared prefix, pouring precompiled\nbottles when possible and building from source in isolation otherwise.",
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			p, err := paths.New("")
			if err == nil {
				if cfg, err := config.Load(p.Prefix()); err == nil {
					config.Initialize(cfg)
				}
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lbrew version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}
