package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/winordie-47/linuxbrew1/pkg/bottle"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/filesystem"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/install"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

func newInstallCmd() *cobra.Command {
	var opts install.Options

	cmd := &cobra.Command{
		Use:   "install <formula> [--with-option ...]",
		Short: "Install a formula and its dependencies",
		Long: `Install a formula into the Cellar and link it into the prefix.

Precompiled bottles are poured when one matches the current platform and
no options force a source build. Extra arguments of the form --with-x,
--without-x or --universal select build options declared by the formula.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			for _, arg := range args[1:] {
				if !strings.HasPrefix(arg, "--") {
					return errors.Newf(errors.ErrOptionUnrecognized,
						"unexpected argument %q, options start with --", arg)
				}
				opts.RequestedOptions = append(opts.RequestedOptions, strings.TrimPrefix(arg, "--"))
			}
			return runInstall(name, opts)
		},
	}

	// Mixed option flags are parsed by hand above.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().BoolVarP(&opts.BuildFromSource, "build-from-source", "s", false, "Compile from source even if a bottle is available")
	cmd.Flags().BoolVar(&opts.ForceBottle, "force-bottle", false, "Pour the bottle even if it would normally be skipped")
	cmd.Flags().BoolVar(&opts.BuildBottle, "build-bottle", false, "Build with bottling in mind")
	cmd.Flags().BoolVar(&opts.OnlyDependencies, "only-dependencies", false, "Install dependencies but not the formula itself")
	cmd.Flags().BoolVar(&opts.IgnoreDependencies, "ignore-dependencies", false, "Skip installing dependencies (may break the build)")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Build from source with an interactive shell")
	cmd.Flags().BoolVar(&opts.IgnoreConflicts, "ignore-conflicts", false, "Proceed despite declared conflicts")
	cmd.Flags().BoolVar(&opts.DevStrict, "dev-strict", false, "Treat a failed bottle pour as fatal instead of building from source")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose-build", "V", false, "Stream build output")
	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "Log state transitions at info level")

	return cmd
}

func runInstall(name string, opts install.Options) error {
	fs := filesystem.NewOS()

	p, err := paths.New("")
	if err != nil {
		return err
	}

	cfg := config.Get()
	store := formula.NewStore(fs, p)
	session := install.NewSession(p)
	fetcher := bottle.NewCacheFetcher(fs, p)

	installer := install.New(fs, p, store, formula.NewPathChecker(), session, cfg, fetcher, opts)
	result, err := installer.Install(name)
	if err != nil {
		return err
	}

	install.PrintSummary(fs, result)
	if session.Failed() {
		return errors.Newf(errors.ErrPostInstall,
			"%s installed with failures, see warnings above", name)
	}
	return nil
}
