package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/phiguard/internal/app"
	"github.com/bryanwahyu/phiguard/internal/config"
	"github.com/bryanwahyu/phiguard/internal/logging"
)

var Version = "dev"

// exitError carries a process exit code out of a command.
type exitError struct {
	Code    int
	Message string
}

func (e *exitError) Error() string { return e.Message }

type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, styleWarn.Render(exitErr.Message))
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", styleErr.Render("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "phiguard",
		Short: "phiguard - HIPAA compliance scanner for source code",
		Long: `phiguard reviews source files for HIPAA compliance issues such as exposed
PHI, missing encryption and hardcoded secrets. Scan a GitHub repository or
local files; results are kept in a local history and, when configured, in a
database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.Path(), "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(scanCmd(g))
	rootCmd.AddCommand(historyCmd(g))
	rootCmd.AddCommand(showCmd(g))
	rootCmd.AddCommand(clearCmd(g))
	return rootCmd
}

// setup loads config and wires services. Logging stays silent unless
// --debug is set.
func setup(ctx context.Context, g *globalFlags) (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	debug := g.debug || cfg.Log.Debug

	var logger *zap.Logger
	if debug {
		logger, err = logging.New(true)
		if err != nil {
			return nil, err
		}
	} else {
		logger = zap.NewNop()
	}
	return app.New(ctx, cfg, logger)
}
