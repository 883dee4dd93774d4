// Package commands implements arsdkctl's cobra command tree (spec §6
// "Example driver"), grounded on the teacher's cmd/giztoy/commands package
// layout: one cobra.Command var per file, registered from init, sharing a
// persistent --context flag resolved through pkg/cli's Config.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/cli"
)

const appName = "arsdkctl"

var (
	verbose     bool
	contextName string

	globalConfig  *cli.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "arsdkctl",
	Short: "Drone controller CLI",
	Long: `arsdkctl - a command-line driver for the controller-side drone SDK runtime.

Discovery:
  arsdkctl discover --net :44444
  arsdkctl discover --avahi
  arsdkctl discover --mux tcp://192.168.42.1:1883

File transfer:
  arsdkctl ftp get --addr 192.168.42.1 --port 21 /internal_000/media/a.jpg ./a.jpg
  arsdkctl media dl --addr 192.168.42.1 --port 21 --out ./media

Configuration is stored in ~/.arsdkctl/arsdkctl/config.yaml.
Use 'arsdkctl config' to manage contexts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context to use (default: current context)")
}

func initConfig() {
	cfg, err := cli.LoadConfig(appName)
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration, loading it if needed.
func GetConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := cli.LoadConfig(appName)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// currentContext resolves contextName against the config, falling back to
// an empty *cli.Context when no config file/context exists yet (most
// subcommands take --addr/--port directly and don't require one).
func currentContext() (*cli.Context, error) {
	cfg, err := GetConfig()
	if err != nil {
		return &cli.Context{}, nil
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		return &cli.Context{}, nil
	}
	return ctx, nil
}
