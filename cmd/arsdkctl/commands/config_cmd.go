package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage arsdkctl contexts",
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0], &cli.Context{DefaultBackend: "net"}); err != nil {
			return err
		}
		cli.PrintSuccess("context %q added", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("now using context %q", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		for _, name := range cfg.ListContexts() {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, name)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddContextCmd, configUseContextCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
