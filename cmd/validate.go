package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solred/ripd/state"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a router configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.ReadConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := state.ConfigValidator(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config %s: %v\n", configPath, err)
			os.Exit(1)
		}
		fmt.Printf("%s: router %d, %d input ports, %d neighbours\n",
			configPath, cfg.Id, len(cfg.InputPorts), len(cfg.Neighbours))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
