package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/solred/ripd/core"
	"github.com/solred/ripd/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one router instance",
	Long:  `Load the configuration, bind the input ports and enter the router loop.`,
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

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		if err := core.Start(*cfg, level, nil); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
