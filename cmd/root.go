package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ripd",
	Short: "RIP-style distance-vector routing daemon",
	Long: `ripd runs one router instance of a simulated RIP network. Instances
exchange periodic and triggered routing updates over loopback UDP sockets and
converge on shortest-cost paths, following RFC 2453's update, timeout,
garbage-collection and split-horizon mechanics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ripd.yaml", "router configuration file")
}
