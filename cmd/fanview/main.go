package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fanview",
	Short: "fanview sends one prompt to several chat panels at once",
	Long: `fanview opens one browser window per chat service, tiles them side by side above a
control strip, and fans every command out to all of them concurrently.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides the config)")
}
