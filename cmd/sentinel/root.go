package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - content moderation orchestration",
	Long: `Sentinel sits between applications and remote moderation providers.
It schedules and debounces checks, enforces per-tenant rate limits,
caches tenant settings, and turns provider category scores into
allow/warn/flag/block decisions through declarative policies.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
