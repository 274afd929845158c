// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the zenodo-mirror CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command. Invoked bare it runs a full mirror pass,
// so `zenodo-mirror --debug` behaves like `zenodo-mirror sync --debug`.
var rootCmd = &cobra.Command{
	Use:   "zenodo-mirror",
	Short: "Mirror a Zenodo community to local storage",
	Long: `zenodo-mirror retrieves every record published under one Zenodo community
and persists each record's files and metadata to local storage. Re-runs are
idempotent: files whose local size matches the declared size are skipped, and
the metadata journal is rewritten after each record so interrupted runs
resume where they left off.

The Zenodo API key is read from the ZENODO_API_KEY environment variable, or
from .secrets/zenodo-api-key as a fallback.`,
	RunE: runSync,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./zenodo-mirror.yaml or ~/.config/zenodo-mirror/config.yaml)")
	rootCmd.PersistentFlags().String("out-dir", "", "root output directory (default \"data\")")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("zenodo-mirror")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "zenodo-mirror"))
		}
	}

	viper.SetEnvPrefix("ZENODO_MIRROR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// outputDir resolves the mirror root: flag, then config file, then "data".
func outputDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("out-dir"); dir != "" {
		return dir
	}
	if dir := viper.GetString("output_dir"); dir != "" {
		return dir
	}
	return "data"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
