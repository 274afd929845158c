// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/zenodo-mirror/internal/mirror"
	"github.com/pdiddy/zenodo-mirror/internal/secrets"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 100 * time.Millisecond
	defaultPageSize  = 50
	defaultUserAgent = "zenodo-mirror/0.1"

	// defaultCommunity is the IODP community on zenodo.org.
	defaultCommunity = "c2f742bc-82f9-4f1e-911e-d1542e88cad7"

	apiKeyEnv  = "ZENODO_API_KEY"
	secretsDir = ".secrets/"
	apiKeyFile = "zenodo-api-key"

	// debug mode bounds, for validation runs.
	debugRecords  = 2
	debugFiles    = 2
	debugPageSize = 2
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the community's records and files",
	Long: `Sync walks the community's records page by page, fetches each record's
metadata, downloads any file that is missing or incomplete locally, and
updates the metadata journal after each record. Already-satisfied files are
not re-requested, so re-running after an interruption is cheap.`,
	RunE: runSync,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, syncCmd} {
		cmd.Flags().Bool("debug", false, fmt.Sprintf("bounded validation run (%d records, %d files each)", debugRecords, debugFiles))
		cmd.Flags().String("community", "", "Zenodo community identifier")
		cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
		cmd.Flags().Duration("delay", 0, "delay between consecutive records (default 100ms)")
		cmd.Flags().Int("page-size", 0, "listing page size (default 50)")
	}

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	apiKey := secrets.APIKey(apiKeyEnv, secretsDir, apiKeyFile)
	if apiKey == "" {
		return fmt.Errorf("%s environment variable not set (or %s%s missing)", apiKeyEnv, secretsDir, apiKeyFile)
	}

	debug, _ := cmd.Flags().GetBool("debug")

	community, _ := cmd.Flags().GetString("community")
	if community == "" {
		community = viper.GetString("community")
	}
	if community == "" {
		community = defaultCommunity
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	cfg := types.SyncConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL:     viper.GetString("base_url"),
		Community:   community,
		APIKey:      apiKey,
		OutputDir:   outputDir(cmd),
		PageSize:    pageSize,
		RecordDelay: delay,
	}

	if debug {
		fmt.Fprintln(os.Stdout, "Debug mode: bounded run for validation")
		cfg.PageSize = debugPageSize
		cfg.MaxRecords = debugRecords
		cfg.MaxFilesPerRecord = debugFiles
	}

	result, err := mirror.Run(cmd.Context(), cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFileFailures() {
		// Recovered locally: the run completed, re-invoking retries the
		// failed files. Not an error exit.
		fmt.Fprintf(os.Stderr, "warning: %d file(s) failed; re-run to retry\n", result.FilesFailed)
	}
	return nil
}
