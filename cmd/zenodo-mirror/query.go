// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zenodo-mirror/internal/index"
	"github.com/pdiddy/zenodo-mirror/internal/journal"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [terms...]",
	Short: "Search mirrored record metadata locally",
	Long: `Query rebuilds the local SQLite index from the metadata journal and runs a
full-text search over record titles, descriptions, and creators. With no
terms it lists every mirrored record.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("max-results", 0, "maximum number of results (default 20)")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	out := outputDir(cmd)

	j, err := journal.Load(out)
	if err != nil {
		return err
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")
	store, err := index.NewStore(types.IndexConfig{OutputDir: out, MaxResults: maxResults})
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Rebuild(cmd.Context(), j); err != nil {
		return err
	}

	results, err := store.Query(cmd.Context(), strings.Join(args, " "), maxResults)
	if err != nil {
		return err
	}
	index.FormatTable(results, os.Stdout)
	return nil
}
