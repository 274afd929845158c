// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zenodo-mirror/internal/journal"
	"github.com/pdiddy/zenodo-mirror/internal/mirror"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check downloaded files against their declared checksums",
	Long: `Verify recomputes the md5 checksum of every journaled file and compares it
to the value the record manifest declared. It touches only local state and
exits non-zero when any file is missing or mismatched.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := outputDir(cmd)

	j, err := journal.Load(out)
	if err != nil {
		return err
	}

	result := mirror.Verify(out, j, os.Stdout)
	if !result.Clean() {
		return fmt.Errorf("verification failed: %d missing, %d mismatched", result.Missing, result.Mismatched)
	}
	return nil
}
