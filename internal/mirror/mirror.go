// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mirror walks one Zenodo community and persists every record's
// files and metadata to local storage. Runs are sequential and idempotent:
// a file whose local size matches the declared size is never re-fetched,
// and the metadata journal is rewritten after each completed record so an
// interrupted run resumes cheaply.
package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/zenodo-mirror/internal/journal"
	"github.com/pdiddy/zenodo-mirror/internal/zenodo"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

// sidecarName is the per-record metadata file written next to the
// record's downloads.
const sidecarName = "metadata.yaml"

// RunResult holds the outcome of a mirror run.
type RunResult struct {
	Records         int
	RecordsFailed   int
	FilesDownloaded int
	FilesSkipped    int
	FilesFailed     int
}

// HasFileFailures reports whether any file downloads failed.
func (r RunResult) HasFileFailures() bool {
	return r.FilesFailed > 0
}

// Run mirrors the configured community into cfg.OutputDir. Listing
// failures abort the run; a record whose detail fetch fails is reported
// and skipped, and a file whose download fails does not stop the
// remaining files or records. Progress goes to w.
func Run(ctx context.Context, cfg types.SyncConfig, w io.Writer) (RunResult, error) {
	var result RunResult

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory: %w", err)
	}

	j, err := journal.Load(cfg.OutputDir)
	if err != nil {
		return result, err
	}

	client := zenodo.New(cfg)

	fmt.Fprintf(w, "Mirroring community %s\n", cfg.Community)

	err = client.EachRecord(ctx, cfg.Community, cfg.PageSize, cfg.MaxRecords, func(stub types.RecordStub) error {
		if result.Records+result.RecordsFailed > 0 && cfg.RecordDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.RecordDelay):
			}
		}

		rec, err := client.GetRecord(ctx, stub.ID)
		if err != nil {
			fmt.Fprintf(w, "warning: record %d skipped: %v\n", stub.ID, err)
			result.RecordsFailed++
			return nil
		}

		fmt.Fprintf(w, "record %d: %s (%d files)\n", rec.ID, rec.Title, len(rec.Files))

		downloaded, skipped, failed := processRecord(ctx, client, cfg, rec, w)
		result.FilesDownloaded += downloaded
		result.FilesSkipped += skipped
		result.FilesFailed += failed
		result.Records++

		j.Set(rec)
		if err := j.Save(); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	fmt.Fprintf(w, "\nRun summary: %d records (%d skipped), %d files downloaded, %d up to date, %d failed\n",
		result.Records, result.RecordsFailed,
		result.FilesDownloaded, result.FilesSkipped, result.FilesFailed)
	return result, nil
}

// processRecord downloads the record's files into its directory and
// writes the metadata sidecar. It returns per-file counters and never
// fails the record: individual download errors are logged and counted.
func processRecord(ctx context.Context, client *zenodo.Client, cfg types.SyncConfig, rec *types.Record, w io.Writer) (downloaded, skipped, failed int) {
	dir := filepath.Join(cfg.OutputDir, RecordDirName(rec.ID, rec.Title))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(w, "warning: record %d: creating %s: %v\n", rec.ID, dir, err)
		failed = len(rec.Files)
		return
	}

	files := rec.Files
	if cfg.MaxFilesPerRecord > 0 && len(files) > cfg.MaxFilesPerRecord {
		files = files[:cfg.MaxFilesPerRecord]
	}

	for _, f := range files {
		// filepath.Base keeps every download inside the record directory
		// regardless of what the manifest calls the file.
		dest := filepath.Join(dir, filepath.Base(f.Name))

		if Satisfied(dest, f.Size) {
			fmt.Fprintf(w, "  up to date: %s\n", f.Name)
			skipped++
			continue
		}

		fmt.Fprintf(w, "  downloading %s (%d bytes)\n", f.Name, f.Size)
		if err := downloadFile(ctx, client, f, dest); err != nil {
			fmt.Fprintf(w, "  warning: %s failed: %v\n", f.Name, err)
			failed++
			continue
		}
		downloaded++
	}

	if err := writeSidecar(rec, filepath.Join(dir, sidecarName)); err != nil {
		fmt.Fprintf(w, "warning: record %d: %v\n", rec.ID, err)
	}
	return
}

// writeSidecar stores the record metadata as YAML next to its files, so a
// record directory is self-describing even without the journal.
func writeSidecar(rec *types.Record, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling metadata sidecar: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
