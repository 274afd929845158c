// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/zenodo-mirror/internal/zenodo"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

// maxTitleLen caps the sanitized title used in directory names.
const maxTitleLen = 100

// SanitizeTitle reduces a record title to a filesystem-safe directory
// component: letters, digits, spaces, hyphens and underscores survive,
// everything else is dropped, and the result is length-capped.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if len(s) > maxTitleLen {
		s = strings.TrimSpace(s[:maxTitleLen])
	}
	return s
}

// RecordDirName returns the per-record directory name, "<id>_<title>".
// A title that sanitizes to nothing leaves just the identifier.
func RecordDirName(id int64, title string) string {
	safe := SanitizeTitle(title)
	if safe == "" {
		return fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%d_%s", id, safe)
}

// Satisfied reports whether a local file at path already matches the
// declared size. This size check is the sole resume/integrity test: a
// satisfied file is never re-requested.
func Satisfied(path string, size int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() == size
}

// downloadFile streams the file's content to destPath through a temp file,
// renaming on success so a partial download never masquerades as complete.
func downloadFile(ctx context.Context, client *zenodo.Client, f types.File, destPath string) error {
	body, err := client.OpenFile(ctx, f.DownloadURL)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
