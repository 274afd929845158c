// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mirror

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/zenodo-mirror/internal/journal"
)

// VerifyResult holds per-file counters from a checksum verification pass.
type VerifyResult struct {
	Checked    int
	Missing    int
	Mismatched int
	Unchecked  int
}

// Clean reports whether nothing was missing or mismatched.
func (r VerifyResult) Clean() bool {
	return r.Missing == 0 && r.Mismatched == 0
}

// Verify recomputes the checksum of every journaled file and compares it
// to the declared value. It reads only local state; sync's resume logic
// stays size-only and is unaffected. Files without an md5 checksum in the
// manifest are counted as unchecked.
func Verify(outputDir string, j *journal.Journal, w io.Writer) VerifyResult {
	var result VerifyResult

	for _, rec := range j.Records() {
		dir := filepath.Join(outputDir, RecordDirName(rec.ID, rec.Title))
		for _, f := range rec.Files {
			path := filepath.Join(dir, filepath.Base(f.Name))

			want, ok := strings.CutPrefix(f.Checksum, "md5:")
			if !ok || want == "" {
				result.Unchecked++
				continue
			}

			got, err := md5File(path)
			if os.IsNotExist(err) {
				fmt.Fprintf(w, "missing:    record %d %s\n", rec.ID, f.Name)
				result.Missing++
				continue
			}
			if err != nil {
				fmt.Fprintf(w, "warning: record %d %s: %v\n", rec.ID, f.Name, err)
				result.Unchecked++
				continue
			}

			if !strings.EqualFold(got, want) {
				fmt.Fprintf(w, "mismatched: record %d %s (have %s, want %s)\n", rec.ID, f.Name, got, want)
				result.Mismatched++
				continue
			}
			result.Checked++
		}
	}

	fmt.Fprintf(w, "\nVerify summary: %d ok, %d missing, %d mismatched, %d unchecked\n",
		result.Checked, result.Missing, result.Mismatched, result.Unchecked)
	return result
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
