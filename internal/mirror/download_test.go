// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Core Data", "Core Data"},
		{"punctuation dropped", "Expedition 396: Core Data!", "Expedition 396 Core Data"},
		{"slashes dropped", "a/b\\c", "abc"},
		{"keeps hyphen underscore", "Site_U1559-logs", "Site_U1559-logs"},
		{"trimmed", "  spaced  ", "spaced"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
		{"length capped", strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestRecordDirName(t *testing.T) {
	tests := []struct {
		name  string
		id    int64
		title string
		want  string
	}{
		{"id and title", 101, "Core Data", "101_Core Data"},
		{"title sanitized", 101, "a/b", "101_ab"},
		{"empty title leaves id", 102, "???", "102"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordDirName(tt.id, tt.title); got != tt.want {
				t.Errorf("RecordDirName(%d, %q) = %q, want %q", tt.id, tt.title, got, tt.want)
			}
		})
	}
}

func TestSatisfied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.dat")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !Satisfied(path, 5) {
		t.Error("matching size should satisfy")
	}
	if Satisfied(path, 6) {
		t.Error("size mismatch should not satisfy")
	}
	if Satisfied(filepath.Join(dir, "absent"), 0) {
		t.Error("missing file should not satisfy")
	}
}
