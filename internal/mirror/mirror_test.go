// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mirror

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/zenodo-mirror/internal/journal"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

// fakeRecord is one record served by the fake Zenodo API, with file
// contents keyed by filename.
type fakeRecord struct {
	id    int64
	title string
	files map[string]string
}

// fakeZenodo serves a community listing, record details, and file
// content, and counts requests per path.
type fakeZenodo struct {
	records []fakeRecord

	mu           sync.Mutex
	fileRequests map[string]int
	listRequests int

	// failFiles marks filenames whose download returns HTTP 500.
	failFiles map[string]bool
	// failRecords marks record ids whose detail fetch returns HTTP 404.
	failRecords map[int64]bool
}

func newFakeZenodo(t *testing.T, records []fakeRecord) *fakeZenodo {
	t.Helper()
	return &fakeZenodo{
		records:      records,
		fileRequests: make(map[string]int),
		failFiles:    make(map[string]bool),
		failRecords:  make(map[int64]bool),
	}
}

func (f *fakeZenodo) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/records":
			f.serveListing(w, r)
		case strings.HasPrefix(r.URL.Path, "/records/"):
			f.serveRecord(w, r)
		case strings.HasPrefix(r.URL.Path, "/files/"):
			f.serveFile(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
}

func (f *fakeZenodo) serveListing(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.listRequests++
	f.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	start := (page - 1) * size

	type stub struct {
		ID       int64 `json:"id"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	}
	var hits []stub
	for i := start; i < len(f.records) && i-start < size; i++ {
		var s stub
		s.ID = f.records[i].id
		s.Metadata.Title = f.records[i].title
		hits = append(hits, s)
	}

	resp := map[string]any{"hits": map[string]any{"hits": hits, "total": len(f.records)}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeZenodo) serveRecord(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/records/"), 10, 64)
	if f.failRecords[id] {
		http.NotFound(w, r)
		return
	}
	for _, rec := range f.records {
		if rec.id != id {
			continue
		}

		type fileEntry struct {
			Key      string `json:"key"`
			Size     int64  `json:"size"`
			Checksum string `json:"checksum"`
			Links    struct {
				Self string `json:"self"`
			} `json:"links"`
		}
		var files []fileEntry
		for name, content := range rec.files {
			var fe fileEntry
			fe.Key = name
			fe.Size = int64(len(content))
			sum := md5.Sum([]byte(content))
			fe.Checksum = "md5:" + hex.EncodeToString(sum[:])
			fe.Links.Self = "http://" + r.Host + fmt.Sprintf("/files/%d/%s", rec.id, name)
			files = append(files, fe)
		}

		resp := map[string]any{
			"id":  rec.id,
			"doi": fmt.Sprintf("10.5281/zenodo.%d", rec.id),
			"metadata": map[string]any{
				"title":            rec.title,
				"publication_date": "2023-02-01",
				"creators":         []map[string]string{{"name": "Smith, Alice"}},
			},
			"files": files,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		return
	}
	http.NotFound(w, r)
}

func (f *fakeZenodo) serveFile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.fileRequests[r.URL.Path]++
	f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/files/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	if f.failFiles[parts[1]] {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	id, _ := strconv.ParseInt(parts[0], 10, 64)
	for _, rec := range f.records {
		if rec.id == id {
			if content, ok := rec.files[parts[1]]; ok {
				fmt.Fprint(w, content)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (f *fakeZenodo) totalFileRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fileRequests {
		n += c
	}
	return n
}

func testConfig(baseURL, outDir string) types.SyncConfig {
	return types.SyncConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "zenodo-mirror/test",
		},
		BaseURL:   baseURL,
		Community: "iodp",
		APIKey:    "test-key",
		OutputDir: outDir,
		PageSize:  50,
	}
}

func twoRecords() []fakeRecord {
	return []fakeRecord{
		{id: 101, title: "Expedition 396: Core Data", files: map[string]string{
			"cores.csv":  "a,b,c\n1,2,3\n",
			"readme.txt": "hello",
		}},
		{id: 102, title: "Site U1559 Logs", files: map[string]string{
			"logs.dat": "0123456789",
		}},
	}
}

func TestRun_MirrorsCommunity(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	var buf bytes.Buffer
	result, err := Run(context.Background(), testConfig(ts.URL, out), &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Records != 2 || result.FilesDownloaded != 3 || result.FilesFailed != 0 {
		t.Errorf("result = %+v", result)
	}

	// Files land under <id>_<sanitized title>.
	path := filepath.Join(out, "101_Expedition 396 Core Data", "cores.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("downloaded file: %v", err)
	}
	if string(data) != "a,b,c\n1,2,3\n" {
		t.Errorf("file content = %q", data)
	}

	// Sidecar present.
	if _, err := os.Stat(filepath.Join(out, "102_Site U1559 Logs", "metadata.yaml")); err != nil {
		t.Errorf("metadata sidecar: %v", err)
	}

	// Journal holds one entry per fetched record.
	j, err := journal.Load(out)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if j.Len() != 2 {
		t.Errorf("journal has %d entries, want 2", j.Len())
	}
	if rec := j.Get(101); rec == nil || rec.Title != "Expedition 396: Core Data" {
		t.Errorf("journal record 101 = %+v", rec)
	}
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	cfg := testConfig(ts.URL, out)

	var buf bytes.Buffer
	if _, err := Run(context.Background(), cfg, &buf); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstFileRequests := fake.totalFileRequests()

	result, err := Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if fake.totalFileRequests() != firstFileRequests {
		t.Errorf("second run issued %d extra file requests",
			fake.totalFileRequests()-firstFileRequests)
	}
	if result.FilesSkipped != 3 || result.FilesDownloaded != 0 {
		t.Errorf("second run result = %+v", result)
	}
}

func TestRun_RedownloadsSizeMismatch(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	cfg := testConfig(ts.URL, out)

	var buf bytes.Buffer
	if _, err := Run(context.Background(), cfg, &buf); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Truncate one file to simulate an interrupted download.
	path := filepath.Join(out, "102_Site U1559 Logs", "logs.dat")
	if err := os.WriteFile(path, []byte("0123"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.FilesDownloaded != 1 || result.FilesSkipped != 2 {
		t.Errorf("result = %+v", result)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123456789" {
		t.Errorf("file not restored, content = %q", data)
	}
}

func TestRun_FileFailureDoesNotStopOthers(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	fake.failFiles["cores.csv"] = true
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	var buf bytes.Buffer
	result, err := Run(context.Background(), testConfig(ts.URL, out), &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FilesFailed != 1 || result.FilesDownloaded != 2 {
		t.Errorf("result = %+v", result)
	}
	// The sibling file of the failed one still landed.
	if _, err := os.Stat(filepath.Join(out, "101_Expedition 396 Core Data", "readme.txt")); err != nil {
		t.Errorf("sibling file: %v", err)
	}
	if !strings.Contains(buf.String(), "warning: cores.csv failed") {
		t.Errorf("missing warning in output:\n%s", buf.String())
	}
}

func TestRun_RecordFetchFailureSkipsRecord(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	fake.failRecords[101] = true
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	var buf bytes.Buffer
	result, err := Run(context.Background(), testConfig(ts.URL, out), &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Records != 1 || result.RecordsFailed != 1 {
		t.Errorf("result = %+v", result)
	}

	// The failed record is absent from the journal; the other is present.
	j, err := journal.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if j.Get(101) != nil {
		t.Error("failed record should not be journaled")
	}
	if j.Get(102) == nil {
		t.Error("subsequent record missing from journal")
	}
}

func TestRun_DebugLimitsRecordsAndFiles(t *testing.T) {
	var records []fakeRecord
	for i := 1; i <= 5; i++ {
		files := map[string]string{}
		for f := 1; f <= 3; f++ {
			files[fmt.Sprintf("f%d.dat", f)] = strings.Repeat("x", f)
		}
		records = append(records, fakeRecord{id: int64(i), title: fmt.Sprintf("R%d", i), files: files})
	}
	fake := newFakeZenodo(t, records)
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	cfg := testConfig(ts.URL, out)
	cfg.PageSize = 2
	cfg.MaxRecords = 2
	cfg.MaxFilesPerRecord = 2

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Records != 2 {
		t.Errorf("processed %d records, want 2", result.Records)
	}
	if result.FilesDownloaded > 4 {
		t.Errorf("downloaded %d files, want at most 4", result.FilesDownloaded)
	}
	if fake.listRequests != 1 {
		t.Errorf("listing requests = %d, want 1", fake.listRequests)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	dirs := 0
	for _, e := range entries {
		if e.IsDir() {
			dirs++
		}
	}
	if dirs != 2 {
		t.Errorf("record directories = %d, want 2", dirs)
	}
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	_, err := Run(context.Background(), testConfig(ts.URL, t.TempDir()), &buf)
	if err == nil {
		t.Fatal("expected fatal error when listing fails")
	}
}

func TestRun_ResumeAfterInterruptMatchesFullRun(t *testing.T) {
	fake := newFakeZenodo(t, twoRecords())
	ts := fake.server()
	defer ts.Close()

	out := t.TempDir()
	cfg := testConfig(ts.URL, out)

	// First pass bounded to one record stands in for an interrupted run.
	partial := cfg
	partial.MaxRecords = 1
	var buf bytes.Buffer
	if _, err := Run(context.Background(), partial, &buf); err != nil {
		t.Fatalf("partial run: %v", err)
	}

	if _, err := Run(context.Background(), cfg, &buf); err != nil {
		t.Fatalf("resumed run: %v", err)
	}

	// Full reference run into a second directory.
	ref := t.TempDir()
	refCfg := testConfig(ts.URL, ref)
	if _, err := Run(context.Background(), refCfg, &buf); err != nil {
		t.Fatalf("reference run: %v", err)
	}

	if diff := treeDiff(t, out, ref); diff != "" {
		t.Errorf("resumed tree differs from uninterrupted run:\n%s", diff)
	}
}

// treeDiff compares the relative file paths and sizes of two directory trees.
func treeDiff(t *testing.T, a, b string) string {
	t.Helper()
	list := func(root string) map[string]int64 {
		out := make(map[string]int64)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			out[rel] = info.Size()
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	la, lb := list(a), list(b)
	var diff strings.Builder
	for rel, size := range la {
		if other, ok := lb[rel]; !ok {
			fmt.Fprintf(&diff, "only in resumed: %s\n", rel)
		} else if other != size {
			fmt.Fprintf(&diff, "size differs: %s (%d vs %d)\n", rel, size, other)
		}
	}
	for rel := range lb {
		if _, ok := la[rel]; !ok {
			fmt.Fprintf(&diff, "only in reference: %s\n", rel)
		}
	}
	return diff.String()
}
