// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal persists the mapping from record identifier to record
// metadata as a single JSON document. The journal is merged in memory and
// rewritten wholesale after each record, which makes interrupted runs
// resumable: re-walking the community reconstructs the same state.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

// FileName is the journal's name inside the mirror output directory.
const FileName = "metadata.json"

// Journal accumulates record metadata keyed by record identifier. It is
// not safe for concurrent use; the mirror touches it from one goroutine.
type Journal struct {
	path    string
	records map[int64]*types.Record
}

// Load reads the journal from outputDir, or returns an empty journal when
// no file exists yet.
func Load(outputDir string) (*Journal, error) {
	j := &Journal{
		path:    filepath.Join(outputDir, FileName),
		records: make(map[int64]*types.Record),
	}

	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}

	// JSON object keys are strings; record ids are numeric.
	raw := make(map[string]*types.Record)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing journal %s: %w", j.path, err)
	}
	for k, rec := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing journal %s: bad record id %q", j.path, k)
		}
		j.records[id] = rec
	}
	return j, nil
}

// Set merges one record into the journal, replacing any previous entry
// with the same identifier.
func (j *Journal) Set(rec *types.Record) {
	j.records[rec.ID] = rec
}

// Get returns the journaled record, or nil when absent.
func (j *Journal) Get(id int64) *types.Record {
	return j.records[id]
}

// Len returns the number of journaled records.
func (j *Journal) Len() int {
	return len(j.records)
}

// Records returns the journaled records sorted by identifier.
func (j *Journal) Records() []*types.Record {
	out := make([]*types.Record, 0, len(j.records))
	for _, rec := range j.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Save serializes the whole mapping and replaces the journal file. The
// write goes through a temp file and rename so an interrupt never leaves
// a truncated journal behind.
func (j *Journal) Save() error {
	raw := make(map[string]*types.Record, len(j.records))
	for id, rec := range j.records {
		raw[strconv.FormatInt(id, 10)] = rec
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".journal-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp journal: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing journal: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp journal: %w", closeErr)
	}

	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing journal: %w", err)
	}
	return nil
}
