// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index maintains a local SQLite full-text index over the
// metadata journal, so a mirrored community can be searched without
// touching the network.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/zenodo-mirror/internal/journal"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "mirror.db"
)

// Store manages the metadata index SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the index database at
// OutputDir/index/mirror.db, creating the schema if needed.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.OutputDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY,
			title TEXT,
			doi TEXT,
			publication_date TEXT,
			creators TEXT,
			description TEXT,
			file_count INTEGER,
			total_bytes INTEGER
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE records_fts USING fts5(title, description, creators, content=records, content_rowid=id)`,
			`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
				INSERT INTO records_fts(rowid, title, description, creators)
				VALUES (new.id, new.title, new.description, new.creators);
			END`,
			`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, title, description, creators)
				VALUES('delete', old.id, old.title, old.description, old.creators);
			END`,
			`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, title, description, creators)
				VALUES('delete', old.id, old.title, old.description, old.creators);
				INSERT INTO records_fts(rowid, title, description, creators)
				VALUES (new.id, new.title, new.description, new.creators);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Rebuild replaces the index contents with the journal's records. The
// journal is small, so a wholesale rebuild keeps the index trivially
// consistent with the mirror state.
func (s *Store) Rebuild(ctx context.Context, j *journal.Journal) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return 0, fmt.Errorf("clearing index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, title, doi, publication_date, creators, description, file_count, total_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, rec := range j.Records() {
		creatorsJSON, _ := json.Marshal(rec.Creators)
		var totalBytes int64
		for _, f := range rec.Files {
			totalBytes += f.Size
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.Title, rec.DOI, rec.PublicationDate,
			string(creatorsJSON), rec.Description, len(rec.Files), totalBytes,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %d: %w", rec.ID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return count, nil
}

// Result is one indexed record returned by Query.
type Result struct {
	ID              int64
	Title           string
	DOI             string
	PublicationDate string
	Creators        []string
	FileCount       int
	TotalBytes      int64
}

// Query runs a full-text search over titles, descriptions and creators.
// An empty query lists every indexed record in identifier order.
func (s *Store) Query(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var rows *sql.Rows
	var err error
	if strings.TrimSpace(query) == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, doi, publication_date, creators, file_count, total_bytes
			 FROM records ORDER BY id LIMIT ?`, maxResults)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT r.id, r.title, r.doi, r.publication_date, r.creators, r.file_count, r.total_bytes
			 FROM records_fts f
			 JOIN records r ON r.id = f.rowid
			 WHERE records_fts MATCH ?
			 ORDER BY bm25(records_fts)
			 LIMIT ?`, query, maxResults)
	}
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var creatorsJSON string
		if err := rows.Scan(&r.ID, &r.Title, &r.DOI, &r.PublicationDate,
			&creatorsJSON, &r.FileCount, &r.TotalBytes); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if creatorsJSON != "" {
			json.Unmarshal([]byte(creatorsJSON), &r.Creators)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(results []Result, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-10s  %-60s  %-12s  %-5s  %s\n",
		"ID", "Title", "Published", "Files", "Bytes")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%-10d  %-60s  %-12s  %-5d  %d\n",
			r.ID, title, r.PublicationDate, r.FileCount, r.TotalBytes)
	}
	fmt.Fprintf(w, "\n%d records\n", len(results))
}
