// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "zenodo-mirror/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SyncConfig holds settings for a mirror run.
type SyncConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the Zenodo API root (default "https://zenodo.org/api").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Community is the Zenodo community identifier whose records are mirrored.
	Community string `json:"community" yaml:"community"`

	// APIKey is the Zenodo personal access token, sent as a bearer token.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// OutputDir is the root directory for downloaded records and the
	// metadata journal (default "data").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// PageSize is the listing page size (default 50; 2 in debug mode).
	PageSize int `json:"page_size" yaml:"page_size"`

	// RecordDelay is the pause between consecutive records (default 100ms).
	RecordDelay time.Duration `json:"record_delay" yaml:"record_delay"`

	// MaxRecords bounds the number of records processed; 0 means no bound.
	// Debug mode sets 2.
	MaxRecords int `json:"max_records,omitempty" yaml:"max_records,omitempty"`

	// MaxFilesPerRecord bounds downloads per record; 0 means no bound.
	// Debug mode sets 2.
	MaxFilesPerRecord int `json:"max_files_per_record,omitempty" yaml:"max_files_per_record,omitempty"`
}

// IndexConfig holds settings for the local metadata index.
type IndexConfig struct {
	// OutputDir is the mirror root containing the metadata journal; the
	// index database lives at OutputDir/index/mirror.db.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
