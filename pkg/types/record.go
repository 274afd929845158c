// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Record holds the metadata of one published Zenodo record, as returned
// by the record detail endpoint. Records are immutable once fetched.
type Record struct {
	// ID is the numeric Zenodo record identifier.
	ID int64 `json:"id" yaml:"id"`

	// Title is the record title as published.
	Title string `json:"title" yaml:"title"`

	// DOI is the record's digital object identifier, if assigned.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// PublicationDate is the date string from the record metadata
	// (Zenodo publishes "YYYY-MM-DD").
	PublicationDate string `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`

	// Creators lists author display names in source order.
	Creators []string `json:"creators,omitempty" yaml:"creators,omitempty"`

	// Description is the record abstract or description, possibly HTML.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Files is the record's file manifest.
	Files []File `json:"files" yaml:"files"`
}

// File is one downloadable artifact belonging to a record. It is declared
// by the record manifest and considered satisfied once a local file of the
// same name and size exists.
type File struct {
	// Name is the filename within the record ("key" in the Zenodo API).
	Name string `json:"name" yaml:"name"`

	// DownloadURL is the direct content URL.
	DownloadURL string `json:"download_url" yaml:"download_url"`

	// Size is the declared size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Checksum is the declared checksum in "md5:<hex>" form.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// RecordStub is the minimal descriptor the community listing yields: enough
// to fetch the full record and report progress.
type RecordStub struct {
	ID    int64
	Title string
}
