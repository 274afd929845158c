// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zenodo is a minimal client for the Zenodo REST API: paginated
// community listing, record detail fetch, and authenticated file streams.
package zenodo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/zenodo-mirror/internal/httputil"
	"github.com/pdiddy/zenodo-mirror/pkg/types"
)

// DefaultBaseURL is the production Zenodo API root. Tests substitute an
// httptest server through Client.BaseURL.
const DefaultBaseURL = "https://zenodo.org/api"

// Client queries the Zenodo REST API. The API key is forwarded as a
// bearer token on every request, including file downloads.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	APIKey    string
	UserAgent string

	// MaxRetries bounds 429 retries per request; 0 uses the httputil default.
	MaxRetries int
}

// New builds a client from the sync configuration.
func New(cfg types.SyncConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		BaseURL:   base,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
	}
}

// get issues an authenticated GET with 429 retry.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
}

// EachRecord walks the community's records page by page, calling fn for
// each descriptor in listing order. The walk is lazy: the next page is not
// requested until every descriptor on the current page has been consumed.
// It stops after a short or empty page, after limit descriptors when
// limit > 0, or on the first error from fn or the API.
func (c *Client) EachRecord(ctx context.Context, community string, pageSize, limit int, fn func(types.RecordStub) error) error {
	if pageSize <= 0 {
		pageSize = 50
	}

	seen := 0
	for page := 1; ; page++ {
		params := url.Values{
			"communities": {community},
			"page":        {strconv.Itoa(page)},
			"size":        {strconv.Itoa(pageSize)},
		}
		reqURL := c.BaseURL + "/records?" + params.Encode()

		resp, err := c.get(ctx, reqURL)
		if err != nil {
			return fmt.Errorf("listing community %s page %d: %w", community, page, err)
		}

		var sr searchResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&sr)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("listing community %s page %d: HTTP %d", community, page, resp.StatusCode)
		}
		if decodeErr != nil {
			return fmt.Errorf("parsing listing page %d: %w", page, decodeErr)
		}

		for _, hit := range sr.Hits.Hits {
			if err := fn(types.RecordStub{ID: hit.ID, Title: hit.Metadata.Title}); err != nil {
				return err
			}
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		}

		if len(sr.Hits.Hits) < pageSize {
			return nil
		}
	}
}

// GetRecord fetches the full record, including its file manifest.
func (c *Client) GetRecord(ctx context.Context, id int64) (*types.Record, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/records/%d", c.BaseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetching record %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching record %d: HTTP %d", id, resp.StatusCode)
	}

	var hit recordHit
	if err := json.NewDecoder(resp.Body).Decode(&hit); err != nil {
		return nil, fmt.Errorf("parsing record %d: %w", id, err)
	}
	return hit.toRecord(), nil
}

// OpenFile opens an authenticated stream for a file's content URL. The
// caller must close the returned body.
func (c *Client) OpenFile(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// Zenodo API JSON structures.
type searchResponse struct {
	Hits struct {
		Hits  []recordHit `json:"hits"`
		Total int         `json:"total"`
	} `json:"hits"`
}

type recordHit struct {
	ID       int64          `json:"id"`
	DOI      string         `json:"doi"`
	Metadata recordMetadata `json:"metadata"`
	Files    []recordFile   `json:"files"`
}

type recordMetadata struct {
	Title           string          `json:"title"`
	PublicationDate string          `json:"publication_date"`
	Description     string          `json:"description"`
	Creators        []recordCreator `json:"creators"`
}

type recordCreator struct {
	Name string `json:"name"`
}

type recordFile struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
	Links    struct {
		Self string `json:"self"`
	} `json:"links"`
}

func (h recordHit) toRecord() *types.Record {
	r := &types.Record{
		ID:              h.ID,
		Title:           h.Metadata.Title,
		DOI:             h.DOI,
		PublicationDate: h.Metadata.PublicationDate,
		Description:     h.Metadata.Description,
	}
	for _, c := range h.Metadata.Creators {
		if c.Name != "" {
			r.Creators = append(r.Creators, c.Name)
		}
	}
	for _, f := range h.Files {
		r.Files = append(r.Files, types.File{
			Name:        f.Key,
			DownloadURL: f.Links.Self,
			Size:        f.Size,
			Checksum:    f.Checksum,
		})
	}
	return r
}
