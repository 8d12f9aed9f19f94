package types

import (
	"net/url"
	"time"
)

// Classification buckets a discovered image URL for the fetch pipeline.
type Classification int

const (
	// Fetchable URLs are regular http(s) image resources worth downloading.
	Fetchable Classification = iota
	// DataEmbedded URLs carry their payload inline (data: scheme) and are
	// never fetched over the network.
	DataEmbedded
	// VectorExcluded URLs look like SVG markup by extension, substring, or
	// content type. They count as discovered but are not downloaded.
	VectorExcluded
)

func (c Classification) String() string {
	switch c {
	case DataEmbedded:
		return "data_embedded"
	case VectorExcluded:
		return "vector_excluded"
	default:
		return "fetchable"
	}
}

// Outcome records what the fetcher did with a single URL.
type Outcome string

const (
	OutcomeSaved                  Outcome = "saved"
	OutcomeSkippedDuplicateOnDisk Outcome = "skipped_duplicate_on_disk"
	OutcomeSkippedVector          Outcome = "skipped_vector"
	OutcomeSkippedDataURI         Outcome = "skipped_data_uri"
	OutcomeFailed                 Outcome = "failed"
)

// DownloadRecord is the per-URL result of the fetch phase. Exactly one record
// is produced for every URL handed to the fetcher.
type DownloadRecord struct {
	URL       string
	LocalPath string
	Outcome   Outcome
	Reason    string
	FetchedAt time.Time
}

// ScrollState captures the render surface geometry read back after a scroll
// step. It only exists to evaluate the stopping condition. The json tags
// match the object literal evaluated in the browser.
type ScrollState struct {
	DocumentHeight float64 `json:"documentHeight"`
	ViewportOffset float64 `json:"viewportOffset"`
	ViewportHeight float64 `json:"viewportHeight"`
	StepsTaken     int     `json:"-"`
}

// AtBottom reports whether the viewport has run out of room to scroll.
func (s ScrollState) AtBottom() bool {
	return s.ViewportOffset+s.ViewportHeight >= s.DocumentHeight
}

// HarvestResult is the outcome of one page run.
type HarvestResult struct {
	PageURL     *url.URL
	URLs        []string
	Steps       int
	PageTitle   string
	FinalURL    string
	HarvestedAt time.Time
}
