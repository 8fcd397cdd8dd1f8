package model

import "time"

// Document is one unit of source text handed to the pipeline
type Document struct {
	Text        string     `json:"text"`
	URL         string     `json:"url,omitempty"`          // Fetched when Text is empty
	ContentType string     `json:"content_type,omitempty"` // e.g. text/html; picks the text adapter
	SourceType  SourceType `json:"source_type"`
	SourceID    string     `json:"source_id"`
	LocID       string     `json:"locid,omitempty"`
	SubID       string     `json:"subid,omitempty"`
	ArticleDate *time.Time `json:"article_date,omitempty"`
}

// RunSummary reports what one pipeline run did
type RunSummary struct {
	SourceID     string   `json:"source_id"`
	Extracted    int      `json:"extracted"`
	Duplicates   int      `json:"duplicates"`
	Conflicts    int      `json:"conflicts"`
	AutoApproved int      `json:"auto_approved"`
	Errors       []string `json:"errors"`
}

// Stats aggregates extraction counts for reporting
type Stats struct {
	Total               int            `json:"total"`
	ByStatus            map[Status]int `json:"by_status"`
	Duplicates          int            `json:"duplicates"`
	UnresolvedConflicts int            `json:"unresolved_conflicts"`
}
