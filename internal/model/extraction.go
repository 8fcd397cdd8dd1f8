package model

import "time"

// Extraction is one dated finding from one source document
type Extraction struct {
	ID string `json:"extraction_id" db:"extraction_id"`

	// Source reference
	SourceType SourceType `json:"source_type" db:"source_type"`
	SourceID   string     `json:"source_id" db:"source_id"`
	LocID      *string    `json:"locid,omitempty" db:"locid"`
	SubID      *string    `json:"subid,omitempty" db:"subid"`

	// Raw evidence
	RawText        string `json:"raw_text" db:"raw_text"`
	Sentence       string `json:"sentence" db:"sentence"`
	SentenceOffset int    `json:"sentence_offset" db:"sentence_offset"` // Byte offset of the match inside Sentence

	// Parsed date
	DateStart     string        `json:"date_start" db:"date_start"` // YYYY-MM-DD
	DateEnd       *string       `json:"date_end,omitempty" db:"date_end"`
	DatePrecision DatePrecision `json:"date_precision" db:"date_precision"`
	DateDisplay   string        `json:"date_display" db:"date_display"`
	DateEDTF      string        `json:"date_edtf" db:"date_edtf"`
	DateSort      int           `json:"date_sort" db:"date_sort"`

	// Classification
	Category           Category   `json:"category" db:"category"`
	CategoryConfidence float64    `json:"category_confidence" db:"category_confidence"`
	CategoryKeywords   StringList `json:"category_keywords" db:"category_keywords"`
	KeywordDistance    *int       `json:"keyword_distance,omitempty" db:"keyword_distance"` // nil when no keyword matched

	// Scoring inputs
	SentencePosition  SentencePosition `json:"sentence_position" db:"sentence_position"`
	SourceAgeDays     *int             `json:"source_age_days,omitempty" db:"source_age_days"`
	OverallConfidence float64          `json:"overall_confidence" db:"overall_confidence"`

	// Temporal anchoring
	ArticleDate           *string `json:"article_date,omitempty" db:"article_date"`
	RelativeExpression    bool    `json:"relative_expression" db:"relative_expression"`
	CenturyBiasApplied    bool    `json:"century_bias_applied" db:"century_bias_applied"`
	OriginalYearAmbiguous bool    `json:"original_year_ambiguous" db:"original_year_ambiguous"`

	// Deduplication
	IsPrimary     bool       `json:"is_primary" db:"is_primary"`
	MergedFromIDs StringList `json:"merged_from_ids,omitempty" db:"merged_from_ids"`
	DuplicateOfID *string    `json:"duplicate_of_id,omitempty" db:"duplicate_of_id"`

	// Conflict
	ConflictEventID  *string      `json:"conflict_event_id,omitempty" db:"conflict_event_id"`
	ConflictType     ConflictType `json:"conflict_type,omitempty" db:"conflict_type"`
	ConflictResolved bool         `json:"conflict_resolved" db:"conflict_resolved"`

	// Workflow
	Status            Status     `json:"status" db:"status"`
	AutoApproveReason *string    `json:"auto_approve_reason,omitempty" db:"auto_approve_reason"`
	ReviewedBy        *string    `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	RejectionReason   *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	TimelineEventID   *string    `json:"timeline_event_id,omitempty" db:"timeline_event_id"`
	ConvertedAt       *time.Time `json:"converted_at,omitempty" db:"converted_at"`
	RevertedAt        *time.Time `json:"reverted_at,omitempty" db:"reverted_at"`
	RevertedBy        *string    `json:"reverted_by,omitempty" db:"reverted_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasUnresolvedConflict reports whether a conflict is flagged and not yet resolved
func (e *Extraction) HasUnresolvedConflict() bool {
	return e.ConflictEventID != nil && !e.ConflictResolved
}

// Location returns the owning location id, or "" when the extraction has none
func (e *Extraction) Location() string {
	if e.LocID == nil {
		return ""
	}
	return *e.LocID
}

// GroupKey identifies the dedup group (location, date, category)
func (e *Extraction) GroupKey() GroupKey {
	return GroupKey{LocID: e.Location(), DateStart: e.DateStart, Category: e.Category}
}

// Clone returns a deep copy so workflow transitions can be applied all-or-nothing
func (e *Extraction) Clone() *Extraction {
	c := *e
	c.CategoryKeywords = append(StringList(nil), e.CategoryKeywords...)
	c.MergedFromIDs = append(StringList(nil), e.MergedFromIDs...)
	c.LocID = cloneString(e.LocID)
	c.SubID = cloneString(e.SubID)
	c.DateEnd = cloneString(e.DateEnd)
	c.ArticleDate = cloneString(e.ArticleDate)
	c.DuplicateOfID = cloneString(e.DuplicateOfID)
	c.ConflictEventID = cloneString(e.ConflictEventID)
	c.AutoApproveReason = cloneString(e.AutoApproveReason)
	c.ReviewedBy = cloneString(e.ReviewedBy)
	c.RejectionReason = cloneString(e.RejectionReason)
	c.TimelineEventID = cloneString(e.TimelineEventID)
	c.RevertedBy = cloneString(e.RevertedBy)
	c.ReviewedAt = cloneTime(e.ReviewedAt)
	c.ConvertedAt = cloneTime(e.ConvertedAt)
	c.RevertedAt = cloneTime(e.RevertedAt)
	if e.KeywordDistance != nil {
		d := *e.KeywordDistance
		c.KeywordDistance = &d
	}
	if e.SourceAgeDays != nil {
		a := *e.SourceAgeDays
		c.SourceAgeDays = &a
	}
	return &c
}

// GroupKey is the (location, date_start, category) triple shared by duplicates
type GroupKey struct {
	LocID     string
	DateStart string
	Category  Category
}

func (k GroupKey) String() string {
	return k.LocID + "|" + k.DateStart + "|" + string(k.Category)
}

// SourceType is the kind of document an extraction came from
type SourceType string

const (
	SourceWebPage      SourceType = "web"
	SourceImageCaption SourceType = "image_caption"
	SourceDocument     SourceType = "document" // OCR output of a scanned document
	SourceManual       SourceType = "manual"
)

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	switch s {
	case SourceWebPage, SourceImageCaption, SourceDocument, SourceManual:
		return true
	}
	return false
}

// DatePrecision records which date fields were present in the text
type DatePrecision string

const (
	PrecisionExact   DatePrecision = "exact"
	PrecisionMonth   DatePrecision = "month"
	PrecisionYear    DatePrecision = "year"
	PrecisionUnknown DatePrecision = "unknown"
)

// SentencePosition is where the match sits within its sentence
type SentencePosition string

const (
	PositionBeginning SentencePosition = "beginning"
	PositionMiddle    SentencePosition = "middle"
	PositionEnd       SentencePosition = "end"
)

// ConflictType classifies a disagreement with an accepted timeline fact
type ConflictType string

const (
	ConflictNone         ConflictType = ""
	ConflictDateMismatch ConflictType = "date_mismatch"
)

// Status is the workflow state of an extraction
type Status string

const (
	StatusPending      Status = "pending"
	StatusAutoApproved Status = "auto_approved"
	StatusUserApproved Status = "user_approved"
	StatusRejected     Status = "rejected"
	StatusConverted    Status = "converted"
	StatusReverted     Status = "reverted"
)

// AllStatuses lists every workflow state in lifecycle order
var AllStatuses = []Status{
	StatusPending,
	StatusAutoApproved,
	StatusUserApproved,
	StatusRejected,
	StatusConverted,
	StatusReverted,
}

// IsApproved reports whether the status counts as approved
func (s Status) IsApproved() bool {
	return s == StatusAutoApproved || s == StatusUserApproved
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
