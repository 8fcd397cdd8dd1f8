package model

import "time"

// EventType is the top-level type of an accepted timeline fact
type EventType string

const (
	EventEstablished EventType = "established"
	EventVisit       EventType = "visit"
	EventCustom      EventType = "custom"
)

// TimelineFact is an accepted, location-scoped historical event
type TimelineFact struct {
	ID            string        `json:"event_id" db:"event_id"`
	LocID         string        `json:"locid" db:"locid"`
	SubID         *string       `json:"subid,omitempty" db:"subid"`
	EventType     EventType     `json:"event_type" db:"event_type"`
	EventSubtype  string        `json:"event_subtype" db:"event_subtype"`
	DateStart     string        `json:"date_start" db:"date_start"`
	DateEnd       *string       `json:"date_end,omitempty" db:"date_end"`
	DatePrecision DatePrecision `json:"date_precision" db:"date_precision"`
	DateDisplay   string        `json:"date_display" db:"date_display"`
	DateEDTF      string        `json:"date_edtf" db:"date_edtf"`
	DateSort      int           `json:"date_sort" db:"date_sort"`
	SourceType    string        `json:"source_type" db:"source_type"`
	SourceRef     string        `json:"source_ref" db:"source_ref"`
	Notes         string        `json:"notes" db:"notes"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	CreatedBy     string        `json:"created_by" db:"created_by"`
}

// Kind returns the (type, subtype) pair of the fact
func (f *TimelineFact) Kind() EventKind {
	return EventKind{Type: f.EventType, Subtype: f.EventSubtype}
}
