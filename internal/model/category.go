package model

// Category is the semantic meaning of an extracted date
type Category string

const (
	CategoryBuildDate   Category = "build_date"
	CategorySiteVisit   Category = "site_visit"
	CategoryObituary    Category = "obituary"
	CategoryPublication Category = "publication"
	CategoryClosure     Category = "closure"
	CategoryOpening     Category = "opening"
	CategoryDemolition  Category = "demolition"
	CategoryUnknown     Category = "unknown"
)

// CategoryInfo is the immutable data row behind a category: its trigger
// keywords and the timeline fact it implies once accepted.
type CategoryInfo struct {
	Category Category
	Keywords []string
	Event    EventKind
	// OneTime marks facts a location can only have once; only those are
	// checked for date conflicts.
	OneTime bool
}

// EventKind is the (type, subtype) pair of a timeline fact
type EventKind struct {
	Type    EventType `json:"event_type"`
	Subtype string    `json:"event_subtype"`
}

// Categories is the classification table, in tie-break order
var Categories = []CategoryInfo{
	{
		Category: CategoryBuildDate,
		Keywords: []string{
			"built", "constructed", "erected", "founded", "established",
			"construction", "completed", "broke ground", "groundbreaking",
		},
		Event:   EventKind{Type: EventEstablished, Subtype: "built"},
		OneTime: true,
	},
	{
		Category: CategorySiteVisit,
		Keywords: []string{
			"visited", "explored", "toured", "photographed", "went inside",
			"trip", "exploring", "our visit",
		},
		Event: EventKind{Type: EventVisit, Subtype: "site_visit"},
	},
	{
		Category: CategoryObituary,
		Keywords: []string{
			"died", "passed away", "funeral", "obituary", "survived by",
			"laid to rest", "buried", "death",
		},
		Event:   EventKind{Type: EventCustom, Subtype: "obituary"},
		OneTime: true,
	},
	{
		Category: CategoryPublication,
		Keywords: []string{
			"published", "posted", "reported", "updated", "announced",
			"written", "article", "wrote",
		},
		Event: EventKind{Type: EventCustom, Subtype: "publication"},
	},
	{
		Category: CategoryClosure,
		Keywords: []string{
			"closed", "shut down", "abandoned", "shuttered", "ceased operations",
			"vacated", "decommissioned", "closed its doors",
		},
		Event:   EventKind{Type: EventEstablished, Subtype: "closed"},
		OneTime: true,
	},
	{
		Category: CategoryOpening,
		Keywords: []string{
			"opened", "inaugurated", "grand opening", "ribbon cutting",
			"opened its doors", "debuted", "dedicated",
		},
		Event:   EventKind{Type: EventEstablished, Subtype: "opened"},
		OneTime: true,
	},
	{
		Category: CategoryDemolition,
		Keywords: []string{
			"demolished", "torn down", "razed", "demolition", "tore down",
			"knocked down", "imploded", "leveled",
		},
		Event:   EventKind{Type: EventEstablished, Subtype: "demolished"},
		OneTime: true,
	},
	{
		Category: CategoryUnknown,
		Keywords: nil,
		Event:    EventKind{Type: EventCustom, Subtype: "none"},
	},
}

var categoryIndex = func() map[Category]CategoryInfo {
	idx := make(map[Category]CategoryInfo, len(Categories))
	for _, info := range Categories {
		idx[info.Category] = info
	}
	return idx
}()

// LookupCategory returns the table row for c
func LookupCategory(c Category) (CategoryInfo, bool) {
	info, ok := categoryIndex[c]
	return info, ok
}

// Valid reports whether c is one of the eight categories
func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Event returns the timeline fact kind implied by c
func (c Category) Event() EventKind {
	if info, ok := categoryIndex[c]; ok {
		return info.Event
	}
	return categoryIndex[CategoryUnknown].Event
}
