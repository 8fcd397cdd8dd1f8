package model

import "time"

// WeightEntry holds the review feedback collected for one (category, keyword)
type WeightEntry struct {
	Category       Category  `json:"category" db:"category"`
	Keyword        string    `json:"keyword" db:"keyword"`
	Approvals      int       `json:"approvals" db:"approvals"`
	Rejections     int       `json:"rejections" db:"rejections"`
	WeightModifier float64   `json:"weight_modifier" db:"weight_modifier"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// WeightTable is a read-only snapshot of keyword modifiers, keyed by category
// then keyword. A missing entry means a modifier of 1.0.
type WeightTable map[Category]map[string]float64

// Modifier returns the learned modifier for keyword under category
func (w WeightTable) Modifier(category Category, keyword string) float64 {
	if w == nil {
		return 1.0
	}
	if m, ok := w[category][keyword]; ok {
		return m
	}
	return 1.0
}

// NewWeightTable builds a snapshot from stored entries
func NewWeightTable(entries []WeightEntry) WeightTable {
	table := make(WeightTable)
	for _, e := range entries {
		if table[e.Category] == nil {
			table[e.Category] = make(map[string]float64)
		}
		table[e.Category][e.Keyword] = e.WeightModifier
	}
	return table
}
