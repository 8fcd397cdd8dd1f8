package model

import "time"

// Pattern is a user-defined regex that extracts dates alongside the parser.
// Named groups year, month and day are read when present.
type Pattern struct {
	ID        string    `json:"pattern_id" db:"pattern_id" yaml:"id"`
	Name      string    `json:"name" db:"name" yaml:"name"`
	Regex     string    `json:"pattern" db:"pattern" yaml:"pattern"`
	Category  *Category `json:"category,omitempty" db:"category" yaml:"category,omitempty"`
	Enabled   bool      `json:"enabled" db:"enabled" yaml:"enabled"`
	LastError *string   `json:"last_error,omitempty" db:"last_error" yaml:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}
